// Package report defines the structured reading report returned by the
// analysis pipeline and validates backend payloads against it.
package report

// AnalysisReport is the canonical result of one successful pipeline run.
// Every field without omitempty is required and validated by Parse.
type AnalysisReport struct {
	Score               int             `json:"score"`
	PrimaryCategory     Category        `json:"primaryCategory"`
	CategoryRationale   string          `json:"categoryRationale"`
	Sections            []Section       `json:"sections"`
	RiskMetrics         []RiskMetric    `json:"riskMetrics"`
	NarrativeBlocks     NarrativeBlocks `json:"narrativeBlocks"`
	RoleProfile         RoleProfile     `json:"roleProfile"`
	PersonalitySummary  string          `json:"personalitySummary"`
	SocialGuidance      string          `json:"socialGuidance"`
	SuggestedActivities []string        `json:"suggestedActivities"`
	CurrentStateLabel   string          `json:"currentStateLabel"`
	CurrentStateMessage string          `json:"currentStateMessage"`

	// Extended fields, produced by the two-stage pipeline.
	Headline     *Headline     `json:"headline,omitempty"`
	Observations []Observation `json:"observations,omitempty"`
	ExtendedLog  *ExtendedLog  `json:"extendedLog,omitempty"`

	Moles []Mole `json:"moles,omitempty"`
}

// Section is one named sub-analysis (a palace reading).
type Section struct {
	Name   string        `json:"name"`
	Status SectionStatus `json:"status"`
	Detail string        `json:"detail"`
}

// RiskMetric is a scored trait. NormalizedValue is a percentage in [0,100].
type RiskMetric struct {
	Label           string `json:"label"`
	NormalizedValue int    `json:"normalizedValue"`
	QualitativeTag  string `json:"qualitativeTag"`
	Detail          string `json:"detail"`
}

// NarrativeBlocks frames the reading as past, present and future.
type NarrativeBlocks struct {
	Past    string `json:"past"`
	Present string `json:"present"`
	Future  string `json:"future"`
}

// RoleProfile describes the best-fitting workplace role.
type RoleProfile struct {
	Role          string   `json:"role"`
	Strengths     []string `json:"strengths"`
	Advice        string   `json:"advice"`
	Compatibility string   `json:"compatibility"`
}

// Headline is the short verse shown at the top of an extended report.
type Headline struct {
	Verse   string `json:"verse"`
	Summary string `json:"summary"`
}

// Observation is a discrete visual finding tied to a face region.
type Observation struct {
	Feature      string `json:"feature"`
	Region       Region `json:"region"`
	Evidence     string `json:"evidence"`
	Significance string `json:"significance"`
}

// ExtendedLog carries the reasoning notes of the two-stage pipeline.
type ExtendedLog struct {
	StructuralNotes string `json:"structuralNotes"`
	DemeanorNotes   string `json:"demeanorNotes"`
	RiskNotes       string `json:"riskNotes"`
}

// Mole is an optional marking reading.
type Mole struct {
	Position string     `json:"position"`
	Nature   MoleNature `json:"nature"`
	Meaning  string     `json:"meaning"`
}

// IsExtended reports whether the extended fields are populated.
func (r *AnalysisReport) IsExtended() bool {
	return r.Headline != nil && r.ExtendedLog != nil && len(r.Observations) > 0
}
