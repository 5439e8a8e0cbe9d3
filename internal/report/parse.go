package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/constants"
	"golang.org/x/text/width"
)

// Wire types use pointers and raw values so that missing and null fields can
// be told apart from zero values.

type wireReport struct {
	Score               json.RawMessage  `json:"score"`
	PrimaryCategory     *string          `json:"primaryCategory"`
	CategoryRationale   *string          `json:"categoryRationale"`
	Sections            *[]wireSection   `json:"sections"`
	RiskMetrics         *[]wireMetric    `json:"riskMetrics"`
	NarrativeBlocks     *wireNarrative   `json:"narrativeBlocks"`
	RoleProfile         *wireRole        `json:"roleProfile"`
	PersonalitySummary  *string          `json:"personalitySummary"`
	SocialGuidance      *string          `json:"socialGuidance"`
	SuggestedActivities *[]*string       `json:"suggestedActivities"`
	CurrentStateLabel   *string          `json:"currentStateLabel"`
	CurrentStateMessage *string          `json:"currentStateMessage"`
	Headline            *wireHeadline    `json:"headline"`
	Observations        *[]wireObserve   `json:"observations"`
	ExtendedLog         *wireExtendedLog `json:"extendedLog"`
	Moles               *[]wireMole      `json:"moles"`
}

type wireSection struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
	Detail *string `json:"detail"`
}

type wireMetric struct {
	Label           *string         `json:"label"`
	NormalizedValue json.RawMessage `json:"normalizedValue"`
	QualitativeTag  *string         `json:"qualitativeTag"`
	Detail          *string         `json:"detail"`
}

type wireNarrative struct {
	Past    *string `json:"past"`
	Present *string `json:"present"`
	Future  *string `json:"future"`
}

type wireRole struct {
	Role          *string    `json:"role"`
	Strengths     *[]*string `json:"strengths"`
	Advice        *string    `json:"advice"`
	Compatibility *string    `json:"compatibility"`
}

type wireHeadline struct {
	Verse   *string `json:"verse"`
	Summary *string `json:"summary"`
}

type wireObserve struct {
	Feature      *string `json:"feature"`
	Region       *string `json:"region"`
	Evidence     *string `json:"evidence"`
	Significance *string `json:"significance"`
}

type wireExtendedLog struct {
	StructuralNotes *string `json:"structuralNotes"`
	DemeanorNotes   *string `json:"demeanorNotes"`
	RiskNotes       *string `json:"riskNotes"`
}

type wireMole struct {
	Position *string `json:"position"`
	Nature   *string `json:"nature"`
	Meaning  *string `json:"meaning"`
}

type wireObservations struct {
	Observations *[]wireObserve `json:"observations"`
}

// Parse decodes a backend payload into a report. Extended fields are optional
// but validated when present.
func Parse(raw string) (*AnalysisReport, error) {
	return parse(raw, false)
}

// ParseExtended is Parse with the extended fields (headline, extendedLog)
// required. Observations are supplied separately by the caller.
func ParseExtended(raw string) (*AnalysisReport, error) {
	return parse(raw, true)
}

func parse(raw string, extended bool) (*AnalysisReport, error) {
	var w wireReport
	if err := decode(raw, &w); err != nil {
		return nil, err
	}

	v := &validator{}
	r := v.report(&w, extended)
	if err := v.err(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseObservations decodes the stage-one observation list.
func ParseObservations(raw string) ([]Observation, error) {
	var w wireObservations
	if err := decode(raw, &w); err != nil {
		return nil, err
	}

	v := &validator{}
	obs := v.observations("observations", w.Observations, true)
	if v.ok() && (len(obs) < constants.MinObservations || len(obs) > constants.MaxObservations) {
		v.addf("observations: expected %d-%d items, got %d", constants.MinObservations, constants.MaxObservations, len(obs))
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return obs, nil
}

// decode separates syntax failures (MalformedResponse) from shape failures
// (ValidationError).
func decode(raw string, target any) error {
	data := []byte(stripCodeFence(raw))
	if !json.Valid(data) {
		var syntax any
		err := json.Unmarshal(data, &syntax)
		return apperrors.MalformedResponse("response is not valid JSON", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return apperrors.Validation("response does not match the report shape", err)
	}
	return nil
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// emit even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// validator collects every contract violation so a single error lists them all.
type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) ok() bool {
	return len(v.problems) == 0
}

func (v *validator) err() error {
	if v.ok() {
		return nil
	}
	return apperrors.Validation(strings.Join(v.problems, "; "), nil)
}

func (v *validator) text(field string, s *string) string {
	if s == nil {
		v.addf("%s: missing", field)
		return ""
	}
	if strings.TrimSpace(*s) == "" {
		v.addf("%s: empty", field)
		return ""
	}
	return strings.TrimSpace(*s)
}

func (v *validator) textList(field string, list *[]*string) []string {
	if list == nil {
		v.addf("%s: missing", field)
		return nil
	}
	if len(*list) == 0 {
		v.addf("%s: empty", field)
		return nil
	}
	out := make([]string, 0, len(*list))
	for i, s := range *list {
		out = append(out, v.text(fmt.Sprintf("%s[%d]", field, i), s))
	}
	return out
}

func (v *validator) score(raw json.RawMessage) int {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		v.addf("score: missing")
		return 0
	}
	f, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil || f != math.Trunc(f) {
		v.addf("score: %s is not an integer", trimmed)
		return 0
	}
	if f < 0 || f > 100 {
		v.addf("score: %v is outside 0-100", f)
		return 0
	}
	return int(f)
}

// percent accepts 85, 85.0 or "85%".
func (v *validator) percent(field string, raw json.RawMessage) int {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		v.addf("%s: missing", field)
		return 0
	}

	var text string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			v.addf("%s: invalid string", field)
			return 0
		}
		text = strings.TrimSuffix(strings.TrimSpace(width.Fold.String(text)), "%")
	} else {
		text = string(trimmed)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		v.addf("%s: %q is not a percentage", field, text)
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 100 {
		v.addf("%s: %v is outside 0-100", field, f)
		return 0
	}
	return int(math.Round(f))
}

func (v *validator) report(w *wireReport, extended bool) *AnalysisReport {
	r := &AnalysisReport{
		Score:               v.score(w.Score),
		CategoryRationale:   v.text("categoryRationale", w.CategoryRationale),
		PersonalitySummary:  v.text("personalitySummary", w.PersonalitySummary),
		SocialGuidance:      v.text("socialGuidance", w.SocialGuidance),
		SuggestedActivities: v.textList("suggestedActivities", w.SuggestedActivities),
		CurrentStateLabel:   v.text("currentStateLabel", w.CurrentStateLabel),
		CurrentStateMessage: v.text("currentStateMessage", w.CurrentStateMessage),
	}

	if w.PrimaryCategory == nil {
		v.addf("primaryCategory: missing")
	} else if c, err := ParseCategory(*w.PrimaryCategory); err != nil {
		v.addf("primaryCategory: %v", err)
	} else {
		r.PrimaryCategory = c
	}

	r.Sections = v.sections(w.Sections)
	r.RiskMetrics = v.metrics(w.RiskMetrics)

	if w.NarrativeBlocks == nil {
		v.addf("narrativeBlocks: missing")
	} else {
		r.NarrativeBlocks = NarrativeBlocks{
			Past:    v.text("narrativeBlocks.past", w.NarrativeBlocks.Past),
			Present: v.text("narrativeBlocks.present", w.NarrativeBlocks.Present),
			Future:  v.text("narrativeBlocks.future", w.NarrativeBlocks.Future),
		}
	}

	if w.RoleProfile == nil {
		v.addf("roleProfile: missing")
	} else {
		r.RoleProfile = RoleProfile{
			Role:          v.text("roleProfile.role", w.RoleProfile.Role),
			Strengths:     v.textList("roleProfile.strengths", w.RoleProfile.Strengths),
			Advice:        v.text("roleProfile.advice", w.RoleProfile.Advice),
			Compatibility: v.text("roleProfile.compatibility", w.RoleProfile.Compatibility),
		}
	}

	switch {
	case w.Headline != nil:
		r.Headline = &Headline{
			Verse:   v.text("headline.verse", w.Headline.Verse),
			Summary: v.text("headline.summary", w.Headline.Summary),
		}
	case extended:
		v.addf("headline: missing")
	}

	switch {
	case w.ExtendedLog != nil:
		r.ExtendedLog = &ExtendedLog{
			StructuralNotes: v.text("extendedLog.structuralNotes", w.ExtendedLog.StructuralNotes),
			DemeanorNotes:   v.text("extendedLog.demeanorNotes", w.ExtendedLog.DemeanorNotes),
			RiskNotes:       v.text("extendedLog.riskNotes", w.ExtendedLog.RiskNotes),
		}
	case extended:
		v.addf("extendedLog: missing")
	}

	if w.Observations != nil {
		r.Observations = v.observations("observations", w.Observations, false)
	}
	if w.Moles != nil {
		r.Moles = v.moles(*w.Moles)
	}

	return r
}

func (v *validator) sections(list *[]wireSection) []Section {
	if list == nil {
		v.addf("sections: missing")
		return nil
	}
	if len(*list) == 0 {
		v.addf("sections: empty")
		return nil
	}
	out := make([]Section, 0, len(*list))
	for i, s := range *list {
		field := fmt.Sprintf("sections[%d]", i)
		sec := Section{
			Name:   v.text(field+".name", s.Name),
			Detail: v.text(field+".detail", s.Detail),
		}
		if s.Status == nil {
			v.addf("%s.status: missing", field)
		} else if st, err := ParseSectionStatus(*s.Status); err != nil {
			v.addf("%s.status: %v", field, err)
		} else {
			sec.Status = st
		}
		out = append(out, sec)
	}
	return out
}

func (v *validator) metrics(list *[]wireMetric) []RiskMetric {
	if list == nil {
		v.addf("riskMetrics: missing")
		return nil
	}
	out := make([]RiskMetric, 0, len(*list))
	for i, m := range *list {
		field := fmt.Sprintf("riskMetrics[%d]", i)
		out = append(out, RiskMetric{
			Label:           v.text(field+".label", m.Label),
			NormalizedValue: v.percent(field+".normalizedValue", m.NormalizedValue),
			QualitativeTag:  v.text(field+".qualitativeTag", m.QualitativeTag),
			Detail:          v.text(field+".detail", m.Detail),
		})
	}
	return out
}

func (v *validator) observations(field string, list *[]wireObserve, required bool) []Observation {
	if list == nil {
		if required {
			v.addf("%s: missing", field)
		}
		return nil
	}
	out := make([]Observation, 0, len(*list))
	for i, o := range *list {
		f := fmt.Sprintf("%s[%d]", field, i)
		obs := Observation{
			Feature:      v.text(f+".feature", o.Feature),
			Evidence:     v.text(f+".evidence", o.Evidence),
			Significance: v.text(f+".significance", o.Significance),
		}
		if o.Region == nil {
			v.addf("%s.region: missing", f)
		} else if r, err := ParseRegion(*o.Region); err != nil {
			v.addf("%s.region: %v", f, err)
		} else {
			obs.Region = r
		}
		out = append(out, obs)
	}
	return out
}

func (v *validator) moles(list []wireMole) []Mole {
	out := make([]Mole, 0, len(list))
	for i, m := range list {
		f := fmt.Sprintf("moles[%d]", i)
		mole := Mole{
			Position: v.text(f+".position", m.Position),
			Meaning:  v.text(f+".meaning", m.Meaning),
		}
		if m.Nature == nil {
			v.addf("%s.nature: missing", f)
		} else if n, err := ParseMoleNature(*m.Nature); err != nil {
			v.addf("%s.nature: %v", f, err)
		} else {
			mole.Nature = n
		}
		out = append(out, mole)
	}
	return out
}
