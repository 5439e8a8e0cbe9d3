// Package database defines the storage contracts for the analysis run log.
package database

import "time"

// Outcome values stored for a run. Failed runs store the error kind instead.
const OutcomeOK = "ok"

// AnalysisRun is one attempt of the analysis pipeline.
type AnalysisRun struct {
	ID           string    `json:"id"`
	Pipeline     string    `json:"pipeline"`
	Provider     string    `json:"provider"`
	Outcome      string    `json:"outcome"`         // OutcomeOK or an apperrors kind
	Score        *int      `json:"score,omitempty"` // nil unless the run succeeded
	Category     string    `json:"category,omitempty"`
	ImageHash    string    `json:"image_hash,omitempty"` // perceptual hash, empty when the image did not decode
	DurationMs   int64     `json:"duration_ms"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cost         float64   `json:"cost"` // in USD
	CreatedAt    time.Time `json:"created_at"`
}

// Succeeded reports whether the run produced a report.
func (r *AnalysisRun) Succeeded() bool {
	return r.Outcome == OutcomeOK
}

// RunStats aggregates the run log.
type RunStats struct {
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	ByOutcome  map[string]int `json:"by_outcome"`
	ByCategory map[string]int `json:"by_category"`
	AvgScore   float64        `json:"avg_score"`
	Images     int            `json:"images"` // distinct image hashes
	TotalCost  float64        `json:"total_cost"`
}
