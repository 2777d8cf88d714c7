package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AnalysisVersion is the schema version written into Document.AIAnalysis.
const AnalysisVersion = 1

// Analysis is the structured result of the last analysis run on a document.
// It is stored as JSONB and validated when read back.
type Analysis struct {
	Version    int                 `json:"version"`
	Analyzer   string              `json:"analyzer"`
	AnalyzedAt time.Time           `json:"analyzed_at"`
	Candidates []AnalysisCandidate `json:"candidates"`

	// Dropped lists candidates rejected during validation.
	Dropped []DroppedCandidate `json:"dropped,omitempty"`
}

// AnalysisCandidate is a single assessment as returned by the collaborator,
// before normalization.
type AnalysisCandidate struct {
	Category   string  `json:"category"`
	RawScore   float64 `json:"raw_score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// DroppedCandidate records why a candidate produced no risk score.
type DroppedCandidate struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// Validate checks the blob against the current schema.
func (a *Analysis) Validate() error {
	if a.Version != AnalysisVersion {
		return fmt.Errorf("unsupported analysis version %d", a.Version)
	}
	if a.Analyzer == "" {
		return fmt.Errorf("analysis is missing analyzer identifier")
	}
	if a.AnalyzedAt.IsZero() {
		return fmt.Errorf("analysis is missing analyzed_at")
	}
	return nil
}

// JSON encodes a validated analysis for storage.
func (a *Analysis) JSON() (datatypes.JSON, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.Candidates == nil {
		a.Candidates = []AnalysisCandidate{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	return datatypes.JSON(b), nil
}

// ParseAnalysis decodes and validates a stored analysis blob.
func ParseAnalysis(raw datatypes.JSON) (*Analysis, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("analysis is empty")
	}
	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
