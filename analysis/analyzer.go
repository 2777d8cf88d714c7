// Package analysis asks an external model for risk assessments of a
// document's text.
package analysis

import (
	"context"
	"errors"
)

// Failure kinds returned (wrapped) by analyzers.
var (
	ErrUnavailable     = errors.New("analysis service unavailable")
	ErrTimeout         = errors.New("analysis timed out")
	ErrInvalidResponse = errors.New("analysis returned an invalid response")
)

// Candidate is one assessment proposed by an analyzer. Values are raw:
// scores may be fractional or out of range and are normalized by the caller.
type Candidate struct {
	Category   string  `json:"category"`
	RawScore   float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`

	// Missing names a value the model left out ("score" or "confidence").
	// Such candidates are reported so the caller can drop them with a reason.
	Missing string `json:"missing,omitempty"`
}

// Values an analyzer may report as Missing.
const (
	MissingScore      = "score"
	MissingConfidence = "confidence"
)

// Analyzer turns extracted text into candidate assessments.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Candidate, error)

	// Identifier names the analyzer in assessed_by, e.g. "llm:llama3-8b-8192".
	Identifier() string
}
