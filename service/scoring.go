package services

import (
	"math"
	"strings"

	"github.com/Itish41/ParseGuard/analysis"
	"github.com/Itish41/ParseGuard/models"
)

// Reasons a candidate is dropped before persistence.
const (
	dropEmptyCategory   = "empty_category"
	dropMissingScore    = "missing_score"
	dropMissingConf     = "missing_confidence"
	dropScoreNaN        = "score_not_a_number"
	dropConfidenceRange = "confidence_out_of_range"
)

// scoredCandidate is a candidate that passed validation, with its score
// already normalized.
type scoredCandidate struct {
	Category   string
	Score      int
	Confidence float64
	Reasoning  string
}

// normalizeCandidate validates one candidate. Categories are trimmed and
// truncated, scores rounded half-up and clamped. A non-empty reason means
// the candidate must be dropped.
func normalizeCandidate(c analysis.Candidate) (scoredCandidate, string) {
	category := models.TruncateCategory(strings.TrimSpace(c.Category))
	if category == "" {
		return scoredCandidate{}, dropEmptyCategory
	}
	switch c.Missing {
	case analysis.MissingScore:
		return scoredCandidate{}, dropMissingScore
	case analysis.MissingConfidence:
		return scoredCandidate{}, dropMissingConf
	}
	score, err := models.NormalizeScore(c.RawScore)
	if err != nil {
		return scoredCandidate{}, dropScoreNaN
	}
	if !validConfidence(c.Confidence) {
		return scoredCandidate{}, dropConfidenceRange
	}
	return scoredCandidate{
		Category:   category,
		Score:      score,
		Confidence: c.Confidence,
		Reasoning:  strings.TrimSpace(c.Reasoning),
	}, ""
}

func validConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 1
}

// normalizeCandidates splits a batch into surviving candidates and dropped
// ones. Dropping is never fatal to the batch.
func normalizeCandidates(candidates []analysis.Candidate) ([]scoredCandidate, []models.DroppedCandidate) {
	kept := make([]scoredCandidate, 0, len(candidates))
	var dropped []models.DroppedCandidate
	for _, c := range candidates {
		sc, reason := normalizeCandidate(c)
		if reason != "" {
			droppedCandidatesTotal.WithLabelValues(reason).Inc()
			dropped = append(dropped, models.DroppedCandidate{
				Category: models.TruncateCategory(strings.TrimSpace(c.Category)),
				Reason:   reason,
			})
			continue
		}
		kept = append(kept, sc)
	}
	return kept, dropped
}

// recordableCandidates converts candidates for the stored analysis blob,
// leaving out incomplete ones and values JSON cannot represent.
func recordableCandidates(candidates []analysis.Candidate) []models.AnalysisCandidate {
	out := make([]models.AnalysisCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Missing != "" || !finite(c.RawScore) || !finite(c.Confidence) {
			continue
		}
		out = append(out, models.AnalysisCandidate{
			Category:   c.Category,
			RawScore:   c.RawScore,
			Confidence: c.Confidence,
			Reasoning:  c.Reasoning,
		})
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
