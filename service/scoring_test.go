package services

import (
	"math"
	"strings"
	"testing"

	"github.com/Itish41/ParseGuard/analysis"
	"github.com/Itish41/ParseGuard/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		name       string
		in         analysis.Candidate
		wantScore  int
		wantCat    string
		wantReason string
	}{
		{"rounds half up", analysis.Candidate{Category: "legal", RawScore: 24.5, Confidence: 0.5}, 25, "legal", ""},
		{"rounds down", analysis.Candidate{Category: "legal", RawScore: 24.49, Confidence: 0.5}, 24, "legal", ""},
		{"clamps high", analysis.Candidate{Category: "legal", RawScore: 140, Confidence: 1}, 100, "legal", ""},
		{"clamps low", analysis.Candidate{Category: "legal", RawScore: -5, Confidence: 0}, 0, "legal", ""},
		{"clamps infinity", analysis.Candidate{Category: "legal", RawScore: math.Inf(1), Confidence: 1}, 100, "legal", ""},
		{"trims category", analysis.Candidate{Category: "  privacy\n", RawScore: 1, Confidence: 1}, 1, "privacy", ""},
		{"empty category", analysis.Candidate{Category: "   ", RawScore: 50, Confidence: 0.5}, 0, "", dropEmptyCategory},
		{"nan score", analysis.Candidate{Category: "legal", RawScore: math.NaN(), Confidence: 0.5}, 0, "", dropScoreNaN},
		{"confidence above one", analysis.Candidate{Category: "legal", RawScore: 50, Confidence: 1.01}, 0, "", dropConfidenceRange},
		{"negative confidence", analysis.Candidate{Category: "legal", RawScore: 50, Confidence: -0.01}, 0, "", dropConfidenceRange},
		{"nan confidence", analysis.Candidate{Category: "legal", RawScore: 50, Confidence: math.NaN()}, 0, "", dropConfidenceRange},
		{"missing score", analysis.Candidate{Category: "legal", Confidence: 0.5, Missing: analysis.MissingScore}, 0, "", dropMissingScore},
		{"missing confidence", analysis.Candidate{Category: "legal", RawScore: 50, Missing: analysis.MissingConfidence}, 0, "", dropMissingConf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := normalizeCandidate(tt.in)
			assert.Equal(t, tt.wantReason, reason)
			if tt.wantReason != "" {
				return
			}
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantCat, got.Category)
		})
	}
}

func TestNormalizeCandidateTruncatesCategory(t *testing.T) {
	got, reason := normalizeCandidate(analysis.Candidate{
		Category:   strings.Repeat("é", models.MaxCategoryLength+1),
		RawScore:   10,
		Confidence: 0.5,
	})
	assert.Empty(t, reason)
	assert.Equal(t, models.MaxCategoryLength, len([]rune(got.Category)))
}

func TestNormalizeCandidatesKeepsOrderAndReportsDrops(t *testing.T) {
	kept, dropped := normalizeCandidates([]analysis.Candidate{
		{Category: "a", RawScore: 10, Confidence: 0.1},
		{Category: "", RawScore: 10, Confidence: 0.1},
		{Category: "b", RawScore: 90, Confidence: 0.9},
		{Category: "c", RawScore: math.NaN(), Confidence: 0.9},
	})

	if assert.Len(t, kept, 2) {
		assert.Equal(t, "a", kept[0].Category)
		assert.Equal(t, "b", kept[1].Category)
	}
	assert.Equal(t, []models.DroppedCandidate{
		{Category: "", Reason: dropEmptyCategory},
		{Category: "c", Reason: dropScoreNaN},
	}, dropped)
}

func TestRecordableCandidatesSkipsNonFinite(t *testing.T) {
	out := recordableCandidates([]analysis.Candidate{
		{Category: "a", RawScore: 10, Confidence: 0.1},
		{Category: "b", RawScore: math.NaN(), Confidence: 0.1},
		{Category: "c", RawScore: math.Inf(-1), Confidence: 0.1},
	})
	assert.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Category)
}
