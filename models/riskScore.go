package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxCategoryLength bounds RiskScore.RiskCategory; longer labels are truncated.
const MaxCategoryLength = 100

// SystemAssessorPrefix marks scores produced by an analysis collaborator.
const SystemAssessorPrefix = "system:"

// RiskScore is one assessment result linking a compliance item to the
// document, if any, that produced it.
type RiskScore struct {
	ID               string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ComplianceItemID string  `gorm:"type:uuid;not null;index" json:"compliance_item_id"`
	DocumentID       *string `gorm:"type:uuid;index" json:"document_id,omitempty"`
	Owner            string  `gorm:"not null;index" json:"owner"`

	// RiskCategory is a free-form label such as "legal" or "data privacy".
	RiskCategory string `gorm:"size:100;not null" json:"risk_category"`

	// Score is the normalized 0-100 value.
	Score int `gorm:"column:risk_score;not null" json:"risk_score"`

	// RiskLevel is always LevelForScore(Score).
	RiskLevel RiskLevel `gorm:"type:text;not null" json:"risk_level"`

	AssessmentDate time.Time `gorm:"not null" json:"assessment_date"`

	// AssessedBy is a human identifier or "system:<collaborator>".
	AssessedBy string  `json:"assessed_by"`
	Notes      *string `json:"notes,omitempty"`

	AIConfidence *float64 `json:"ai_confidence,omitempty"`
	AIReasoning  *string  `json:"ai_reasoning,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RiskScore) TableName() string { return "risk_scores" }

// BeforeCreate assigns an id and keeps the level consistent with the score.
func (r *RiskScore) BeforeCreate(tx *gorm.DB) error {
	r.PrepareCreate(time.Now())
	return nil
}

// PrepareCreate fills defaults for stores that bypass gorm hooks.
func (r *RiskScore) PrepareCreate(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.RiskLevel = LevelForScore(r.Score)
	if r.AssessmentDate.IsZero() {
		r.AssessmentDate = StorageTime(now)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = StorageTime(now)
	}
	r.UpdatedAt = StorageTime(now)
}

// BeforeUpdate refreshes updated_at on every mutation.
func (r *RiskScore) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedAt = StorageTime(time.Now())
	return nil
}

// Supersedes reports whether r is newer than other within one category:
// later assessment date first, then higher id.
func (r *RiskScore) Supersedes(other *RiskScore) bool {
	if !r.AssessmentDate.Equal(other.AssessmentDate) {
		return r.AssessmentDate.After(other.AssessmentDate)
	}
	return r.ID > other.ID
}

// LatestByCategory keeps only the newest score per distinct category,
// ordered by category.
func LatestByCategory(scores []RiskScore) []RiskScore {
	latest := make(map[string]RiskScore, len(scores))
	for _, s := range scores {
		cur, ok := latest[s.RiskCategory]
		if !ok || s.Supersedes(&cur) {
			latest[s.RiskCategory] = s
		}
	}

	out := make([]RiskScore, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiskCategory < out[j].RiskCategory })
	return out
}

// TruncateCategory cuts a label to MaxCategoryLength runes.
func TruncateCategory(category string) string {
	runes := []rune(category)
	if len(runes) <= MaxCategoryLength {
		return category
	}
	return string(runes[:MaxCategoryLength])
}
