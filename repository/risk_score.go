package repository

import (
	"context"

	"github.com/Itish41/ParseGuard/models"
	"gorm.io/gorm"
)

type riskScoreRepo struct {
	db *gorm.DB
}

func (r *riskScoreRepo) Create(ctx context.Context, score *models.RiskScore) error {
	return classify(r.db.WithContext(ctx).Create(score).Error)
}

func (r *riskScoreRepo) GetByID(ctx context.Context, id string) (*models.RiskScore, error) {
	var score models.RiskScore
	if err := r.db.WithContext(ctx).First(&score, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &score, nil
}

func (r *riskScoreRepo) ListByOwner(ctx context.Context, owner string) ([]models.RiskScore, error) {
	var scores []models.RiskScore
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("assessment_date DESC, id DESC").
		Find(&scores).Error
	return scores, classify(err)
}

func (r *riskScoreRepo) ListByComplianceItem(ctx context.Context, itemID string) ([]models.RiskScore, error) {
	var scores []models.RiskScore
	err := r.db.WithContext(ctx).
		Where("compliance_item_id = ?", itemID).
		Order("assessment_date DESC, id DESC").
		Find(&scores).Error
	return scores, classify(err)
}

func (r *riskScoreRepo) ListLatestByCategory(ctx context.Context, itemID string) ([]models.RiskScore, error) {
	var scores []models.RiskScore
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (risk_category) *
		FROM risk_scores
		WHERE compliance_item_id = ?
		ORDER BY risk_category, assessment_date DESC, id DESC`, itemID).
		Scan(&scores).Error
	return scores, classify(err)
}
