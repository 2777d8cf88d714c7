package services

import (
	"context"

	"github.com/Itish41/ParseGuard/models"
	"github.com/Itish41/ParseGuard/repository"
)

// RiskScoreService serves read access to risk scores. Scores are written
// only by the ScoringEngine.
type RiskScoreService struct {
	store repository.Store
}

func NewRiskScoreService(store repository.Store) *RiskScoreService {
	return &RiskScoreService{store: store}
}

func (s *RiskScoreService) Get(ctx context.Context, owner, id string) (*models.RiskScore, error) {
	ids := map[string]string{"risk_score_id": id}
	score, err := s.store.Repos().RiskScores.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrRiskScoreNotFound, ids)
	}
	if score.Owner != owner {
		return nil, newError(ErrRiskScoreNotFound, ids, nil)
	}
	return score, nil
}

func (s *RiskScoreService) List(ctx context.Context, owner string) ([]models.RiskScore, error) {
	scores, err := s.store.Repos().RiskScores.ListByOwner(ctx, owner)
	return nonNil(scores), err
}

// ListByComplianceItem returns the full history for one item, newest first.
func (s *RiskScoreService) ListByComplianceItem(ctx context.Context, owner, itemID string) ([]models.RiskScore, error) {
	repos := s.store.Repos()
	if _, err := loadOwned(ctx, repos, owner, itemID); err != nil {
		return nil, err
	}
	scores, err := repos.RiskScores.ListByComplianceItem(ctx, itemID)
	return nonNil(scores), err
}

// ListLatestByCategory returns the scores that currently determine the
// item's risk level.
func (s *RiskScoreService) ListLatestByCategory(ctx context.Context, owner, itemID string) ([]models.RiskScore, error) {
	repos := s.store.Repos()
	if _, err := loadOwned(ctx, repos, owner, itemID); err != nil {
		return nil, err
	}
	scores, err := repos.RiskScores.ListLatestByCategory(ctx, itemID)
	return nonNil(scores), err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
