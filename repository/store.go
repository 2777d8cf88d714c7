package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Repos() Repositories {
	return reposFor(s.db)
}

func (s *GormStore) InTx(ctx context.Context, fn func(Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
	return classify(err)
}

func reposFor(db *gorm.DB) Repositories {
	return Repositories{
		Compliance: &complianceRepo{db: db},
		Documents:  &documentRepo{db: db},
		RiskScores: &riskScoreRepo{db: db},
		Activity:   &activityRepo{db: db},
	}
}
