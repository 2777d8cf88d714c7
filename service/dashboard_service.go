package services

import (
	"context"
	"math"

	"github.com/Itish41/ParseGuard/models"
	"github.com/Itish41/ParseGuard/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardStats summarizes an owner's compliance posture.
type DashboardStats struct {
	TotalItems        int64   `json:"total_compliance_items"`
	PendingItems      int64   `json:"pending_items"`
	InProgressItems   int64   `json:"in_progress_items"`
	CompletedItems    int64   `json:"completed_items"`
	ExpiredItems      int64   `json:"expired_items"`
	TotalDocuments    int64   `json:"total_documents"`
	AnalyzedDocuments int64   `json:"analyzed_documents"`
	ComplianceScore   float64 `json:"compliance_score"`
}

// DashboardService aggregates counts for the dashboard.
type DashboardService struct {
	store    repository.Store
	log      *zap.Logger
	settings settings
}

func NewDashboardService(store repository.Store, log *zap.Logger, opts ...Option) *DashboardService {
	return &DashboardService{store: store, log: log.Named("dashboard"), settings: applyOptions(opts)}
}

// Stats counts items by effective status, so overdue items count as
// expired even before a read has persisted that.
func (s *DashboardService) Stats(ctx context.Context, owner string) (*DashboardStats, error) {
	repos := s.store.Repos()
	now := s.settings.now()

	var byStatus map[models.Status]int64
	var totalDocs, analyzedDocs int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = repos.Compliance.CountByStatus(gctx, owner, now)
		return err
	})
	g.Go(func() error {
		var err error
		totalDocs, analyzedDocs, err = repos.Documents.CountByOwner(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("failed to load dashboard stats", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}

	stats := &DashboardStats{
		PendingItems:      byStatus[models.StatusPending],
		InProgressItems:   byStatus[models.StatusInProgress],
		CompletedItems:    byStatus[models.StatusCompleted],
		ExpiredItems:      byStatus[models.StatusExpired],
		TotalDocuments:    totalDocs,
		AnalyzedDocuments: analyzedDocs,
	}
	stats.TotalItems = stats.PendingItems + stats.InProgressItems + stats.CompletedItems + stats.ExpiredItems
	if stats.TotalItems > 0 {
		score := float64(stats.CompletedItems) / float64(stats.TotalItems) * 100
		stats.ComplianceScore = math.Round(score*100) / 100
	}
	return stats, nil
}

// Activity feed bounds. Limits outside 1..MaxActivityLimit fall back to
// DefaultActivityLimit.
const (
	DefaultActivityLimit = 10
	MaxActivityLimit     = 100
)

// RecentActivity returns the owner's latest item creations and document
// uploads, newest first.
func (s *DashboardService) RecentActivity(ctx context.Context, owner string, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > MaxActivityLimit {
		limit = DefaultActivityLimit
	}
	activity, err := s.store.Repos().Activity.Recent(ctx, owner, limit)
	if err != nil {
		s.log.Error("failed to load recent activity", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}
	return nonNil(activity), nil
}
