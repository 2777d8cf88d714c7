package services

import (
	"context"
	"testing"
	"time"

	"github.com/Itish41/ParseGuard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	past := FixedTime.Add(-time.Hour)
	future := FixedTime.Add(time.Hour)

	tests := []struct {
		name          string
		item          models.ComplianceItem
		latest        []models.RiskScore
		scoreRecorded bool
		wantStatus    models.Status
		wantLevel     models.RiskLevel
	}{
		{
			name:       "no scores keeps level",
			item:       models.ComplianceItem{Status: models.StatusPending, RiskLevel: models.RiskHigh},
			wantStatus: models.StatusPending,
			wantLevel:  models.RiskHigh,
		},
		{
			name: "max across categories",
			item: models.ComplianceItem{Status: models.StatusInProgress, RiskLevel: models.RiskLow},
			latest: []models.RiskScore{
				{RiskCategory: "legal", RiskLevel: models.RiskMedium},
				{RiskCategory: "privacy", RiskLevel: models.RiskCritical},
			},
			wantStatus: models.StatusInProgress,
			wantLevel:  models.RiskCritical,
		},
		{
			name:          "recorded score starts pending item",
			item:          models.ComplianceItem{Status: models.StatusPending, RiskLevel: models.RiskLow},
			latest:        []models.RiskScore{{RiskCategory: "legal", RiskLevel: models.RiskLow}},
			scoreRecorded: true,
			wantStatus:    models.StatusInProgress,
			wantLevel:     models.RiskLow,
		},
		{
			name:          "recorded score keeps completed",
			item:          models.ComplianceItem{Status: models.StatusCompleted, RiskLevel: models.RiskLow},
			latest:        []models.RiskScore{{RiskCategory: "legal", RiskLevel: models.RiskHigh}},
			scoreRecorded: true,
			wantStatus:    models.StatusCompleted,
			wantLevel:     models.RiskHigh,
		},
		{
			name:          "overdue wins over implicit start",
			item:          models.ComplianceItem{Status: models.StatusPending, RiskLevel: models.RiskLow, DueDate: &past},
			latest:        []models.RiskScore{{RiskCategory: "legal", RiskLevel: models.RiskLow}},
			scoreRecorded: true,
			wantStatus:    models.StatusExpired,
			wantLevel:     models.RiskLow,
		},
		{
			name:       "future due date stays open",
			item:       models.ComplianceItem{Status: models.StatusInProgress, RiskLevel: models.RiskLow, DueDate: &future},
			wantStatus: models.StatusInProgress,
			wantLevel:  models.RiskLow,
		},
		{
			name:       "completed never expires",
			item:       models.ComplianceItem{Status: models.StatusCompleted, RiskLevel: models.RiskLow, DueDate: &past},
			wantStatus: models.StatusCompleted,
			wantLevel:  models.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.item, tt.latest, FixedTime, tt.scoreRecorded)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantLevel, got.RiskLevel)
		})
	}
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.lifecycle.Create(ctx, ownerA, CreateItemInput{Title: "  Vendor audit  "})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Vendor audit", item.Title)
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Equal(t, models.RiskLow, item.RiskLevel)
	assert.Equal(t, FixedTime, item.CreatedAt)

	tests := []struct {
		name string
		in   CreateItemInput
	}{
		{"short title", CreateItemInput{Title: "ab"}},
		{"blank title", CreateItemInput{Title: "     "}},
		{"unknown risk level", CreateItemInput{Title: "Vendor audit", RiskLevel: "severe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lifecycle.Create(ctx, ownerA, tt.in)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestLaterScoreSupersedesEarlierInSameCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)

	f.manualScore(t, ownerA, item.ID, "legal", 30, FixedTime.Add(-2*time.Hour))
	res := f.manualScore(t, ownerA, item.ID, "legal", 80, FixedTime.Add(-time.Hour))
	assert.Equal(t, models.RiskCritical, res.Item.RiskLevel)

	// an older assessment recorded later does not supersede
	res = f.manualScore(t, ownerA, item.ID, "legal", 10, FixedTime.Add(-3*time.Hour))
	assert.Equal(t, models.RiskCritical, res.Item.RiskLevel)

	res = f.manualScore(t, ownerA, item.ID, "legal", 10, FixedTime)
	assert.Equal(t, models.RiskLow, res.Item.RiskLevel)

	latest, err := f.scores.ListLatestByCategory(ctx, ownerA, item.ID)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 10, latest[0].Score)
}

func TestRecomputeRiskLevelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)
	f.manualScore(t, ownerA, item.ID, "privacy", 60, FixedTime)

	first, err := f.lifecycle.RecomputeRiskLevel(ctx, ownerA, item.ID)
	require.NoError(t, err)
	second, err := f.lifecycle.RecomputeRiskLevel(ctx, ownerA, item.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RiskHigh, second.RiskLevel)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, first.Status, second.Status)
}

func TestRecomputeWithoutScoresKeepsLevel(t *testing.T) {
	f := newFixture(t)
	item, err := f.lifecycle.Create(context.Background(), ownerA, CreateItemInput{Title: "Board review", RiskLevel: models.RiskMedium})
	require.NoError(t, err)

	got, err := f.lifecycle.RecomputeRiskLevel(context.Background(), ownerA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiskMedium, got.RiskLevel)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestLazyExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	overdue := f.createItem(t, ownerA, timePtr(FixedTime.Add(-time.Minute)))
	open := f.createItem(t, ownerA, timePtr(FixedTime.Add(time.Minute)))

	items, err := f.lifecycle.List(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, items, 2)
	statuses := map[string]models.Status{}
	for _, it := range items {
		statuses[it.ID] = it.Status
	}
	assert.Equal(t, models.StatusExpired, statuses[overdue.ID])
	assert.Equal(t, models.StatusPending, statuses[open.ID])

	// persisted by the list
	stored, err := f.mem.Repos().Compliance.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)

	got, err := f.lifecycle.Get(ctx, ownerA, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
}

func TestGetExpiresOverdueItem(t *testing.T) {
	f := newFixture(t)
	item := f.createItem(t, ownerA, timePtr(FixedTime.Add(-time.Second)))

	got, err := f.lifecycle.Get(context.Background(), ownerA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.True(t, got.UpdatedAt.After(item.UpdatedAt))
}

func TestRecomputeExpiresOverdueItem(t *testing.T) {
	f := newFixture(t)
	item := f.createItem(t, ownerA, timePtr(FixedTime.Add(-time.Second)))

	got, err := f.lifecycle.RecomputeRiskLevel(context.Background(), ownerA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)

	_, err := f.lifecycle.Complete(ctx, ownerA, item.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	started, err := f.lifecycle.Start(ctx, ownerA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)

	_, err = f.lifecycle.Start(ctx, ownerA, item.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := f.lifecycle.Complete(ctx, ownerA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	_, err = f.lifecycle.Transition(ctx, ownerA, item.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.lifecycle.Transition(ctx, ownerA, item.ID, models.StatusExpired)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.lifecycle.Transition(ctx, ownerA, item.ID, "archived")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTransitionOnOverdueItemPersistsExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, timePtr(FixedTime.Add(-time.Hour)))

	_, err := f.lifecycle.Start(ctx, ownerA, item.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.mem.Repos().Compliance.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)
}

func TestCompleteAtCriticalRiskIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)
	res := f.manualScore(t, ownerA, item.ID, "legal", 95, FixedTime)
	require.Equal(t, models.RiskCritical, res.Item.RiskLevel)
	require.Equal(t, models.StatusInProgress, res.Item.Status)

	done, err := f.lifecycle.Complete(ctx, ownerA, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, models.RiskCritical, done.RiskLevel)
}

func TestScoringCompletedItemUpdatesLevelOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)
	_, err := f.lifecycle.Start(ctx, ownerA, item.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Complete(ctx, ownerA, item.ID)
	require.NoError(t, err)

	res := f.manualScore(t, ownerA, item.ID, "financial", 51, FixedTime)
	assert.Equal(t, models.StatusCompleted, res.Item.Status)
	assert.Equal(t, models.RiskHigh, res.Item.RiskLevel)
}

func TestReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, timePtr(FixedTime.Add(-time.Hour)))

	_, err := f.lifecycle.Reopen(ctx, ownerA, item.ID, ReopenInput{Status: models.StatusPending, DueDate: timePtr(FixedTime.Add(24 * time.Hour))})
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending items cannot be reopened")

	expired, err := f.lifecycle.Get(ctx, ownerA, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusExpired, expired.Status)

	_, err = f.lifecycle.Reopen(ctx, ownerA, item.ID, ReopenInput{Status: models.StatusPending})
	assert.ErrorIs(t, err, ErrValidationFailed, "due date still in the past")

	_, err = f.lifecycle.Reopen(ctx, ownerA, item.ID, ReopenInput{Status: models.StatusCompleted, ClearDueDate: true})
	assert.ErrorIs(t, err, ErrValidationFailed)

	reopened, err := f.lifecycle.Reopen(ctx, ownerA, item.ID, ReopenInput{
		Status:  models.StatusInProgress,
		DueDate: timePtr(FixedTime.Add(24 * time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reopened.Status)
	require.NotNil(t, reopened.DueDate)
	assert.True(t, reopened.DueDate.After(FixedTime))

	_, err = f.lifecycle.Complete(ctx, ownerA, item.ID)
	require.NoError(t, err)
	again, err := f.lifecycle.Reopen(ctx, ownerA, item.ID, ReopenInput{Status: models.StatusPending, ClearDueDate: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Nil(t, again.DueDate)
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, timePtr(FixedTime.Add(time.Hour)))

	title := "Renamed review"
	desc := "covers EU suppliers"
	got, err := f.lifecycle.UpdateDetails(ctx, ownerA, item.ID, UpdateItemInput{Title: &title, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, desc, *got.Description)
	assert.Equal(t, models.StatusPending, got.Status)

	got, err = f.lifecycle.UpdateDetails(ctx, ownerA, item.ID, UpdateItemInput{DueDate: timePtr(FixedTime.Add(-time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	short := "no"
	_, err = f.lifecycle.UpdateDetails(ctx, ownerA, item.ID, UpdateItemInput{Title: &short})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestDeleteCascadesScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)
	res := f.manualScore(t, ownerA, item.ID, "legal", 40, FixedTime)

	require.NoError(t, f.lifecycle.Delete(ctx, ownerA, item.ID))

	_, err := f.lifecycle.Get(ctx, ownerA, item.ID)
	assert.ErrorIs(t, err, ErrComplianceItemNotFound)
	_, err = f.scores.Get(ctx, ownerA, res.RiskScore.ID)
	assert.ErrorIs(t, err, ErrRiskScoreNotFound)

	err = f.lifecycle.Delete(ctx, ownerA, item.ID)
	assert.ErrorIs(t, err, ErrComplianceItemNotFound)
}

func TestForeignOwnerSeesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, ownerA, nil)

	_, err := f.lifecycle.Get(ctx, ownerB, item.ID)
	assert.ErrorIs(t, err, ErrComplianceItemNotFound)
	_, err = f.lifecycle.Start(ctx, ownerB, item.ID)
	assert.ErrorIs(t, err, ErrComplianceItemNotFound)
	_, err = f.lifecycle.RecomputeRiskLevel(ctx, ownerB, item.ID)
	assert.ErrorIs(t, err, ErrComplianceItemNotFound)
	assert.ErrorIs(t, f.lifecycle.Delete(ctx, ownerB, item.ID), ErrComplianceItemNotFound)

	items, err := f.lifecycle.List(ctx, ownerB)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = f.scores.ListByComplianceItem(ctx, ownerB, item.ID)
	assert.ErrorIs(t, err, ErrComplianceItemNotFound)
}
