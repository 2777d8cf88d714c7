package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Itish41/ParseGuard/analysis"
	"github.com/Itish41/ParseGuard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createItem(t, ownerA, nil)
	f.createItem(t, ownerA, timePtr(FixedTime.Add(-time.Hour)))
	done := f.createItem(t, ownerA, nil)
	_, err := f.lifecycle.Start(ctx, ownerA, done.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Complete(ctx, ownerA, done.ID)
	require.NoError(t, err)
	f.createItem(t, ownerB, nil)

	analyzed := f.textDocument(t, ownerA, "analyzed text")
	f.textDocument(t, ownerA, "fresh text")
	f.analyzer.On("Analyze", mock.Anything, "analyzed text").Return([]analysis.Candidate{}, nil)
	_, err = f.engine.ScoreFromDocument(ctx, ownerA, done.ID, analyzed.ID)
	require.NoError(t, err)

	stats, err := f.dashboard.Stats(ctx, ownerA)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalItems)
	assert.EqualValues(t, 1, stats.PendingItems)
	assert.EqualValues(t, 0, stats.InProgressItems)
	assert.EqualValues(t, 1, stats.CompletedItems)
	assert.EqualValues(t, 1, stats.ExpiredItems, "overdue items count as expired before any read")
	assert.EqualValues(t, 2, stats.TotalDocuments)
	assert.EqualValues(t, 1, stats.AnalyzedDocuments)
	assert.Equal(t, 33.33, stats.ComplianceScore)
}

func TestDashboardStatsEmpty(t *testing.T) {
	f := newFixture(t)
	stats, err := f.dashboard.Stats(context.Background(), ownerA)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Zero(t, stats.ComplianceScore)
}

func (f *fixture) seedItemAt(t *testing.T, owner, title string, at time.Time) *models.ComplianceItem {
	t.Helper()
	item := &models.ComplianceItem{
		Owner:     owner,
		Title:     title,
		RiskLevel: models.RiskLow,
		Status:    models.StatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, f.mem.Repos().Compliance.Create(context.Background(), item))
	return item
}

func (f *fixture) seedDocumentAt(t *testing.T, owner, filename string, at time.Time) *models.Document {
	t.Helper()
	doc := &models.Document{
		Owner:       owner,
		Filename:    filename,
		StoragePath: owner + "/" + filename,
		Size:        1,
		MimeType:    "text/plain",
		UploadedAt:  at,
	}
	require.NoError(t, f.mem.Repos().Documents.Create(context.Background(), doc))
	return doc
}

func TestRecentActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.seedItemAt(t, ownerA, "first item", FixedTime.Add(-3*time.Hour))
	contract := f.seedDocumentAt(t, ownerA, "contract.pdf", FixedTime.Add(-2*time.Hour))
	second := f.seedItemAt(t, ownerA, "second item", FixedTime.Add(-time.Hour))
	notes := f.seedDocumentAt(t, ownerA, "notes.txt", FixedTime)
	f.seedItemAt(t, ownerB, "foreign item", FixedTime.Add(time.Hour))

	activity, err := f.dashboard.RecentActivity(ctx, ownerA, 10)
	require.NoError(t, err)
	require.Len(t, activity, 4)

	assert.Equal(t, models.Activity{ID: notes.ID, Type: models.ActivityDocumentUploaded, Title: "notes.txt", Timestamp: FixedTime}, activity[0])
	assert.Equal(t, models.Activity{ID: second.ID, Type: models.ActivityComplianceCreated, Title: "second item", Timestamp: FixedTime.Add(-time.Hour)}, activity[1])
	assert.Equal(t, contract.ID, activity[2].ID)
	assert.Equal(t, first.ID, activity[3].ID)

	latest, err := f.dashboard.RecentActivity(ctx, ownerA, 2)
	require.NoError(t, err)
	assert.Equal(t, activity[:2], latest)
}

func TestRecentActivityLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		f.seedItemAt(t, ownerA, fmt.Sprintf("item %02d", i), FixedTime.Add(time.Duration(i)*time.Minute))
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero falls back to default", 0, DefaultActivityLimit},
		{"negative falls back to default", -5, DefaultActivityLimit},
		{"above maximum falls back to default", MaxActivityLimit + 1, DefaultActivityLimit},
		{"maximum", MaxActivityLimit, 12},
		{"one", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activity, err := f.dashboard.RecentActivity(ctx, ownerA, tt.limit)
			require.NoError(t, err)
			assert.Len(t, activity, tt.want)
		})
	}
}

func TestRecentActivityEmpty(t *testing.T) {
	f := newFixture(t)
	activity, err := f.dashboard.RecentActivity(context.Background(), ownerA, 10)
	require.NoError(t, err)
	assert.NotNil(t, activity)
	assert.Empty(t, activity)
}
