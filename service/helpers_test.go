package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Itish41/ParseGuard/analysis"
	"github.com/Itish41/ParseGuard/models"
	"github.com/Itish41/ParseGuard/repository"
	"github.com/Itish41/ParseGuard/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// FixedTime is the clock used by service tests.
var FixedTime = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

const (
	ownerA = "owner-a"
	ownerB = "owner-b"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, data, mimeType)
	return args.String(0), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, text string) ([]analysis.Candidate, error) {
	args := m.Called(ctx, text)
	candidates, _ := args.Get(0).([]analysis.Candidate)
	return candidates, args.Error(1)
}

func (m *MockAnalyzer) Identifier() string { return "mock-model" }

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b.blobs, key)
	return nil
}

// conflictingStore makes the next remaining compare-and-set calls inside
// transactions fail with ErrConflict, or all of them when always is set.
type conflictingStore struct {
	*repository.MemStore
	remaining int32
	always    bool
}

func (s *conflictingStore) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return s.MemStore.InTx(ctx, func(r repository.Repositories) error {
		r.Compliance = &conflictingCompliance{ComplianceRepository: r.Compliance, s: s}
		return fn(r)
	})
}

type conflictingCompliance struct {
	repository.ComplianceRepository
	s *conflictingStore
}

func (c *conflictingCompliance) CompareAndSwap(ctx context.Context, item *models.ComplianceItem, expected time.Time) error {
	if c.s.always || atomic.AddInt32(&c.s.remaining, -1) >= 0 {
		return repository.ErrConflict
	}
	return c.ComplianceRepository.CompareAndSwap(ctx, item, expected)
}

type fixture struct {
	store     repository.Store
	mem       *repository.MemStore
	blobs     *memBlobs
	extractor *MockExtractor
	analyzer  *MockAnalyzer
	lifecycle *LifecycleManager
	engine    *ScoringEngine
	documents *DocumentService
	scores    *RiskScoreService
	dashboard *DashboardService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, repository.NewMemStore())
}

func newFixtureWithStore(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	log := zap.NewNop()
	opts := []Option{WithClock(func() time.Time { return FixedTime }), WithTimeouts(time.Second, time.Second)}

	f := &fixture{
		store:     store,
		blobs:     newMemBlobs(),
		extractor: new(MockExtractor),
		analyzer:  new(MockAnalyzer),
	}
	switch s := store.(type) {
	case *repository.MemStore:
		f.mem = s
	case *conflictingStore:
		f.mem = s.MemStore
	}
	f.lifecycle = NewLifecycleManager(store, log, opts...)
	f.engine = NewScoringEngine(store, f.blobs, f.extractor, f.analyzer, nil, f.lifecycle, log, opts...)
	f.documents = NewDocumentService(store, f.blobs, nil, log, opts...)
	f.scores = NewRiskScoreService(store)
	f.dashboard = NewDashboardService(store, log, opts...)
	return f
}

func (f *fixture) createItem(t *testing.T, owner string, due *time.Time) *models.ComplianceItem {
	t.Helper()
	item, err := f.lifecycle.Create(context.Background(), owner, CreateItemInput{Title: "Quarterly GDPR review", DueDate: due})
	require.NoError(t, err)
	return item
}

func (f *fixture) textDocument(t *testing.T, owner, content string) *models.Document {
	t.Helper()
	doc, err := f.documents.CreateFromText(context.Background(), owner, "policy", content)
	require.NoError(t, err)
	return doc
}

func (f *fixture) pdfDocument(t *testing.T, owner string) *models.Document {
	t.Helper()
	doc, err := f.documents.Upload(context.Background(), owner, UploadInput{
		Filename: "contract.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.4 contract"),
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) manualScore(t *testing.T, owner, itemID, category string, score float64, at time.Time) *ManualScoreResult {
	t.Helper()
	res, err := f.engine.RecordManualScore(context.Background(), owner, ManualScoreInput{
		ComplianceItemID: itemID,
		RiskCategory:     category,
		RiskScore:        &score,
		AssessedBy:       "reviewer@example.com",
		AssessmentDate:   &at,
	})
	require.NoError(t, err)
	return res
}

func timePtr(t time.Time) *time.Time { return &t }

func floatPtr(f float64) *float64 { return &f }
