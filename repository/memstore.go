package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Itish41/ParseGuard/models"
	"gorm.io/datatypes"
)

// MemStore is an in-memory Store with the same observable semantics as the
// gorm store: transactional rollback, compare-and-set on updated_at,
// cascading deletes and the range checks enforced by the schema.
type MemStore struct {
	mu        sync.Mutex
	items     map[string]models.ComplianceItem
	documents map[string]models.Document
	scores    map[string]models.RiskScore
	now       func() time.Time
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		items:     make(map[string]models.ComplianceItem),
		documents: make(map[string]models.Document),
		scores:    make(map[string]models.RiskScore),
		now:       time.Now,
	}
}

func (s *MemStore) Repos() Repositories {
	return s.repos(false)
}

// InTx holds the store lock for the whole unit of work, so transactions are
// serialized. On error every map is restored from a snapshot.
func (s *MemStore) InTx(ctx context.Context, fn func(Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := cloneMap(s.items)
	documents := cloneMap(s.documents)
	scores := cloneMap(s.scores)

	if err := fn(s.repos(true)); err != nil {
		s.items, s.documents, s.scores = items, documents, scores
		return err
	}
	return nil
}

func (s *MemStore) repos(locked bool) Repositories {
	return Repositories{
		Compliance: &memCompliance{s: s, locked: locked},
		Documents:  &memDocuments{s: s, locked: locked},
		RiskScores: &memRiskScores{s: s, locked: locked},
		Activity:   &memActivity{s: s, locked: locked},
	}
}

// run executes fn under the store lock unless the caller already holds it.
func (s *MemStore) run(locked bool, fn func() error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn()
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memCompliance struct {
	s      *MemStore
	locked bool
}

func (r *memCompliance) Create(ctx context.Context, item *models.ComplianceItem) error {
	return r.s.run(r.locked, func() error {
		item.PrepareCreate(r.s.now())
		if !item.Status.Valid() || !item.RiskLevel.Valid() || len([]rune(item.Title)) < 3 {
			return fmt.Errorf("%w: compliance item %s", ErrConstraint, item.ID)
		}
		if _, exists := r.s.items[item.ID]; exists {
			return fmt.Errorf("%w: duplicate id %s", ErrConstraint, item.ID)
		}
		r.s.items[item.ID] = *item
		return nil
	})
}

func (r *memCompliance) GetByID(ctx context.Context, id string) (*models.ComplianceItem, error) {
	var out *models.ComplianceItem
	err := r.s.run(r.locked, func() error {
		item, ok := r.s.items[id]
		if !ok {
			return ErrNotFound
		}
		out = &item
		return nil
	})
	return out, err
}

func (r *memCompliance) ListByOwner(ctx context.Context, owner string) ([]models.ComplianceItem, error) {
	var out []models.ComplianceItem
	err := r.s.run(r.locked, func() error {
		for _, item := range r.s.items {
			if item.Owner == owner {
				out = append(out, item)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (r *memCompliance) CompareAndSwap(ctx context.Context, item *models.ComplianceItem, expected time.Time) error {
	return r.s.run(r.locked, func() error {
		cur, ok := r.s.items[item.ID]
		if !ok {
			return ErrNotFound
		}
		if !cur.UpdatedAt.Equal(expected) {
			return ErrConflict
		}
		if !item.Status.Valid() || !item.RiskLevel.Valid() {
			return fmt.Errorf("%w: compliance item %s", ErrConstraint, item.ID)
		}
		cur.Title = item.Title
		cur.Description = item.Description
		cur.DueDate = item.DueDate
		cur.Status = item.Status
		cur.RiskLevel = item.RiskLevel
		cur.UpdatedAt = item.UpdatedAt
		r.s.items[item.ID] = cur
		return nil
	})
}

func (r *memCompliance) Delete(ctx context.Context, id string) error {
	return r.s.run(r.locked, func() error {
		if _, ok := r.s.items[id]; !ok {
			return ErrNotFound
		}
		delete(r.s.items, id)
		for sid, score := range r.s.scores {
			if score.ComplianceItemID == id {
				delete(r.s.scores, sid)
			}
		}
		return nil
	})
}

func (r *memCompliance) CountByStatus(ctx context.Context, owner string, now time.Time) (map[models.Status]int64, error) {
	counts := make(map[models.Status]int64)
	err := r.s.run(r.locked, func() error {
		for _, item := range r.s.items {
			if item.Owner != owner {
				continue
			}
			status := item.Status
			if !status.Terminal() && item.Overdue(now) {
				status = models.StatusExpired
			}
			counts[status]++
		}
		return nil
	})
	return counts, err
}

type memDocuments struct {
	s      *MemStore
	locked bool
}

func (r *memDocuments) Create(ctx context.Context, doc *models.Document) error {
	return r.s.run(r.locked, func() error {
		doc.PrepareCreate(r.s.now())
		if _, exists := r.s.documents[doc.ID]; exists {
			return fmt.Errorf("%w: duplicate id %s", ErrConstraint, doc.ID)
		}
		r.s.documents[doc.ID] = *doc
		return nil
	})
}

func (r *memDocuments) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var out *models.Document
	err := r.s.run(r.locked, func() error {
		doc, ok := r.s.documents[id]
		if !ok {
			return ErrNotFound
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *memDocuments) ListByOwner(ctx context.Context, owner string) ([]models.Document, error) {
	var out []models.Document
	err := r.s.run(r.locked, func() error {
		for _, doc := range r.s.documents {
			if doc.Owner == owner {
				out = append(out, doc)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
				return out[i].UploadedAt.After(out[j].UploadedAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (r *memDocuments) ListByIDs(ctx context.Context, owner string, ids []string) ([]models.Document, error) {
	var out []models.Document
	err := r.s.run(r.locked, func() error {
		for _, id := range ids {
			if doc, ok := r.s.documents[id]; ok && doc.Owner == owner {
				out = append(out, doc)
			}
		}
		return nil
	})
	return out, err
}

func (r *memDocuments) SetFilename(ctx context.Context, id, filename string) error {
	return r.update(id, func(doc *models.Document) { doc.Filename = filename })
}

func (r *memDocuments) SetExtractedText(ctx context.Context, id, text string) error {
	return r.update(id, func(doc *models.Document) { doc.ExtractedText = &text })
}

func (r *memDocuments) SetAnalysis(ctx context.Context, id string, analysis datatypes.JSON) error {
	return r.update(id, func(doc *models.Document) { doc.AIAnalysis = analysis })
}

func (r *memDocuments) update(id string, fn func(*models.Document)) error {
	return r.s.run(r.locked, func() error {
		doc, ok := r.s.documents[id]
		if !ok {
			return ErrNotFound
		}
		fn(&doc)
		r.s.documents[id] = doc
		return nil
	})
}

func (r *memDocuments) Delete(ctx context.Context, id string) error {
	return r.s.run(r.locked, func() error {
		if _, ok := r.s.documents[id]; !ok {
			return ErrNotFound
		}
		delete(r.s.documents, id)
		for sid, score := range r.s.scores {
			if score.DocumentID != nil && *score.DocumentID == id {
				score.DocumentID = nil
				r.s.scores[sid] = score
			}
		}
		return nil
	})
}

func (r *memDocuments) CountByOwner(ctx context.Context, owner string) (int64, int64, error) {
	var total, analyzed int64
	err := r.s.run(r.locked, func() error {
		for _, doc := range r.s.documents {
			if doc.Owner != owner {
				continue
			}
			total++
			if doc.HasAnalysis() {
				analyzed++
			}
		}
		return nil
	})
	return total, analyzed, err
}

type memRiskScores struct {
	s      *MemStore
	locked bool
}

func (r *memRiskScores) Create(ctx context.Context, score *models.RiskScore) error {
	return r.s.run(r.locked, func() error {
		if _, ok := r.s.items[score.ComplianceItemID]; !ok {
			return fmt.Errorf("%w: compliance item %s", ErrNotFound, score.ComplianceItemID)
		}
		if score.DocumentID != nil {
			if _, ok := r.s.documents[*score.DocumentID]; !ok {
				return fmt.Errorf("%w: document %s", ErrNotFound, *score.DocumentID)
			}
		}
		if err := checkRiskScore(score); err != nil {
			return err
		}
		score.PrepareCreate(r.s.now())
		r.s.scores[score.ID] = *score
		return nil
	})
}

func checkRiskScore(score *models.RiskScore) error {
	switch {
	case score.Score < models.MinRiskScore || score.Score > models.MaxRiskScore:
		return fmt.Errorf("%w: risk_score %d out of range", ErrConstraint, score.Score)
	case score.AIConfidence != nil && (*score.AIConfidence < 0 || *score.AIConfidence > 1):
		return fmt.Errorf("%w: ai_confidence %v out of range", ErrConstraint, *score.AIConfidence)
	case score.RiskCategory == "" || len([]rune(score.RiskCategory)) > models.MaxCategoryLength:
		return fmt.Errorf("%w: risk_category length", ErrConstraint)
	}
	return nil
}

func (r *memRiskScores) GetByID(ctx context.Context, id string) (*models.RiskScore, error) {
	var out *models.RiskScore
	err := r.s.run(r.locked, func() error {
		score, ok := r.s.scores[id]
		if !ok {
			return ErrNotFound
		}
		out = &score
		return nil
	})
	return out, err
}

func (r *memRiskScores) ListByOwner(ctx context.Context, owner string) ([]models.RiskScore, error) {
	return r.filter(func(s models.RiskScore) bool { return s.Owner == owner })
}

func (r *memRiskScores) ListByComplianceItem(ctx context.Context, itemID string) ([]models.RiskScore, error) {
	return r.filter(func(s models.RiskScore) bool { return s.ComplianceItemID == itemID })
}

func (r *memRiskScores) ListLatestByCategory(ctx context.Context, itemID string) ([]models.RiskScore, error) {
	scores, err := r.ListByComplianceItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return models.LatestByCategory(scores), nil
}

func (r *memRiskScores) filter(keep func(models.RiskScore) bool) ([]models.RiskScore, error) {
	var out []models.RiskScore
	err := r.s.run(r.locked, func() error {
		for _, score := range r.s.scores {
			if keep(score) {
				out = append(out, score)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Supersedes(&out[j]) })
		return nil
	})
	return out, err
}

type memActivity struct {
	s      *MemStore
	locked bool
}

func (r *memActivity) Recent(ctx context.Context, owner string, limit int) ([]models.Activity, error) {
	var out []models.Activity
	err := r.s.run(r.locked, func() error {
		for _, item := range r.s.items {
			if item.Owner == owner {
				out = append(out, models.Activity{ID: item.ID, Type: models.ActivityComplianceCreated, Title: item.Title, Timestamp: item.CreatedAt})
			}
		}
		for _, doc := range r.s.documents {
			if doc.Owner == owner {
				out = append(out, models.Activity{ID: doc.ID, Type: models.ActivityDocumentUploaded, Title: doc.Filename, Timestamp: doc.UploadedAt})
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Timestamp.Equal(out[j].Timestamp) {
				return out[i].Timestamp.After(out[j].Timestamp)
			}
			return out[i].ID > out[j].ID
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}
