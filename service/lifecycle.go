package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Itish41/ParseGuard/models"
	"github.com/Itish41/ParseGuard/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Evaluate applies the automatic lifecycle rules to item and returns the
// result. It is pure: the caller persists the outcome.
//
//   - risk_level becomes the highest level among latest, or is kept when
//     latest is empty.
//   - a pending item moves to in_progress when scoreRecorded is set.
//   - a pending or in_progress item whose due date has passed expires.
func Evaluate(item models.ComplianceItem, latest []models.RiskScore, now time.Time, scoreRecorded bool) models.ComplianceItem {
	if len(latest) > 0 {
		levels := make([]models.RiskLevel, 0, len(latest))
		for _, s := range latest {
			levels = append(levels, s.RiskLevel)
		}
		item.RiskLevel = models.MaxRiskLevel(levels...)
	}
	if scoreRecorded && item.Status == models.StatusPending {
		item.Status = models.StatusInProgress
	}
	return applyExpiry(item, now)
}

func applyExpiry(item models.ComplianceItem, now time.Time) models.ComplianceItem {
	if !item.Status.Terminal() && item.Overdue(now) {
		item.Status = models.StatusExpired
	}
	return item
}

// LifecycleManager owns compliance item state: creation, user edits,
// explicit transitions and risk level recomputation.
type LifecycleManager struct {
	store    repository.Store
	validate *validator.Validate
	log      *zap.Logger
	settings settings
}

// NewLifecycleManager builds the manager.
func NewLifecycleManager(store repository.Store, log *zap.Logger, opts ...Option) *LifecycleManager {
	return &LifecycleManager{
		store:    store,
		validate: newValidator(),
		log:      log.Named("lifecycle"),
		settings: applyOptions(opts),
	}
}

// CreateItemInput holds the fields a user supplies for a new item.
type CreateItemInput struct {
	Title       string           `json:"title" validate:"required,min=3,max=255"`
	Description *string          `json:"description"`
	RiskLevel   models.RiskLevel `json:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	DueDate     *time.Time       `json:"due_date"`
}

// UpdateItemInput holds user-editable fields. Nil fields are left alone.
type UpdateItemInput struct {
	Title        *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// ReopenInput is an explicit status overwrite of a terminal item.
type ReopenInput struct {
	Status       models.Status `json:"status" validate:"required,oneof=pending in_progress"`
	DueDate      *time.Time    `json:"due_date"`
	ClearDueDate bool          `json:"clear_due_date"`
}

func (m *LifecycleManager) now() time.Time {
	return m.settings.now()
}

func (m *LifecycleManager) Create(ctx context.Context, owner string, in CreateItemInput) (*models.ComplianceItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := m.validate.Struct(in); err != nil {
		return nil, validationError(nil, "%s", describeValidation(err))
	}
	if in.RiskLevel == "" {
		in.RiskLevel = models.RiskLow
	}

	now := models.StorageTime(m.now())
	item := &models.ComplianceItem{
		Owner:       owner,
		Title:       in.Title,
		Description: in.Description,
		RiskLevel:   in.RiskLevel,
		Status:      models.StatusPending,
		DueDate:     utcPtr(in.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Repos().Compliance.Create(ctx, item); err != nil {
		return nil, translate(err, ErrComplianceItemNotFound, nil)
	}

	m.log.Info("compliance item created", zap.String("compliance_item_id", item.ID), zap.String("owner", owner))
	return item, nil
}

// loadOwned fetches an item and hides items of other owners.
func loadOwned(ctx context.Context, repos repository.Repositories, owner, id string) (*models.ComplianceItem, error) {
	item, err := repos.Compliance.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrComplianceItemNotFound, itemIDs(id))
	}
	if item.Owner != owner {
		return nil, newError(ErrComplianceItemNotFound, itemIDs(id), nil)
	}
	return item, nil
}

// save writes next over prev with a fresh updated_at.
func (m *LifecycleManager) save(ctx context.Context, repos repository.Repositories, prev *models.ComplianceItem, next models.ComplianceItem) (*models.ComplianceItem, error) {
	next.UpdatedAt = models.NextUpdatedAt(prev.UpdatedAt, m.now())
	if err := repos.Compliance.CompareAndSwap(ctx, &next, prev.UpdatedAt); err != nil {
		return nil, translate(err, ErrComplianceItemNotFound, itemIDs(prev.ID))
	}
	if prev.Status != next.Status {
		statusTransitionsTotal.WithLabelValues(string(prev.Status), string(next.Status)).Inc()
		m.log.Info("compliance item status changed",
			zap.String("compliance_item_id", prev.ID),
			zap.String("from", string(prev.Status)),
			zap.String("to", string(next.Status)),
		)
	}
	return &next, nil
}

func changed(a, b *models.ComplianceItem) bool {
	return a.Status != b.Status || a.RiskLevel != b.RiskLevel
}

// Get returns the item, expiring it first if its due date has passed.
func (m *LifecycleManager) Get(ctx context.Context, owner, id string) (*models.ComplianceItem, error) {
	var out *models.ComplianceItem
	err := runUnitOfWork(ctx, m.store, m.settings, m.log, "get", itemIDs(id), func(repos repository.Repositories) error {
		item, err := loadOwned(ctx, repos, owner, id)
		if err != nil {
			return err
		}
		next := applyExpiry(*item, m.now())
		if !changed(item, &next) {
			out = item
			return nil
		}
		out, err = m.save(ctx, repos, item, next)
		return err
	})
	return out, err
}

// List returns the owner's items with lazy expiry applied. Expiry is
// persisted per item; an item that loses a concurrent write keeps the
// evaluated status in the response and is persisted on a later read.
func (m *LifecycleManager) List(ctx context.Context, owner string) ([]models.ComplianceItem, error) {
	repos := m.store.Repos()
	items, err := repos.Compliance.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := m.now()
	for i := range items {
		next := applyExpiry(items[i], now)
		if !changed(&items[i], &next) {
			continue
		}
		saved, err := m.save(ctx, repos, &items[i], next)
		switch {
		case err == nil:
			items[i] = *saved
		case errors.Is(err, repository.ErrConflict), errors.Is(err, ErrComplianceItemNotFound):
			m.log.Debug("lazy expiry skipped", zap.String("compliance_item_id", items[i].ID), zap.Error(err))
			items[i] = next
		default:
			return nil, err
		}
	}
	if items == nil {
		items = []models.ComplianceItem{}
	}
	return items, nil
}

// UpdateDetails applies user edits. Status and risk level are never touched
// here except for lazy expiry.
func (m *LifecycleManager) UpdateDetails(ctx context.Context, owner, id string, in UpdateItemInput) (*models.ComplianceItem, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, validationError(itemIDs(id), "%s", describeValidation(err))
	}

	var out *models.ComplianceItem
	err := runUnitOfWork(ctx, m.store, m.settings, m.log, "update", itemIDs(id), func(repos repository.Repositories) error {
		item, err := loadOwned(ctx, repos, owner, id)
		if err != nil {
			return err
		}
		next := *item
		if in.Title != nil {
			next.Title = *in.Title
		}
		if in.Description != nil {
			next.Description = in.Description
		}
		switch {
		case in.ClearDueDate:
			next.DueDate = nil
		case in.DueDate != nil:
			next.DueDate = utcPtr(in.DueDate)
		}
		out, err = m.save(ctx, repos, item, applyExpiry(next, m.now()))
		return err
	})
	return out, err
}

// Delete removes the item and, by cascade, its risk scores.
func (m *LifecycleManager) Delete(ctx context.Context, owner, id string) error {
	return m.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := loadOwned(ctx, repos, owner, id); err != nil {
			return err
		}
		if err := repos.Compliance.Delete(ctx, id); err != nil {
			return translate(err, ErrComplianceItemNotFound, itemIDs(id))
		}
		m.log.Info("compliance item deleted", zap.String("compliance_item_id", id))
		return nil
	})
}

// Start moves a pending item to in_progress.
func (m *LifecycleManager) Start(ctx context.Context, owner, id string) (*models.ComplianceItem, error) {
	return m.Transition(ctx, owner, id, models.StatusInProgress)
}

// Complete moves an in_progress item to completed. Completion is allowed at
// any risk level.
func (m *LifecycleManager) Complete(ctx context.Context, owner, id string) (*models.ComplianceItem, error) {
	return m.Transition(ctx, owner, id, models.StatusCompleted)
}

// allowedTransitions are the explicit moves of the normal API.
var allowedTransitions = map[models.Status]models.Status{
	models.StatusPending:    models.StatusInProgress,
	models.StatusInProgress: models.StatusCompleted,
}

// Transition performs an explicit status change. Expiry is evaluated first,
// so an overdue item is expired (and stays expired) instead of moving.
func (m *LifecycleManager) Transition(ctx context.Context, owner, id string, target models.Status) (*models.ComplianceItem, error) {
	if !target.Valid() {
		return nil, validationError(itemIDs(id), "unknown status %q", target)
	}

	var out *models.ComplianceItem
	var rejected error
	err := runUnitOfWork(ctx, m.store, m.settings, m.log, "transition", itemIDs(id), func(repos repository.Repositories) error {
		rejected = nil
		item, err := loadOwned(ctx, repos, owner, id)
		if err != nil {
			return err
		}

		current := applyExpiry(*item, m.now())
		next := current
		if allowedTransitions[current.Status] == target {
			next.Status = target
		} else {
			rejected = transitionError(itemIDs(id), "cannot move from %s to %s", current.Status, target)
		}

		if !changed(item, &next) {
			out = item
			return nil
		}
		out, err = m.save(ctx, repos, item, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	if target == models.StatusCompleted && out.RiskLevel == models.RiskCritical {
		m.log.Warn("compliance item completed at critical risk", zap.String("compliance_item_id", id))
	}
	return out, nil
}

// Reopen overwrites the status of a completed or expired item. It is the
// only way out of a terminal state. The resulting due date must not have
// passed, otherwise the item would expire again on the next read.
func (m *LifecycleManager) Reopen(ctx context.Context, owner, id string, in ReopenInput) (*models.ComplianceItem, error) {
	if err := m.validate.Struct(in); err != nil {
		return nil, validationError(itemIDs(id), "%s", describeValidation(err))
	}

	var out *models.ComplianceItem
	err := runUnitOfWork(ctx, m.store, m.settings, m.log, "reopen", itemIDs(id), func(repos repository.Repositories) error {
		item, err := loadOwned(ctx, repos, owner, id)
		if err != nil {
			return err
		}
		if !item.Status.Terminal() {
			return transitionError(itemIDs(id), "only completed or expired items can be reopened, item is %s", item.Status)
		}

		next := *item
		next.Status = in.Status
		switch {
		case in.ClearDueDate:
			next.DueDate = nil
		case in.DueDate != nil:
			next.DueDate = utcPtr(in.DueDate)
		}
		if next.Overdue(m.now()) {
			return validationError(itemIDs(id), "due_date must be in the future to reopen")
		}

		out, err = m.save(ctx, repos, item, next)
		return err
	})
	return out, err
}

// RecomputeRiskLevel derives risk_level from the latest score per category
// and re-evaluates expiry in one unit of work.
func (m *LifecycleManager) RecomputeRiskLevel(ctx context.Context, owner, id string) (*models.ComplianceItem, error) {
	var out *models.ComplianceItem
	err := runUnitOfWork(ctx, m.store, m.settings, m.log, "recompute", itemIDs(id), func(repos repository.Repositories) error {
		item, err := loadOwned(ctx, repos, owner, id)
		if err != nil {
			return err
		}
		out, err = m.recompute(ctx, repos, item, false)
		return err
	})
	return out, err
}

// recompute runs inside the caller's transaction. When scoreRecorded is set
// the item is always written so that its updated_at moves and any
// concurrent recompute that did not see these scores fails its
// compare-and-set and retries.
func (m *LifecycleManager) recompute(ctx context.Context, repos repository.Repositories, item *models.ComplianceItem, scoreRecorded bool) (*models.ComplianceItem, error) {
	latest, err := repos.RiskScores.ListLatestByCategory(ctx, item.ID)
	if err != nil {
		return nil, translate(err, ErrComplianceItemNotFound, itemIDs(item.ID))
	}

	next := Evaluate(*item, latest, m.now(), scoreRecorded)
	if !scoreRecorded && !changed(item, &next) {
		return item, nil
	}
	if item.RiskLevel != next.RiskLevel {
		m.log.Info("compliance item risk level changed",
			zap.String("compliance_item_id", item.ID),
			zap.String("from", string(item.RiskLevel)),
			zap.String("to", string(next.RiskLevel)),
			zap.Int("categories", len(latest)),
		)
	}
	return m.save(ctx, repos, item, next)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := models.StorageTime(*t)
	return &u
}
