// Package repository is the persistence boundary for compliance items,
// documents and risk scores. The gorm store talks to Postgres; MemStore
// implements the same contract in memory for tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Itish41/ParseGuard/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a compare-and-set loses against a
	// concurrent writer or the database aborts a transaction for serialization.
	ErrConflict = errors.New("concurrent modification")

	// ErrConstraint is returned when a CHECK or UNIQUE constraint rejects a row.
	ErrConstraint = errors.New("constraint violation")
)

// ComplianceRepository persists compliance items.
type ComplianceRepository interface {
	Create(ctx context.Context, item *models.ComplianceItem) error
	GetByID(ctx context.Context, id string) (*models.ComplianceItem, error)
	ListByOwner(ctx context.Context, owner string) ([]models.ComplianceItem, error)

	// CompareAndSwap writes every mutable column of item only if the stored
	// updated_at still equals expected. It returns ErrConflict otherwise.
	CompareAndSwap(ctx context.Context, item *models.ComplianceItem, expected time.Time) error

	Delete(ctx context.Context, id string) error

	// CountByStatus counts an owner's items by effective status, treating
	// overdue pending and in-progress items as expired.
	CountByStatus(ctx context.Context, owner string, now time.Time) (map[models.Status]int64, error)
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, owner string) ([]models.Document, error)
	ListByIDs(ctx context.Context, owner string, ids []string) ([]models.Document, error)
	SetFilename(ctx context.Context, id, filename string) error
	SetExtractedText(ctx context.Context, id, text string) error
	SetAnalysis(ctx context.Context, id string, analysis datatypes.JSON) error
	Delete(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, owner string) (total int64, analyzed int64, err error)
}

// RiskScoreRepository persists risk scores. Scores are append-only from the
// engine's point of view; they disappear only with their compliance item.
type RiskScoreRepository interface {
	Create(ctx context.Context, score *models.RiskScore) error
	GetByID(ctx context.Context, id string) (*models.RiskScore, error)
	ListByOwner(ctx context.Context, owner string) ([]models.RiskScore, error)
	ListByComplianceItem(ctx context.Context, itemID string) ([]models.RiskScore, error)

	// ListLatestByCategory returns the newest score per distinct category,
	// ordered by category.
	ListLatestByCategory(ctx context.Context, itemID string) ([]models.RiskScore, error)
}

// ActivityRepository reads the owner's event feed across tables.
type ActivityRepository interface {
	// Recent returns item creations and document uploads, newest first.
	Recent(ctx context.Context, owner string, limit int) ([]models.Activity, error)
}

// Repositories groups the repositories bound to one connection or one
// transaction.
type Repositories struct {
	Compliance ComplianceRepository
	Documents  DocumentRepository
	RiskScores RiskScoreRepository
	Activity   ActivityRepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	// Repos returns repositories that run each call on its own.
	Repos() Repositories

	// InTx runs fn in a single transaction. Any error returned by fn rolls
	// back every write made through the supplied repositories.
	InTx(ctx context.Context, fn func(Repositories) error) error
}

// classify maps driver and gorm errors onto the package sentinels. Both lib/pq
// and pgx errors are recognised so the store works with either driver.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	code := ""
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	}

	switch code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case "23514", "23505": // check_violation, unique_violation
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	case "23503", "22P02": // foreign_key_violation, invalid_text_representation (malformed uuid)
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
