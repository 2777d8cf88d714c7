package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComplianceItem is an obligation tracked for a single owner.
type ComplianceItem struct {
	// ID is a unique identifier, stored as a UUID.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// Owner is the user the item belongs to. Items are never shared.
	Owner string `gorm:"not null;index" json:"owner"`

	Title       string  `gorm:"not null" json:"title"`
	Description *string `json:"description,omitempty"`

	// RiskLevel starts at the baseline chosen on creation and is afterwards
	// derived from the latest risk score per category.
	RiskLevel RiskLevel `gorm:"type:text;not null" json:"risk_level"`

	// Status is driven by the lifecycle manager.
	Status Status `gorm:"type:text;not null" json:"status"`

	// DueDate is compared in UTC.
	DueDate *time.Time `json:"due_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt doubles as the compare-and-set token for recompute.
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (ComplianceItem) TableName() string { return "compliance_items" }

// BeforeCreate assigns an id and timestamps when the caller has not.
func (c *ComplianceItem) BeforeCreate(tx *gorm.DB) error {
	c.prepareCreate(time.Now())
	return nil
}

func (c *ComplianceItem) prepareCreate(now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = StorageTime(now)
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
}

// PrepareCreate is the hook body, exposed for stores that bypass gorm.
func (c *ComplianceItem) PrepareCreate(now time.Time) { c.prepareCreate(now) }

// Overdue reports whether the due date has passed at now, in UTC.
func (c *ComplianceItem) Overdue(now time.Time) bool {
	return c.DueDate != nil && c.DueDate.UTC().Before(now.UTC())
}

// StorageTime normalizes t to the precision postgres keeps for timestamptz,
// so values read back compare equal to the ones written.
func StorageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NextUpdatedAt returns a storage timestamp strictly after prev.
func NextUpdatedAt(prev, now time.Time) time.Time {
	next := StorageTime(now)
	if !next.After(prev) {
		next = prev.Add(time.Microsecond)
	}
	return next
}
