package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is an uploaded artifact tied to one owner.
type Document struct {
	// ID is a unique identifier, stored as a UUID.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	Owner string `gorm:"not null;index" json:"owner"`

	// Filename is the original name supplied on upload.
	Filename string `gorm:"not null" json:"filename"`

	// StoragePath is the key returned by the blob store.
	StoragePath string `gorm:"not null" json:"storage_path"`

	Size     int64  `gorm:"not null" json:"size"`
	MimeType string `gorm:"not null" json:"mime_type"`

	// ExtractedText is populated by the scoring engine after a successful
	// extraction. Re-extraction overwrites it.
	ExtractedText *string `json:"extracted_text,omitempty"`

	// AIAnalysis holds the last analysis result as a versioned JSON blob,
	// see Analysis.
	AIAnalysis datatypes.JSON `gorm:"type:jsonb" json:"ai_analysis,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
}

func (Document) TableName() string { return "documents" }

// BeforeCreate assigns an id and upload time when the caller has not.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	d.PrepareCreate(time.Now())
	return nil
}

// PrepareCreate fills defaults for stores that bypass gorm hooks.
func (d *Document) PrepareCreate(now time.Time) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = StorageTime(now)
	}
}

// HasExtractedText reports whether extraction already ran.
func (d *Document) HasExtractedText() bool {
	return d.ExtractedText != nil && *d.ExtractedText != ""
}

// HasAnalysis reports whether an analysis blob is stored.
func (d *Document) HasAnalysis() bool {
	return len(d.AIAnalysis) > 0 && string(d.AIAnalysis) != "null"
}
