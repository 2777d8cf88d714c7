package models

import "time"

// ActivityType names the kind of event in the activity feed.
type ActivityType string

const (
	ActivityComplianceCreated ActivityType = "compliance_created"
	ActivityDocumentUploaded  ActivityType = "document_uploaded"
)

// Activity is one entry of an owner's recent activity feed. ID refers to the
// compliance item or document the event is about.
type Activity struct {
	ID        string       `gorm:"column:id" json:"id"`
	Type      ActivityType `gorm:"column:kind" json:"activity_type"`
	Title     string       `gorm:"column:title" json:"title"`
	Timestamp time.Time    `gorm:"column:occurred_at" json:"timestamp"`
}
