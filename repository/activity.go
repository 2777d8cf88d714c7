package repository

import (
	"context"

	"github.com/Itish41/ParseGuard/models"
	"gorm.io/gorm"
)

type activityRepo struct {
	db *gorm.DB
}

func (r *activityRepo) Recent(ctx context.Context, owner string, limit int) ([]models.Activity, error) {
	var out []models.Activity
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, kind, title, occurred_at FROM (
			SELECT id::text AS id, 'compliance_created' AS kind, title, created_at AS occurred_at
			FROM compliance_items
			WHERE owner = ?
			UNION ALL
			SELECT id::text, 'document_uploaded', filename, uploaded_at
			FROM documents
			WHERE owner = ?
		) AS activity
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, owner, owner, limit).Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
