package repository

import (
	"context"
	"time"

	"github.com/Itish41/ParseGuard/models"
	"gorm.io/gorm"
)

type complianceRepo struct {
	db *gorm.DB
}

func (r *complianceRepo) Create(ctx context.Context, item *models.ComplianceItem) error {
	return classify(r.db.WithContext(ctx).Create(item).Error)
}

func (r *complianceRepo) GetByID(ctx context.Context, id string) (*models.ComplianceItem, error) {
	var item models.ComplianceItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &item, nil
}

func (r *complianceRepo) ListByOwner(ctx context.Context, owner string) ([]models.ComplianceItem, error) {
	var items []models.ComplianceItem
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, classify(err)
}

func (r *complianceRepo) CompareAndSwap(ctx context.Context, item *models.ComplianceItem, expected time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.ComplianceItem{}).
		Where("id = ? AND updated_at = ?", item.ID, expected).
		Updates(map[string]interface{}{
			"title":       item.Title,
			"description": item.Description,
			"due_date":    item.DueDate,
			"status":      item.Status,
			"risk_level":  item.RiskLevel,
			"updated_at":  item.UpdatedAt,
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.ComplianceItem{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
			return classify(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (r *complianceRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.ComplianceItem{}, "id = ?", id)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *complianceRepo) CountByStatus(ctx context.Context, owner string, now time.Time) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT CASE
		         WHEN status IN ('pending', 'in_progress') AND due_date IS NOT NULL AND due_date < ? THEN 'expired'
		         ELSE status
		       END AS status,
		       count(*) AS count
		FROM compliance_items
		WHERE owner = ?
		GROUP BY 1`, now.UTC(), owner).Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}

	counts := make(map[models.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
