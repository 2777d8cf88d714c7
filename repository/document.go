package repository

import (
	"context"

	"github.com/Itish41/ParseGuard/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type documentRepo struct {
	db *gorm.DB
}

func (r *documentRepo) Create(ctx context.Context, doc *models.Document) error {
	return classify(r.db.WithContext(ctx).Create(doc).Error)
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &doc, nil
}

func (r *documentRepo) ListByOwner(ctx context.Context, owner string) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("uploaded_at DESC, id DESC").
		Find(&docs).Error
	return docs, classify(err)
}

func (r *documentRepo) ListByIDs(ctx context.Context, owner string, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Where("owner = ? AND id IN ?", owner, ids).
		Find(&docs).Error
	return docs, classify(err)
}

func (r *documentRepo) SetFilename(ctx context.Context, id, filename string) error {
	return r.updateColumn(ctx, id, "filename", filename)
}

func (r *documentRepo) SetExtractedText(ctx context.Context, id, text string) error {
	return r.updateColumn(ctx, id, "extracted_text", text)
}

func (r *documentRepo) SetAnalysis(ctx context.Context, id string, analysis datatypes.JSON) error {
	return r.updateColumn(ctx, id, "ai_analysis", analysis)
}

func (r *documentRepo) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) CountByOwner(ctx context.Context, owner string) (int64, int64, error) {
	var total, analyzed int64
	db := r.db.WithContext(ctx).Model(&models.Document{})
	if err := db.Where("owner = ?", owner).Count(&total).Error; err != nil {
		return 0, 0, classify(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("owner = ? AND ai_analysis IS NOT NULL", owner).
		Count(&analyzed).Error; err != nil {
		return 0, 0, classify(err)
	}
	return total, analyzed, nil
}
