package collection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"collections/internal/models"
)

var ErrNotFound = errors.New("item not found")

type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	}
	return "unknown"
}

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.CollectionItem, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*models.CollectionItem, error) {
	return r.first(ctx, "external_id = ?", externalID)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.CollectionItem, error) {
	var item models.CollectionItem
	if err := r.db.WithContext(ctx).Where(query, arg).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Upsert writes item keyed by ExternalID and reports whether the row was
// created or updated. On update the stored ID and CreatedAt are kept, and a nil
// AIKeywords leaves the stored keywords alone. item is filled in with the
// persisted state.
func (r *Repository) Upsert(ctx context.Context, item *models.CollectionItem) (Outcome, error) {
	if len(item.Metadata) == 0 {
		// the JSON scanner rejects SQL NULL
		item.Metadata = datatypes.JSON("null")
	}
	existing, err := r.FindByExternalID(ctx, item.ExternalID)
	switch {
	case errors.Is(err, ErrNotFound):
		err = r.create(ctx, item)
		if err == nil {
			return OutcomeCreated, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, err
		}
		// lost a race with a concurrent insert of the same natural key
		if existing, err = r.FindByExternalID(ctx, item.ExternalID); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	}

	if err := r.update(ctx, existing, item); err != nil {
		return 0, err
	}
	return OutcomeUpdated, nil
}

func (r *Repository) create(ctx context.Context, item *models.CollectionItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := r.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) update(ctx context.Context, existing, item *models.CollectionItem) error {
	now := r.now()
	updates := map[string]any{
		"museum_id":         item.MuseumID,
		"title":             item.Title,
		"artist":            item.Artist,
		"year":              item.Year,
		"description":       item.Description,
		"image_url":         item.ImageURL,
		"additional_images": item.AdditionalImages,
		"metadata":          item.Metadata,
		"updated_at":        now,
	}
	if item.AIKeywords != nil {
		updates["ai_keywords"] = item.AIKeywords
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = now
	if item.AIKeywords == nil {
		item.AIKeywords = existing.AIKeywords
	}
	return nil
}

func (r *Repository) UpdateKeywords(ctx context.Context, id, keywords string) (*models.CollectionItem, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"ai_keywords": keywords, "updated_at": r.now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Page returns one newest-first page and the total row count.
func (r *Repository) Page(ctx context.Context, offset, limit int) ([]models.CollectionItem, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.CollectionItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.CollectionItem, 0, limit)
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
