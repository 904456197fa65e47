package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// LunchCacheRepository persists generated menus keyed by date.
type LunchCacheRepository interface {
	Get(ctx context.Context, dateKey string) (models.LunchData, bool, error)
	Put(ctx context.Context, dateKey string, data models.LunchData) error
}

type lunchCacheRepository struct {
	db *gorm.DB
}

// NewLunchCacheRepository constructs the lunch cache repository.
func NewLunchCacheRepository(db *gorm.DB) LunchCacheRepository {
	return &lunchCacheRepository{db: db}
}

func (r *lunchCacheRepository) Get(ctx context.Context, dateKey string) (models.LunchData, bool, error) {
	var entry models.LunchCacheEntry
	err := r.db.WithContext(ctx).First(&entry, "date_key = ?", dateKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LunchData{}, false, nil
	}
	if err != nil {
		return models.LunchData{}, false, err
	}

	data, err := entry.Data()
	if err != nil {
		return models.LunchData{}, false, err
	}
	return data, true, nil
}

// Put upserts the entry for dateKey.
func (r *lunchCacheRepository) Put(ctx context.Context, dateKey string, data models.LunchData) error {
	entry := models.LunchCacheEntry{DateKey: dateKey}
	if err := entry.SetData(data); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"menu_text", "sources", "updated_at"}),
	}).Create(&entry).Error
}
