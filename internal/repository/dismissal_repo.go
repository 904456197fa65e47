package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// DismissalFilter narrows record listings by timestamp (epoch millis, inclusive).
type DismissalFilter struct {
	From *int64
	To   *int64
}

// DismissalUpdate carries the fields staff may change on a record.
type DismissalUpdate struct {
	DismissalMethod string
	Timestamp       int64
}

// DismissalRepository persists the append-only dismissal log.
type DismissalRepository interface {
	List(ctx context.Context, filter DismissalFilter) ([]models.DismissalRecord, error)
	GetByID(ctx context.Context, id string) (models.DismissalRecord, error)
	Append(ctx context.Context, record *models.DismissalRecord) error
	Update(ctx context.Context, id string, update DismissalUpdate) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type dismissalRepository struct {
	db *gorm.DB
}

// NewDismissalRepository constructs the dismissal log repository.
func NewDismissalRepository(db *gorm.DB) DismissalRepository {
	return &dismissalRepository{db: db}
}

// List returns records ordered newest first.
func (r *dismissalRepository) List(ctx context.Context, filter DismissalFilter) ([]models.DismissalRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.DismissalRecord{})
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp <= ?", *filter.To)
	}

	var records []models.DismissalRecord
	if err := query.Order("timestamp DESC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *dismissalRepository) GetByID(ctx context.Context, id string) (models.DismissalRecord, error) {
	var record models.DismissalRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return models.DismissalRecord{}, err
	}
	return record, nil
}

func (r *dismissalRepository) Append(ctx context.Context, record *models.DismissalRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Update writes method and timestamp in a single statement; the last writer wins.
func (r *dismissalRepository) Update(ctx context.Context, id string, update DismissalUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DismissalRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"dismissal_method": update.DismissalMethod,
			"timestamp":        update.Timestamp,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes one record. Deleting a missing id reports false without error.
func (r *dismissalRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.DismissalRecord{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
