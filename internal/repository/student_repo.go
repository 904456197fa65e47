package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// StudentRepository persists the roster collection.
type StudentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	GetByID(ctx context.Context, id string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) (bool, error)
	SeedIfEmpty(ctx context.Context, defaults []models.Student) (int, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a roster repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).Order("grade ASC, name ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, "id = ?", id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

// Delete removes a student. A missing id reports false without error.
func (r *studentRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Student{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SeedIfEmpty inserts defaults in one transaction when the roster is empty.
// It returns the number of inserted students, zero when the roster already
// had entries.
func (r *studentRepository) SeedIfEmpty(ctx context.Context, defaults []models.Student) (int, error) {
	if len(defaults) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Student{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		items := make([]models.Student, len(defaults))
		copy(items, defaults)
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		inserted = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// IsNotFound reports whether err is a missing-row error from the store.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
