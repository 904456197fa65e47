package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Grade bounds for the roster.
const (
	MinGrade = 1
	MaxGrade = 6
)

// Student is one enrolled child on the roster.
type Student struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null;index:idx_students_grade_name,priority:2" json:"name"`
	Grade     int       `gorm:"not null;index:idx_students_grade_name,priority:1" json:"grade"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque identifier when none was supplied.
func (s *Student) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
