package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dismissal methods offered by the student picker.
const (
	MethodSchoolBus = "통학차"
	MethodEduTaxi   = "에듀택시"
	MethodCityBus   = "시내버스"
	MethodStudyRoom = "공부방 차량"
	MethodParentCar = "부모님 차량"
	MethodWalk      = "도보"
)

// DismissalMethods lists the accepted methods in display order.
var DismissalMethods = []string{
	MethodSchoolBus,
	MethodEduTaxi,
	MethodCityBus,
	MethodStudyRoom,
	MethodParentCar,
	MethodWalk,
}

// IsDismissalMethod reports whether method is one of DismissalMethods.
func IsDismissalMethod(method string) bool {
	for _, m := range DismissalMethods {
		if m == method {
			return true
		}
	}
	return false
}

// DismissalRecord is one logged event of a student leaving school.
// StudentName, Grade and Message are fixed at creation; staff edits touch
// DismissalMethod and Timestamp only.
type DismissalRecord struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	StudentID       *string   `gorm:"type:varchar(36);index" json:"student_id,omitempty"`
	StudentName     string    `gorm:"size:64;not null" json:"student_name"`
	Grade           int       `gorm:"not null" json:"grade"`
	DismissalMethod string    `gorm:"size:32;not null" json:"dismissal_method"`
	Timestamp       int64     `gorm:"not null;index:idx_dismissals_timestamp,sort:desc" json:"timestamp"`
	Message         string    `gorm:"type:text" json:"message"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName keeps the collection name used by the original store.
func (DismissalRecord) TableName() string {
	return "dismissals"
}

// BeforeCreate assigns an opaque identifier when none was supplied.
func (r *DismissalRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Time returns the dismissal timestamp in loc.
func (r DismissalRecord) Time(loc *time.Location) time.Time {
	return time.UnixMilli(r.Timestamp).In(loc)
}
