package dto

import (
	"time"

	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

// SubmitCooldown is how long clients disable the submit form after success.
const SubmitCooldown = 2 * time.Second

// SubmitDismissalRequest is a student's dismissal submission. StudentID is
// preferred; StudentName and Grade identify the student when it is absent.
type SubmitDismissalRequest struct {
	StudentID       string `json:"student_id" validate:"omitempty,max=36"`
	StudentName     string `json:"student_name" validate:"required_without=StudentID,omitempty,max=64"`
	Grade           int    `json:"grade" validate:"required_without=StudentID,omitempty,min=1,max=6"`
	DismissalMethod string `json:"dismissal_method" validate:"required,dismissal_method"`
	Hour            int    `json:"hour" validate:"required,oneof=1 2 3 4"`
	Minute          *int   `json:"minute" validate:"required,oneof=0 10 20 30 40 50"`
}

// EditDismissalRequest changes the method and afternoon time of a record.
type EditDismissalRequest struct {
	DismissalMethod string `json:"dismissal_method" validate:"required,dismissal_method"`
	Hour            int    `json:"hour" validate:"required,oneof=1 2 3 4"`
	Minute          *int   `json:"minute" validate:"required,oneof=0 10 20 30 40 50"`
}

// DismissalResponse is the public shape of a dismissal record.
type DismissalResponse struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id,omitempty"`
	StudentName     string    `json:"student_name"`
	Grade           int       `json:"grade"`
	DismissalMethod string    `json:"dismissal_method"`
	Timestamp       int64     `json:"timestamp"`
	DismissedAt     time.Time `json:"dismissed_at"`
	Date            string    `json:"date"`
	TimeLabel       string    `json:"time_label"`
	Message         string    `json:"message"`
}

// SubmitDismissalResponse acknowledges a submission.
type SubmitDismissalResponse struct {
	Record     DismissalResponse `json:"record"`
	CooldownMS int64             `json:"cooldown_ms"`
}

// StudentStatusResponse is one row of the daily status grid.
type StudentStatusResponse struct {
	StudentID  string             `json:"student_id"`
	Name       string             `json:"name"`
	Grade      int                `json:"grade"`
	Dismissed  bool               `json:"dismissed"`
	Duplicates int                `json:"duplicates"`
	Record     *DismissalResponse `json:"record,omitempty"`
}

// GradeStatusResponse groups statuses of one grade.
type GradeStatusResponse struct {
	Grade     int                     `json:"grade"`
	Label     string                  `json:"label"`
	Completed int                     `json:"completed"`
	Students  []StudentStatusResponse `json:"students"`
}

// DailyStatusResponse is the reconciled board for one date.
type DailyStatusResponse struct {
	Date      string                `json:"date"`
	Total     int                   `json:"total"`
	Completed int                   `json:"completed"`
	Editing   string                `json:"editing,omitempty"`
	Grades    []GradeStatusResponse `json:"grades"`
}

// NewDismissalResponse maps a record using loc for date and time labels.
func NewDismissalResponse(record models.DismissalRecord, loc *time.Location) DismissalResponse {
	ts := record.Time(loc)
	studentID := ""
	if record.StudentID != nil {
		studentID = *record.StudentID
	}
	return DismissalResponse{
		ID:              record.ID,
		StudentID:       studentID,
		StudentName:     record.StudentName,
		Grade:           record.Grade,
		DismissalMethod: record.DismissalMethod,
		Timestamp:       record.Timestamp,
		DismissedAt:     ts,
		Date:            reconcile.DateKey(ts),
		TimeLabel:       reconcile.TimeLabel(ts),
		Message:         record.Message,
	}
}

// NewDismissalResponseSlice maps records in order.
func NewDismissalResponseSlice(records []models.DismissalRecord, loc *time.Location) []DismissalResponse {
	responses := make([]DismissalResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewDismissalResponse(record, loc))
	}
	return responses
}

// NewDailyStatusResponse renders statuses grouped by grade.
func NewDailyStatusResponse(day time.Time, statuses []reconcile.Status, loc *time.Location) DailyStatusResponse {
	response := DailyStatusResponse{
		Date:      reconcile.DateKey(day),
		Total:     len(statuses),
		Completed: reconcile.Completed(statuses),
	}

	for _, group := range reconcile.GroupByGrade(statuses) {
		grade := GradeStatusResponse{
			Grade:     group.Grade,
			Label:     reconcile.GradeLabel(group.Grade),
			Completed: reconcile.Completed(group.Statuses),
			Students:  make([]StudentStatusResponse, 0, len(group.Statuses)),
		}
		for _, status := range group.Statuses {
			row := StudentStatusResponse{
				StudentID:  status.Student.ID,
				Name:       status.Student.Name,
				Grade:      status.Student.Grade,
				Dismissed:  status.Dismissed(),
				Duplicates: status.Duplicates,
			}
			if status.Record != nil {
				record := NewDismissalResponse(*status.Record, loc)
				row.Record = &record
			}
			grade.Students = append(grade.Students, row)
		}
		response.Grades = append(response.Grades, grade)
	}

	return response
}
