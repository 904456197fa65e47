package dto

import "github.com/noah-isme/dismissal-api/internal/models"

// CreateStudentRequest adds a student to the roster.
type CreateStudentRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	Grade int    `json:"grade" validate:"required,min=1,max=6"`
}

// StudentResponse is the public shape of a roster entry.
type StudentResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

// RosterGradeResponse lists the students of one grade.
type RosterGradeResponse struct {
	Grade    int               `json:"grade"`
	Label    string            `json:"label"`
	Students []StudentResponse `json:"students"`
}

// NewStudentResponse maps a student.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{ID: student.ID, Name: student.Name, Grade: student.Grade}
}

// NewStudentResponseSlice maps students in order.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}
	return responses
}
