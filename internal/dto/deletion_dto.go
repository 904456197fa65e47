package dto

import "time"

// Kinds of deletable entities.
const (
	DeletionKindRecord  = "record"
	DeletionKindStudent = "student"
)

// DeletionRequest asks for a confirmation ticket before deleting.
type DeletionRequest struct {
	Kind string `json:"kind" validate:"required,oneof=record student"`
	ID   string `json:"id" validate:"required,max=36"`
}

// DeletionTicketResponse is the first step of a two-step deletion.
type DeletionTicketResponse struct {
	Token     string    `json:"token"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeletionResultResponse reports the outcome of a confirmed deletion.
type DeletionResultResponse struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}
