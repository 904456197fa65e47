package dto

import "time"

// StaffLoginRequest carries the shared staff code.
type StaffLoginRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// StaffTokenResponse is returned when the code matched.
type StaffTokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
