package dto

import "github.com/noah-isme/dismissal-api/internal/models"

// LunchFallbackText is shown when the lookup chain failed.
const LunchFallbackText = "급식 정보를 가져오지 못했습니다."

// LunchResponse is the menu for one date.
type LunchResponse struct {
	Date     string          `json:"date"`
	MenuText string          `json:"menu_text"`
	Sources  []models.Source `json:"sources"`
	Tier     string          `json:"tier,omitempty"`
	Fallback bool            `json:"fallback"`
}
