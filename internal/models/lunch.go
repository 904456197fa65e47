package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Source is a citation returned alongside a menu.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// LunchData is the resolved menu for one calendar date.
type LunchData struct {
	MenuText string   `json:"menu_text"`
	Sources  []Source `json:"sources"`
}

// LunchCacheEntry persists a generated menu keyed by YYYY-MM-DD.
type LunchCacheEntry struct {
	DateKey   string         `gorm:"type:varchar(10);primaryKey" json:"date_key"`
	MenuText  string         `gorm:"type:text;not null" json:"menu_text"`
	Sources   datatypes.JSON `gorm:"type:json" json:"sources"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName matches the cache collection name.
func (LunchCacheEntry) TableName() string {
	return "lunch_cache"
}

// SetData copies data into the entry, encoding sources as JSON.
func (e *LunchCacheEntry) SetData(data LunchData) error {
	sources := data.Sources
	if sources == nil {
		sources = []Source{}
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	e.MenuText = data.MenuText
	e.Sources = datatypes.JSON(payload)
	return nil
}

// Data decodes the entry back into LunchData.
func (e LunchCacheEntry) Data() (LunchData, error) {
	data := LunchData{MenuText: e.MenuText, Sources: []Source{}}
	if len(e.Sources) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(e.Sources, &data.Sources); err != nil {
		return LunchData{}, err
	}
	return data, nil
}
