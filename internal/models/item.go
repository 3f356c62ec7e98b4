package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MuseumMet    = "met"
	MuseumCustom = "custom"
)

// CollectionItem is a stored artwork. ExternalID is the natural key shared by
// every import path; AdditionalImages and AIKeywords are comma-delimited.
type CollectionItem struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	ExternalID       string         `gorm:"size:191;uniqueIndex;not null" json:"externalId"`
	MuseumID         string         `gorm:"size:32;index" json:"museumId"`
	Title            string         `gorm:"size:500" json:"title"`
	Artist           *string        `gorm:"size:255" json:"artist"`
	Year             *int           `json:"year"`
	Description      *string        `gorm:"type:text" json:"description"`
	ImageURL         *string        `gorm:"size:2000" json:"imageUrl"`
	AdditionalImages *string        `gorm:"type:text" json:"additionalImages"`
	Metadata         datatypes.JSON `gorm:"type:json;not null" json:"metadata"`
	AIKeywords       *string        `gorm:"type:text" json:"aiKeywords"`
	CreatedAt        time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
