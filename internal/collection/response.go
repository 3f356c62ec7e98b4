package collection

import (
	"encoding/json"
	"strings"
	"time"

	"collections/internal/models"
)

// ItemResponse is the external shape of a stored item: delimited columns come
// back as lists and metadata as a parsed structure.
type ItemResponse struct {
	ID               string    `json:"id"`
	ExternalID       string    `json:"externalId"`
	MuseumID         string    `json:"museumId"`
	Title            string    `json:"title"`
	Artist           *string   `json:"artist"`
	Year             *int      `json:"year"`
	Description      *string   `json:"description"`
	ImageURL         *string   `json:"imageUrl"`
	AdditionalImages []string  `json:"additionalImages"`
	Metadata         any       `json:"metadata"`
	AIKeywords       []string  `json:"aiKeywords"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func ToItemResponse(item models.CollectionItem) ItemResponse {
	var metadata any
	if len(item.Metadata) > 0 {
		if err := json.Unmarshal(item.Metadata, &metadata); err != nil {
			metadata = nil
		}
	}
	return ItemResponse{
		ID:               item.ID,
		ExternalID:       item.ExternalID,
		MuseumID:         item.MuseumID,
		Title:            item.Title,
		Artist:           item.Artist,
		Year:             item.Year,
		Description:      item.Description,
		ImageURL:         item.ImageURL,
		AdditionalImages: splitStored(item.AdditionalImages),
		Metadata:         metadata,
		AIKeywords:       splitStored(item.AIKeywords),
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

func toItemResponses(items []models.CollectionItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToItemResponse(item))
	}
	return out
}

func splitStored(s *string) []string {
	if s == nil || *s == "" {
		return []string{}
	}
	return strings.Split(*s, ",")
}
