package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lorekeeper/internal/index"
	"github.com/starford/lorekeeper/internal/models"
)

// EventRequest is the request body for adding or correcting an event.
type EventRequest struct {
	ID       string            `json:"id,omitempty" example:"6f1c..."`
	Date     string            `json:"date" example:"2025-02-14" validate:"required"`
	Title    string            `json:"title" example:"Earned BJJ blue belt" validate:"required"`
	Type     string            `json:"type,omitempty" example:"milestone"`
	Details  string            `json:"details,omitempty"`
	Tags     []string          `json:"tags,omitempty" example:"bjj,martial_arts"`
	Source   string            `json:"source,omitempty" example:"user_entry"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks required fields. Date format is checked by the store.
func (r EventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Tags, validation.Each(validation.Required)),
	)
}

// Event converts the request into a timeline event. An empty source
// becomes "user_entry"; CorrectEvent overrides it with "correction".
func (r EventRequest) Event(defaultSource string) models.TimelineEvent {
	source := r.Source
	if source == "" {
		source = defaultSource
	}
	return models.TimelineEvent{
		ID:       r.ID,
		Date:     r.Date,
		Title:    r.Title,
		Type:     r.Type,
		Details:  r.Details,
		Tags:     r.Tags,
		Source:   source,
		Metadata: r.Metadata,
	}
}

// EventListResponse wraps an event listing.
type EventListResponse struct {
	Events []models.TimelineEvent `json:"events" validate:"required"`
	Total  int                    `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// TagsResponse wraps tag counts.
type TagsResponse struct {
	Tags []index.TagCount `json:"tags" validate:"required"`
}
