package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/agenda/internal/eventservice"
	"github.com/starford/agenda/internal/models"
)

// BookEventRequest is the request body for booking an event. Give either a
// display slot ("03/01/2024 10:00 - 14:00") or explicit start and end.
type BookEventRequest struct {
	PersonID string     `json:"person_id" example:"alice" validate:"required"`
	Details  string     `json:"details" example:"Dentist"`
	Tags     []string   `json:"tags" example:"health"`
	Slot     string     `json:"slot,omitempty" example:"03/01/2024 10:00 - 14:00"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
}

// Validate checks the request shape; interval semantics are checked by the service.
func (r BookEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PersonID, validation.Required),
		validation.Field(&r.Slot, validation.Required.When(r.Start == nil && r.End == nil).Error("slot or start/end is required")),
		validation.Field(&r.Start, validation.Required.When(r.Slot == "" && r.End != nil), validation.Nil.When(r.Slot != "")),
		validation.Field(&r.End, validation.Required.When(r.Slot == "" && r.Start != nil), validation.Nil.When(r.Slot != "")),
	)
}

func (r BookEventRequest) toService() eventservice.BookRequest {
	req := eventservice.BookRequest{
		PersonID: models.PersonID(r.PersonID),
		Details:  r.Details,
		Tags:     toTags(r.Tags),
		Slot:     r.Slot,
	}
	if r.Start != nil && r.End != nil {
		req.Interval = &models.Interval{Start: *r.Start, End: *r.End}
	}
	return req
}

// UpdateEventRequest is the request body for editing an event. Omitted
// fields keep their current value.
type UpdateEventRequest struct {
	PersonID *string    `json:"person_id,omitempty" example:"alice"`
	Details  *string    `json:"details,omitempty" example:"Dentist (moved)"`
	Tags     *[]string  `json:"tags,omitempty"`
	Slot     *string    `json:"slot,omitempty" example:"04/01/2024 10:00 - 11:00"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
}

// Validate checks the request shape.
func (r UpdateEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PersonID, validation.NilOrNotEmpty),
		validation.Field(&r.Slot, validation.NilOrNotEmpty, validation.Nil.When(r.Start != nil || r.End != nil)),
		validation.Field(&r.Start, validation.Required.When(r.End != nil)),
		validation.Field(&r.End, validation.Required.When(r.Start != nil)),
	)
}

func (r UpdateEventRequest) toService() eventservice.UpdateRequest {
	req := eventservice.UpdateRequest{Details: r.Details, Slot: r.Slot}
	if r.PersonID != nil {
		p := models.PersonID(*r.PersonID)
		req.PersonID = &p
	}
	if r.Tags != nil {
		tags := toTags(*r.Tags)
		req.Tags = &tags
	}
	if r.Start != nil && r.End != nil {
		req.Interval = &models.Interval{Start: *r.Start, End: *r.End}
	}
	return req
}

func toTags(in []string) []models.Tag {
	out := make([]models.Tag, len(in))
	for i, t := range in {
		out[i] = models.Tag(t)
	}
	return out
}

// EventView is the event response type (aliased from the domain layer).
type EventView = models.EventView

// EventListResponse wraps event listings.
type EventListResponse struct {
	Events []EventView `json:"events" validate:"required"`
	Total  int         `json:"total" example:"3" validate:"required"`
}

// ResolveResponse is returned by GET /api/resolve.
type ResolveResponse struct {
	Phrase  string          `json:"phrase" example:"in 2 days" validate:"required"`
	Range   models.Interval `json:"range" validate:"required"`
	Display string          `json:"display" example:"03/01/2024 08:59 - 18:01" validate:"required"`
}

// Availability is the slots response type (aliased from the domain layer).
type Availability = eventservice.Availability

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []eventservice.SearchHit `json:"results" validate:"required"`
}
