package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/agenda/internal/apperr"
)

// EventID identifies a ScheduleEvent for its whole lifetime.
type EventID string

// PersonID references a person owned by some other part of the application.
// The engine stores it opaquely and never validates it.
type PersonID string

// Tag is a free-form label attached to an event.
type Tag string

// NewEventID returns a random 128-bit identity.
func NewEventID() EventID {
	return EventID(uuid.NewString())
}

// ScheduleEvent is an immutable booked slot for a person.
// Every field is set once by NewEvent or RestoreEvent; edits replace the record.
type ScheduleEvent struct {
	id       EventID
	interval Interval
	personID PersonID
	details  string
	tags     []Tag
}

// NewEvent builds an event with a fresh identity.
func NewEvent(iv Interval, personID PersonID, details string, tags []Tag) (ScheduleEvent, error) {
	return RestoreEvent(NewEventID(), iv, personID, details, tags)
}

// RestoreEvent builds an event carrying a caller-supplied identity, e.g. when
// loading persisted records or replacing an event in place.
func RestoreEvent(id EventID, iv Interval, personID PersonID, details string, tags []Tag) (ScheduleEvent, error) {
	if id == "" {
		return ScheduleEvent{}, fmt.Errorf("models: event id is empty")
	}
	if !iv.Valid() {
		return ScheduleEvent{}, fmt.Errorf("%w: %s - %s", apperr.ErrInvalidInterval,
			iv.Start.Format(DateLayout+" "+TimeLayout), iv.End.Format(DateLayout+" "+TimeLayout))
	}
	return ScheduleEvent{
		id:       id,
		interval: iv,
		personID: personID,
		details:  details,
		tags:     normalizeTags(tags),
	}, nil
}

// normalizeTags copies, trims, deduplicates and sorts tags.
func normalizeTags(tags []Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		t = Tag(strings.TrimSpace(string(t)))
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (e ScheduleEvent) ID() EventID        { return e.id }
func (e ScheduleEvent) Interval() Interval { return e.interval }
func (e ScheduleEvent) PersonID() PersonID { return e.personID }
func (e ScheduleEvent) Details() string    { return e.details }

// Tags returns a copy; mutating it does not affect the event.
func (e ScheduleEvent) Tags() []Tag {
	return slices.Clone(e.tags)
}

// HasTag reports whether the event carries tag t.
func (e ScheduleEvent) HasTag(t Tag) bool {
	_, ok := slices.BinarySearch(e.tags, t)
	return ok
}

// SameEvent reports identity equality; attributes are not compared.
func (e ScheduleEvent) SameEvent(other ScheduleEvent) bool {
	return e.id == other.id
}

// IsZero reports whether e was never constructed.
func (e ScheduleEvent) IsZero() bool {
	return e.id == ""
}

func (e ScheduleEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "appointment %s for person %s at %s", e.id, e.personID, e.interval)
	if e.details != "" {
		fmt.Fprintf(&b, ": %s", e.details)
	}
	if len(e.tags) > 0 {
		b.WriteString(" [")
		for i, t := range e.tags {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(string(t))
		}
		b.WriteString("]")
	}
	return b.String()
}

// EventView is the serialisable projection of a ScheduleEvent.
type EventView struct {
	ID       EventID   `json:"id"`
	PersonID PersonID  `json:"person_id"`
	Details  string    `json:"details"`
	Tags     []Tag     `json:"tags"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Display  string    `json:"display"`
}

// View returns the serialisable projection of e.
func (e ScheduleEvent) View() EventView {
	return EventView{
		ID:       e.id,
		PersonID: e.personID,
		Details:  e.details,
		Tags:     e.Tags(),
		Start:    e.interval.Start,
		End:      e.interval.End,
		Display:  e.interval.String(),
	}
}
