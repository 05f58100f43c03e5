// Package models defines the domain types for the scheduling engine.
package models

import (
	"fmt"
	"time"

	"github.com/starford/agenda/internal/apperr"
)

// Display layouts shared by Interval.String and parser.ParseSlot.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// Interval is a half-open time range [Start, End) with Start strictly before End.
// The zero value is not a valid interval; build one with NewInterval.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval returns the interval [start, end) or ErrInvalidInterval when
// start is not strictly before end.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("%w: start %s is not before end %s",
			apperr.ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// MustInterval is NewInterval for values known to be valid. It panics otherwise.
func MustInterval(start, end time.Time) Interval {
	iv, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// Valid reports whether Start < End.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Overlaps reports strict open-interval overlap. Shared endpoints do not count.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether t lies in [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Covers reports whether other lies entirely within iv.
func (iv Interval) Covers(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Equal compares both endpoints as instants.
func (iv Interval) Equal(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

// String renders "DD/MM/YYYY HH:MM - HH:MM" for slots within one calendar day
// and "DD/MM/YYYY HH:MM - DD/MM/YYYY HH:MM" otherwise.
func (iv Interval) String() string {
	sy, sm, sd := iv.Start.Date()
	ey, em, ed := iv.End.Date()
	start := iv.Start.Format(DateLayout + " " + TimeLayout)
	if sy == ey && sm == em && sd == ed {
		return start + " - " + iv.End.Format(TimeLayout)
	}
	return start + " - " + iv.End.Format(DateLayout+" "+TimeLayout)
}
