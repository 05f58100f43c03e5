// Package availability computes booked and free sub-intervals of a range.
package availability

import (
	"slices"

	"github.com/starford/agenda/internal/models"
)

// Overlapping returns the booked intervals that strictly overlap rng, sorted by
// start. The sort is stable: equal starts keep their order in booked.
func Overlapping(rng models.Interval, booked []models.Interval) []models.Interval {
	var out []models.Interval
	for _, b := range booked {
		if b.Overlaps(rng) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Interval) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

// FreeSlots returns the gaps of rng not covered by any booked interval, in
// chronological order. Gaps of zero width are omitted; with nothing booked the
// only free slot is rng itself.
//
// Each gap starts at the latest end seen so far, so a booking nested inside an
// earlier, longer one never reopens time that is still taken.
func FreeSlots(rng models.Interval, booked []models.Interval) []models.Interval {
	taken := Overlapping(rng, booked)
	if len(taken) == 0 {
		return []models.Interval{rng}
	}

	var free []models.Interval
	cursor := rng.Start
	for _, b := range taken {
		if cursor.Before(b.Start) {
			free = append(free, models.Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(rng.End) {
		free = append(free, models.Interval{Start: cursor, End: rng.End})
	}
	return free
}

// FreeSlotsByDay applies FreeSlots to each window and concatenates the results.
func FreeSlotsByDay(windows []models.Interval, booked []models.Interval) []models.Interval {
	var free []models.Interval
	for _, w := range windows {
		free = append(free, FreeSlots(w, booked)...)
	}
	return free
}

// Fits reports whether slot lies inside one of the free intervals.
func Fits(slot models.Interval, free []models.Interval) bool {
	return slices.ContainsFunc(free, func(f models.Interval) bool {
		return f.Covers(slot)
	})
}
