// Package hours narrows day-granularity ranges to the working-hours window.
//
// The window is 08:59 to 18:01, one minute wider than nominal 09:00-18:00
// office hours on each side. Overlap checks are strict, so an appointment
// starting at 09:00 or ending at 18:00 must still fall strictly inside the
// window to be seen.
package hours

import (
	"time"

	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/parser"
)

const (
	OpenHour    = 8
	OpenMinute  = 59
	CloseHour   = 18
	CloseMinute = 1
)

// Clamp moves the start of iv to 08:59 on its first calendar day and the end
// to 18:01 on the last calendar day iv covers. Clamp(Clamp(x)) == Clamp(x).
func Clamp(iv models.Interval) models.Interval {
	return models.Interval{
		Start: open(iv.Start),
		End:   closing(lastDay(iv)),
	}
}

// Days returns the working-hours window of every calendar day covered by iv,
// in chronological order.
func Days(iv models.Interval) []models.Interval {
	last := lastDay(iv)
	ly, lm, ld := last.Date()
	var out []models.Interval
	for day := iv.Start; ; day = nextDay(day) {
		out = append(out, models.Interval{Start: open(day), End: closing(day)})
		y, m, d := day.Date()
		if y > ly || (y == ly && (m > lm || (m == lm && d >= ld))) {
			break
		}
	}
	return out
}

// ResolveRange resolves phrase relative to now and clamps the result to
// business hours.
func ResolveRange(phrase string, now time.Time) (models.Interval, error) {
	iv, err := parser.Resolve(phrase, now)
	if err != nil {
		return models.Interval{}, err
	}
	return Clamp(iv), nil
}

// lastDay is the calendar day of the last instant inside iv.
func lastDay(iv models.Interval) time.Time {
	if !iv.End.After(iv.Start) {
		return iv.Start
	}
	return iv.End.Add(-time.Nanosecond)
}

func open(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, OpenHour, OpenMinute, 0, 0, t.Location())
}

func closing(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, CloseHour, CloseMinute, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
