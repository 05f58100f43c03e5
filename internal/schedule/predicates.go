package schedule

import (
	"iter"

	"github.com/starford/agenda/internal/models"
)

// Everything matches every event.
func Everything(models.ScheduleEvent) bool { return true }

// ForPerson matches events of the given person. An empty id matches everyone.
func ForPerson(id models.PersonID) Predicate {
	return func(ev models.ScheduleEvent) bool {
		return id == "" || ev.PersonID() == id
	}
}

// OverlappingRange matches events whose slot strictly overlaps rng.
func OverlappingRange(rng models.Interval) Predicate {
	return func(ev models.ScheduleEvent) bool {
		return ev.Interval().Overlaps(rng)
	}
}

// WithTag matches events carrying tag.
func WithTag(tag models.Tag) Predicate {
	return func(ev models.ScheduleEvent) bool {
		return ev.HasTag(tag)
	}
}

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(ev models.ScheduleEvent) bool {
		for _, p := range preds {
			if !p(ev) {
				return false
			}
		}
		return true
	}
}

// Intervals collects the slots of the events in seq.
func Intervals(seq iter.Seq[models.ScheduleEvent]) []models.Interval {
	var out []models.Interval
	for ev := range seq {
		out = append(out, ev.Interval())
	}
	return out
}
