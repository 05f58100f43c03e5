// Package ics converts schedule events to and from iCalendar documents.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/starford/agenda/internal/models"
)

// PropertyPerson carries the owning person of an exported event.
const PropertyPerson = ical.ComponentProperty("X-AGENDA-PERSON")

// DefaultProdID is written as PRODID when the caller passes none.
const DefaultProdID = "-//agenda//schedule//EN"

var textUnescaper = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n", `\\`, `\`)

// Encode renders events as a VCALENDAR with one VEVENT per event.
// DTSTAMP is taken from stamp so output is reproducible for a given input.
func Encode(events []models.ScheduleEvent, prodID string, stamp time.Time) []byte {
	if prodID == "" {
		prodID = DefaultProdID
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, ev := range events {
		iv := ev.Interval()
		ve := cal.AddEvent(string(ev.ID()))
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(iv.Start)
		ve.SetEndAt(iv.End)
		if ev.Details() != "" {
			ve.SetSummary(ev.Details())
		}
		if ev.PersonID() != "" {
			ve.SetProperty(PropertyPerson, string(ev.PersonID()))
		}
		for _, tag := range ev.Tags() {
			ve.AddProperty(ical.ComponentPropertyCategories, string(tag))
		}
	}
	return []byte(cal.Serialize())
}

// Skip reasons reported by Decode.
var (
	ErrAllDay    = errors.New("all-day event")
	ErrRecurring = errors.New("recurring event")
)

// Decode parses an iCalendar document into schedule events. Events without an
// X-AGENDA-PERSON property are assigned defaultPerson. Times are moved into loc.
//
// All-day and recurring events have no place in an hour-based schedule and are
// skipped with a warning; so are VEVENTs with a missing UID or an empty span.
func Decode(data []byte, defaultPerson models.PersonID, loc *time.Location, logger *slog.Logger) ([]models.ScheduleEvent, error) {
	if len(data) == 0 {
		return nil, errors.New("ics: empty document")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	// The parser unescapes TEXT values, which erases the difference between a
	// list separator and an escaped comma, so CATEGORIES are read raw.
	cats := rawCategories(data)
	events := cal.Events()
	if len(cats) != len(events) {
		cats = nil
	}

	var out []models.ScheduleEvent
	for i, ve := range events {
		var raw []string
		if cats != nil {
			raw = cats[i]
		}
		ev, err := decodeEvent(ve, raw, defaultPerson, loc)
		if err != nil {
			if logger != nil {
				logger.Warn("ics: skipping vevent", slog.String("uid", uid(ve)), slog.String("reason", err.Error()))
			}
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func decodeEvent(ve *ical.VEvent, rawCats []string, defaultPerson models.PersonID, loc *time.Location) (models.ScheduleEvent, error) {
	id := uid(ve)
	if id == "" {
		return models.ScheduleEvent{}, errors.New("missing UID")
	}
	if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
		return models.ScheduleEvent{}, ErrRecurring
	}
	if isAllDay(ve) {
		return models.ScheduleEvent{}, ErrAllDay
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return models.ScheduleEvent{}, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return models.ScheduleEvent{}, fmt.Errorf("DTEND: %w", err)
	}
	iv := models.Interval{Start: start.In(loc), End: end.In(loc)}

	person := defaultPerson
	if p := ve.GetProperty(PropertyPerson); p != nil && p.Value != "" {
		person = models.PersonID(p.Value)
	}
	var details string
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		details = p.Value
	}
	var tags []models.Tag
	if rawCats != nil {
		for _, v := range rawCats {
			for _, part := range splitEscaped(v) {
				if part != "" {
					tags = append(tags, models.Tag(textUnescaper.Replace(part)))
				}
			}
		}
	} else {
		for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
			tags = append(tags, models.Tag(p.Value))
		}
	}
	return models.RestoreEvent(models.EventID(id), iv, person, details, tags)
}

// rawCategories returns the still-escaped CATEGORIES values of every VEVENT in
// document order.
func rawCategories(data []byte) [][]string {
	var (
		out     [][]string
		inEvent bool
	)
	for _, line := range unfold(data) {
		name, value, ok := splitContentLine(line)
		if !ok {
			continue
		}
		switch {
		case strings.EqualFold(name, "BEGIN") && strings.EqualFold(value, "VEVENT"):
			inEvent = true
			out = append(out, []string{})
		case strings.EqualFold(name, "END") && strings.EqualFold(value, "VEVENT"):
			inEvent = false
		case inEvent && strings.EqualFold(name, "CATEGORIES"):
			out[len(out)-1] = append(out[len(out)-1], value)
		}
	}
	return out
}

func unfold(data []byte) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// splitContentLine separates the property name from the value, skipping any
// parameters. Colons inside quoted parameter values do not end the name.
func splitContentLine(line string) (name, value string, ok bool) {
	quoted := false
	nameEnd := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ';':
			if nameEnd < 0 && !quoted {
				nameEnd = i
			}
		case ':':
			if quoted {
				continue
			}
			if nameEnd < 0 {
				nameEnd = i
			}
			return line[:nameEnd], line[i+1:], true
		}
	}
	return "", "", false
}

// splitEscaped splits a TEXT list on commas that are not backslash-escaped.
// The parts keep their escapes.
func splitEscaped(s string) []string {
	var (
		parts   []string
		start   int
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func uid(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}

// isAllDay reports whether DTSTART is a DATE rather than a DATE-TIME.
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
