// Package parser resolves short relative-date phrases ("in 3 days", "next Thu",
// "13/12/2018") into calendar-day ranges.
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/starford/agenda/internal/apperr"
	"github.com/starford/agenda/internal/models"
)

// weekdays is ordered Monday first; the index is the offset from Monday.
var weekdays = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// minWeekdayLen is the shortest accepted weekday abbreviation ("Thu").
const minWeekdayLen = 3

// nearFutureDays is the span covered by "in a few days", "recently" and "soon".
const nearFutureDays = 7

// Resolve turns phrase into a whole-day range relative to now.
//
// The returned interval starts at midnight of the first day and ends at
// midnight after the last day, in now's location. Unrecognised phrases
// yield a *apperr.ParseError; the resolver never falls back to a default date.
func Resolve(phrase string, now time.Time) (models.Interval, error) {
	fields := strings.Fields(phrase)
	if len(fields) == 0 {
		return models.Interval{}, fail(phrase, "empty phrase")
	}
	today := startOfDay(now)

	switch fields[0] {
	case "in":
		return resolveIn(phrase, fields, today)
	case "this", "next":
		return resolveThisOrNext(phrase, fields, today)
	}

	switch strings.Join(fields, " ") {
	case "tomorrow", "tmr":
		return days(today, 1, 1), nil
	case "the day after tomorrow", "the day after tmr":
		return days(today, 2, 1), nil
	case "recently", "soon":
		return days(today, 1, nearFutureDays), nil
	}

	if len(fields) == 1 {
		return resolveLiteral(phrase, fields[0], now.Location())
	}
	return models.Interval{}, fail(phrase, "")
}

// resolveIn handles "in <n> day(s)|week(s)|month(s)" and "in a few days".
func resolveIn(phrase string, fields []string, today time.Time) (models.Interval, error) {
	if len(fields) == 4 && fields[1] == "a" && fields[2] == "few" && fields[3] == "days" {
		return days(today, 1, nearFutureDays), nil
	}
	if len(fields) != 3 {
		return models.Interval{}, fail(phrase, "expected \"in <n> days|weeks|months\"")
	}
	n, err := parseCount(fields[1])
	if err != nil {
		return models.Interval{}, fail(phrase, err.Error())
	}
	switch fields[2] {
	case "day", "days":
		return days(today, n, 1), nil
	case "week", "weeks":
		return week(today, n), nil
	case "month", "months":
		return month(today, n), nil
	}
	return models.Interval{}, fail(phrase, "unknown unit "+strconv.Quote(fields[2]))
}

// resolveThisOrNext handles "this|next week|month|<weekday>".
func resolveThisOrNext(phrase string, fields []string, today time.Time) (models.Interval, error) {
	if len(fields) != 2 {
		return models.Interval{}, fail(phrase, "expected \"this|next <week|month|weekday>\"")
	}
	offset := 0
	if fields[0] == "next" {
		offset = 1
	}
	switch fields[1] {
	case "week":
		return week(today, offset), nil
	case "month":
		return month(today, offset), nil
	}
	wd, ok := weekdayIndex(fields[1])
	if !ok {
		return models.Interval{}, fail(phrase, "unknown weekday "+strconv.Quote(fields[1]))
	}
	monday := mondayOf(today).AddDate(0, 0, 7*offset)
	return days(monday, wd, 1), nil
}

// resolveLiteral parses a DD/MM/YYYY date.
func resolveLiteral(phrase, s string, loc *time.Location) (models.Interval, error) {
	d, err := time.ParseInLocation(models.DateLayout, s, loc)
	if err != nil {
		return models.Interval{}, fail(phrase, "")
	}
	return days(d, 0, 1), nil
}

// ParseSlot turns a chosen slot such as "03/01/2024 10:00 - 14:00" back into
// a concrete interval in loc. It accepts what Interval.String renders.
func ParseSlot(text string, loc *time.Location) (models.Interval, error) {
	date, rest, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok {
		return models.Interval{}, fail(text, "expected \"DD/MM/YYYY HH:MM - HH:MM\"")
	}
	from, to, ok := strings.Cut(rest, "-")
	if !ok {
		return models.Interval{}, fail(text, "expected \"DD/MM/YYYY HH:MM - HH:MM\"")
	}
	layout := models.DateLayout + " " + models.TimeLayout
	start, err := time.ParseInLocation(layout, date+" "+strings.TrimSpace(from), loc)
	if err != nil {
		return models.Interval{}, fail(text, "bad start time")
	}
	to = strings.TrimSpace(to)
	if !strings.Contains(to, " ") {
		to = date + " " + to
	}
	end, err := time.ParseInLocation(layout, to, loc)
	if err != nil {
		return models.Interval{}, fail(text, "bad end time")
	}
	return models.NewInterval(start, end)
}

func parseCount(s string) (int, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// weekdayIndex matches a case-sensitive weekday abbreviation of at least
// three letters ("Thu", "Thur", "Thursday"). "Month" or "thu" do not match.
func weekdayIndex(name string) (int, bool) {
	if len(name) < minWeekdayLen {
		return 0, false
	}
	for i, wd := range weekdays {
		if strings.HasPrefix(wd, name) {
			return i, true
		}
	}
	return 0, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// mondayOf returns midnight of the Monday starting day's week.
func mondayOf(day time.Time) time.Time {
	back := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -back)
}

// days returns the range of n whole days starting offset days after day.
func days(day time.Time, offset, n int) models.Interval {
	start := day.AddDate(0, 0, offset)
	return models.Interval{Start: start, End: start.AddDate(0, 0, n)}
}

// week returns Monday to Sunday of the week offset weeks after day's week.
func week(day time.Time, offset int) models.Interval {
	return days(mondayOf(day), 7*offset, 7)
}

// month returns the first to last day of the month offset months after day's month.
func month(day time.Time, offset int) models.Interval {
	first := time.Date(day.Year(), day.Month()+time.Month(offset), 1, 0, 0, 0, 0, day.Location())
	return models.Interval{Start: first, End: first.AddDate(0, 1, 0)}
}

func fail(phrase, reason string) error {
	return &apperr.ParseError{Phrase: phrase, Reason: reason}
}
