package ics

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/agenda/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func sample(t *testing.T) []models.ScheduleEvent {
	t.Helper()
	start := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)
	a, err := models.NewEvent(models.MustInterval(start, start.Add(time.Hour)), "alice", "Dentist", []models.Tag{"health", "personal"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := models.NewEvent(models.MustInterval(start.Add(4*time.Hour), start.Add(5*time.Hour)), "bob", "Standup", nil)
	if err != nil {
		t.Fatal(err)
	}
	return []models.ScheduleEvent{a, b}
}

func TestEncodeDecode(t *testing.T) {
	events := sample(t)
	data := Encode(events, "", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(string(data), "BEGIN:VEVENT") || !strings.Contains(string(data), DefaultProdID) {
		t.Fatalf("unexpected document:\n%s", data)
	}

	loc := time.FixedZone("UTC+2", 2*3600)
	got, err := Decode(data, "fallback", loc, quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d events, want 2", len(got))
	}
	for i, ev := range got {
		want := events[i]
		if ev.ID() != want.ID() {
			t.Errorf("[%d] id = %q, want %q", i, ev.ID(), want.ID())
		}
		if !ev.Interval().Equal(want.Interval()) {
			t.Errorf("[%d] interval = %s, want %s", i, ev.Interval(), want.Interval())
		}
		if ev.Interval().Start.Location() != loc {
			t.Errorf("[%d] location = %v", i, ev.Interval().Start.Location())
		}
		if ev.PersonID() != want.PersonID() || ev.Details() != want.Details() {
			t.Errorf("[%d] = %v, want %v", i, ev, want)
		}
	}
	if !got[0].HasTag("health") || !got[0].HasTag("personal") {
		t.Errorf("tags = %v", got[0].Tags())
	}
}

func TestDecode_DefaultPerson(t *testing.T) {
	doc := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:evt-1",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240103T090000Z",
		"DTEND:20240103T100000Z",
		"SUMMARY:Review",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	got, err := Decode([]byte(doc), "carol", time.UTC, quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 || got[0].PersonID() != "carol" || got[0].ID() != "evt-1" {
		t.Fatalf("got %v", got)
	}
}

func TestDecode_SkipsAllDayRecurringAndBroken(t *testing.T) {
	doc := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:all-day",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;VALUE=DATE:20240103",
		"DTEND;VALUE=DATE:20240104",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240103T090000Z",
		"DTEND:20240103T100000Z",
		"RRULE:FREQ=WEEKLY",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:empty",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240103T090000Z",
		"DTEND:20240103T090000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240103T110000Z",
		"DTEND:20240103T120000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	got, err := Decode([]byte(doc), "p", time.UTC, quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "ok" {
		t.Fatalf("got %v, want only the timed event", got)
	}
}

func TestDecode_Empty(t *testing.T) {
	if _, err := Decode(nil, "p", time.UTC, quiet); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestEncodeDecode_EscapedText(t *testing.T) {
	start := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)
	ev, err := models.NewEvent(models.MustInterval(start, start.Add(time.Hour)), "alice", `x, y; z \ w \n`, []models.Tag{"a,b", "c;d", `e\f`})
	if err != nil {
		t.Fatal(err)
	}
	data := Encode([]models.ScheduleEvent{ev}, "", start)
	got, err := Decode(data, "fallback", time.UTC, quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("decoded %d events, want 1", len(got))
	}
	if got[0].Details() != ev.Details() {
		t.Errorf("details = %q, want %q", got[0].Details(), ev.Details())
	}
	tags := got[0].Tags()
	want := ev.Tags()
	if len(tags) != len(want) {
		t.Fatalf("tags = %q, want %q", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestDecode_CategoryList(t *testing.T) {
	doc := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:evt-1",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240103T090000Z",
		"DTEND:20240103T100000Z",
		`CATEGORIES;LANGUAGE=en:work,rock\, paper,`,
		" travel",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	got, err := Decode([]byte(doc), "carol", time.UTC, quiet)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("decoded %d events, want 1", len(got))
	}
	for _, tag := range []models.Tag{"work", "rock, paper", "travel"} {
		if !got[0].HasTag(tag) {
			t.Errorf("missing tag %q in %q", tag, got[0].Tags())
		}
	}
	if n := len(got[0].Tags()); n != 3 {
		t.Errorf("got %d tags, want 3", n)
	}
}

func TestSplitEscaped(t *testing.T) {
	got := splitEscaped(`a\,b,c\\,d`)
	want := []string{`a\,b`, `c\\`, "d"}
	if len(got) != len(want) {
		t.Fatalf("splitEscaped = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
