package index

import (
	"os"
	"slices"
	"testing"
	"time"

	"github.com/starford/agenda/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "agenda-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func event(t *testing.T, person models.PersonID, hour int, details string, tags ...models.Tag) models.ScheduleEvent {
	t.Helper()
	start := time.Date(2024, time.January, 3, hour, 0, 0, 0, time.UTC)
	ev, err := models.NewEvent(models.MustInterval(start, start.Add(time.Hour)), person, details, tags)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func loadIDs(t *testing.T, db *DB) []models.EventID {
	t.Helper()
	events, err := db.LoadAll(time.UTC)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	out := make([]models.EventID, len(events))
	for i, ev := range events {
		out[i] = ev.ID()
	}
	return out
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`).Scan(&count); err != nil {
		t.Fatalf("events table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM imports`).Scan(&count); err != nil {
		t.Fatalf("imports table missing: %v", err)
	}
}

func TestUpsertAndLoad(t *testing.T) {
	db := testDB(t)
	ev := event(t, "alice", 9, "dentist", "health")
	if err := db.Upsert(ev, ""); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	loc := time.FixedZone("UTC+1", 3600)
	got, err := db.LoadAll(loc)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	g := got[0]
	if g.ID() != ev.ID() || g.PersonID() != "alice" || g.Details() != "dentist" || !g.HasTag("health") {
		t.Errorf("loaded %v, want %v", g, ev)
	}
	if !g.Interval().Equal(ev.Interval()) {
		t.Errorf("interval = %s, want %s", g.Interval(), ev.Interval())
	}
	if g.Interval().Start.Location() != loc {
		t.Errorf("location = %v, want %v", g.Interval().Start.Location(), loc)
	}
}

func TestLoadAll_CorruptTags(t *testing.T) {
	db := testDB(t)
	if err := db.Upsert(event(t, "alice", 9, "dentist", "health"), ""); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := db.conn.Exec(`UPDATE events SET tags = 'not json'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadAll(time.UTC); err == nil {
		t.Error("LoadAll accepted an unreadable tags column")
	}
}

func TestUpsertKeepsPosition(t *testing.T) {
	db := testDB(t)
	a := event(t, "p", 9, "a")
	b := event(t, "p", 10, "b")
	_ = db.Upsert(a, "")
	_ = db.Upsert(b, "")

	moved, _ := models.RestoreEvent(a.ID(), b.Interval(), "p", "a moved", nil)
	if err := db.Upsert(moved, ""); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := loadIDs(t, db); !slices.Equal(got, []models.EventID{a.ID(), b.ID()}) {
		t.Errorf("order = %v", got)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	ev := event(t, "p", 9, "gone")
	_ = db.Upsert(ev, "")
	if err := db.Delete(ev.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := loadIDs(t, db); len(got) != 0 {
		t.Errorf("events after delete = %v", got)
	}
	if err := db.Delete("missing"); err != nil {
		t.Errorf("deleting a missing id should be a no-op, got %v", err)
	}
}

func TestReplaceAll(t *testing.T) {
	db := testDB(t)
	_ = db.Upsert(event(t, "p", 9, "old"), "")
	_ = db.ReplaceSource("a.ics", "sum", []models.ScheduleEvent{event(t, "p", 11, "imported")})

	fresh := event(t, "q", 12, "fresh")
	if err := db.ReplaceAll([]models.ScheduleEvent{fresh}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if got := loadIDs(t, db); !slices.Equal(got, []models.EventID{fresh.ID()}) {
		t.Errorf("ids = %v", got)
	}
	sums, _ := db.ImportChecksums()
	if len(sums) != 0 {
		t.Errorf("import records should be cleared, got %v", sums)
	}
}

func TestReplaceSource(t *testing.T) {
	db := testDB(t)
	manual := event(t, "p", 8, "manual")
	_ = db.Upsert(manual, "")

	first := []models.ScheduleEvent{event(t, "p", 9, "one"), event(t, "p", 10, "two")}
	if err := db.ReplaceSource("alice.ics", "c1", first); err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	ids, _ := db.SourceIDs("alice.ics")
	if !slices.Equal(ids, []models.EventID{first[0].ID(), first[1].ID()}) {
		t.Errorf("source ids = %v", ids)
	}

	second := []models.ScheduleEvent{event(t, "p", 14, "three")}
	if err := db.ReplaceSource("alice.ics", "c2", second); err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	if got := loadIDs(t, db); !slices.Equal(got, []models.EventID{manual.ID(), second[0].ID()}) {
		t.Errorf("ids = %v", got)
	}
	sums, _ := db.ImportChecksums()
	if sums["alice.ics"] != "c2" {
		t.Errorf("checksum = %q, want c2", sums["alice.ics"])
	}

	if err := db.DeleteSource("alice.ics"); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	if got := loadIDs(t, db); !slices.Equal(got, []models.EventID{manual.ID()}) {
		t.Errorf("ids after DeleteSource = %v", got)
	}
	sums, _ = db.ImportChecksums()
	if _, ok := sums["alice.ics"]; ok {
		t.Error("import record should be gone")
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	ev := event(t, "alice", 9, "uniqueword appointment")
	_ = db.Upsert(ev, "")
	_ = db.Upsert(event(t, "bob", 10, "something else"), "")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != ev.ID() || results[0].PersonID != "alice" {
		t.Errorf("search results = %+v, want 1 hit for %s", results, ev.ID())
	}
}

func TestSearch_Tags(t *testing.T) {
	db := testDB(t)
	ev := event(t, "alice", 9, "checkup", "dental")
	_ = db.Upsert(ev, "")

	results, err := db.Search("dental", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != ev.ID() {
		t.Errorf("search results = %+v", results)
	}
}
