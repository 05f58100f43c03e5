package importer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/agenda/internal/eventservice"
	"github.com/starford/agenda/internal/ics"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/testutil"
)

func importEnv(t *testing.T) (string, *Importer, *eventservice.Service) {
	t.Helper()
	svc, _ := testutil.TestService(t, testutil.Monday)
	dir, fs := testutil.TestDir(t)
	return dir, New(svc, fs, testutil.QuietLogger()), svc
}

// calendar renders one event per start hour on 03/01/2024.
func calendar(t *testing.T, uidPrefix string, hours ...int) []byte {
	t.Helper()
	var events []models.ScheduleEvent
	for _, h := range hours {
		start := time.Date(2024, time.January, 3, h, 0, 0, 0, time.UTC)
		ev, err := models.RestoreEvent(models.EventID(uidPrefix+"-"+strconv.Itoa(h)),
			models.MustInterval(start, start.Add(time.Hour)), "", "imported", nil)
		if err != nil {
			t.Fatal(err)
		}
		events = append(events, ev)
	}
	return ics.Encode(events, "", testutil.Monday)
}

func personEvents(svc *eventservice.Service, person models.PersonID) []models.ScheduleEvent {
	return svc.List(context.Background(), person)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestPersonFor(t *testing.T) {
	cases := map[string]models.PersonID{
		"alice.ics":        "alice",
		"team/bob.ics":     "bob",
		"carol.backup.ics": "carol.backup",
	}
	for in, want := range cases {
		if got := PersonFor(in); got != want {
			t.Errorf("PersonFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSync_ImportsAndRemoves(t *testing.T) {
	dir, im, svc := importEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "alice.ics"), calendar(t, "a", 9, 11), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	if err := im.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := personEvents(svc, "alice"); len(got) != 2 {
		t.Fatalf("alice events = %d, want 2", len(got))
	}

	_ = os.Remove(filepath.Join(dir, "alice.ics"))
	if err := im.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := personEvents(svc, "alice"); len(got) != 0 {
		t.Errorf("alice events after removal = %d, want 0", len(got))
	}
}

func TestSync_KeepsUppercaseExtension(t *testing.T) {
	dir, im, svc := importEnv(t)
	data := calendar(t, "u", 9, 10)
	if err := os.WriteFile(filepath.Join(dir, "Alice.ICS"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := im.ImportFile(context.Background(), "Alice.ICS", data); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if err := im.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := personEvents(svc, "Alice"); len(got) != 2 {
		t.Errorf("Alice events after sync = %d, want 2", len(got))
	}
	if !im.wants(filepath.Join(dir, "Alice.ICS")) {
		t.Error("watcher ignores an uppercase extension")
	}
}

func TestSync_ReplacesChangedFile(t *testing.T) {
	dir, im, svc := importEnv(t)
	path := filepath.Join(dir, "bob.ics")
	_ = os.WriteFile(path, calendar(t, "b", 9, 10, 11), 0o644)
	_ = im.Sync(context.Background())

	_ = os.WriteFile(path, calendar(t, "b", 14), 0o644)
	_ = im.Sync(context.Background())

	got := personEvents(svc, "bob")
	if len(got) != 1 || got[0].Interval().Start.Hour() != 14 {
		t.Errorf("bob events = %v", got)
	}
}

func TestImportFile_SkipsUnchanged(t *testing.T) {
	_, im, svc := importEnv(t)
	data := calendar(t, "c", 9)
	if err := im.ImportFile(context.Background(), "carol.ics", data); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	before := svc.ExportICS(context.Background(), "")
	if err := im.ImportFile(context.Background(), "carol.ics", data); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if after := svc.ExportICS(context.Background(), ""); string(before) != string(after) {
		t.Error("re-importing identical content changed the schedule")
	}
}

func TestImportFile_RejectsBrokenCalendar(t *testing.T) {
	_, im, _ := importEnv(t)
	err := im.ImportFile(context.Background(), "bad.ics", []byte("not a calendar"))
	if err == nil || !strings.Contains(err.Error(), "bad.ics") {
		t.Errorf("err = %v, want error naming the file", err)
	}
}

func TestWatcher_NewFileImported(t *testing.T) {
	dir, im, svc := importEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go im.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "dave.ics"), calendar(t, "d", 9), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(personEvents(svc, "dave")) == 1
	}, "new file not imported by watcher")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, im, svc := importEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go im.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "team")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "erin.ics"), calendar(t, "e", 10), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(personEvents(svc, "erin")) == 1
	}, "file in new subdir not imported")
}

func TestWatcher_DeleteRemovesEvents(t *testing.T) {
	dir, im, svc := importEnv(t)
	path := filepath.Join(dir, "frank.ics")
	_ = os.WriteFile(path, calendar(t, "f", 9), 0o644)
	_ = im.Sync(context.Background())
	if len(personEvents(svc, "frank")) != 1 {
		t.Fatal("precondition: file should be imported")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go im.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(personEvents(svc, "frank")) == 0
	}, "deleted file's events still scheduled")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, im, svc := importEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "gina.ics"), calendar(t, "g", 9), 0o644)
	_ = im.Sync(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go im.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "gina.ics"), filepath.Join(dir, "hank.ics"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(personEvents(svc, "gina")) == 0 && len(personEvents(svc, "hank")) == 1
	}, "rename reconciliation failed")
}
