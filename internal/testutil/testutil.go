// Package testutil provides shared test helpers for setting up databases,
// calendar directories and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/agenda/internal/eventservice"
	"github.com/starford/agenda/internal/index"
	"github.com/starford/agenda/internal/storage"
)

// Monday is Monday 01/01/2024 10:30 UTC, the reference "now" in tests.
var Monday = time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "agenda-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temporary calendar directory with a storage.Provider.
func TestDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir, storage.DefaultExt)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// QuietLogger discards everything below error.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// FixedClock returns a clock frozen at now.
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// TestService creates a loaded event service over a fresh database with the
// clock frozen at now, in UTC.
func TestService(t *testing.T, now time.Time, opts ...eventservice.Option) (*eventservice.Service, *index.DB) {
	t.Helper()
	db := TestDB(t)
	base := []eventservice.Option{
		eventservice.WithClock(FixedClock(now)),
		eventservice.WithLocation(time.UTC),
		eventservice.WithLogger(QuietLogger()),
	}
	svc := eventservice.NewService(db, append(base, opts...)...)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc, db
}
