package index

import (
	"time"

	"github.com/starford/agenda/internal/models"
)

// EventIndex defines the persistence operations the event service relies on.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type EventIndex interface {
	Upsert(ev models.ScheduleEvent, source string) error
	Delete(id models.EventID) error
	LoadAll(loc *time.Location) ([]models.ScheduleEvent, error)
	ReplaceAll(events []models.ScheduleEvent) error
	ReplaceSource(source, checksum string, events []models.ScheduleEvent) error
	DeleteSource(source string) error
	SourceIDs(source string) ([]models.EventID, error)
	ImportChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies EventIndex at compile time.
var _ EventIndex = (*DB)(nil)
