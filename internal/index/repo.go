package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/agenda/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID       models.EventID
	PersonID models.PersonID
	Snippet  string
}

// Upsert inserts or replaces an event. An existing row keeps its position in
// insertion order and the source it was first stored with.
func (db *DB) Upsert(ev models.ScheduleEvent, source string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := upsertEvent(tx, ev, source); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertEvent(tx *sql.Tx, ev models.ScheduleEvent, source string) error {
	tagsJSON, _ := json.Marshal(ev.Tags())
	iv := ev.Interval()
	_, err := tx.Exec(`
		INSERT INTO events (id, person_id, details, tags, start_at, end_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			details   = excluded.details,
			tags      = excluded.tags,
			start_at  = excluded.start_at,
			end_at    = excluded.end_at
	`, string(ev.ID()), string(ev.PersonID()), ev.Details(), string(tagsJSON),
		iv.Start.UnixNano(), iv.End.UnixNano(), source)
	if err != nil {
		return fmt.Errorf("index: upsert event: %w", err)
	}
	return ftsUpsert(tx, ev)
}

// Delete removes an event and its FTS entry. Deleting a missing id is a no-op.
func (db *DB) Delete(id models.EventID) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM events WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("index: delete event: %w", err)
	}
	return tx.Commit()
}

// LoadAll returns every stored event in insertion order, with times in loc.
func (db *DB) LoadAll(loc *time.Location) ([]models.ScheduleEvent, error) {
	rows, err := db.conn.Query(`
		SELECT id, person_id, details, tags, start_at, end_at
		FROM events
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("index: load all: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduleEvent
	for rows.Next() {
		var (
			id, person, details, tagsJSON string
			start, end                    int64
		)
		if err := rows.Scan(&id, &person, &details, &tagsJSON, &start, &end); err != nil {
			return nil, err
		}
		var tags []models.Tag
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("index: decode tags of %s: %w", id, err)
		}
		iv := models.Interval{Start: time.Unix(0, start).In(loc), End: time.Unix(0, end).In(loc)}
		ev, err := models.RestoreEvent(models.EventID(id), iv, models.PersonID(person), details, tags)
		if err != nil {
			return nil, fmt.Errorf("index: restore %s: %w", id, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ReplaceAll swaps the whole events table for events in one transaction.
// Import bookkeeping is cleared as well so the importer re-reads its files.
func (db *DB) ReplaceAll(events []models.ScheduleEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsClear(tx); err != nil {
		return err
	}
	for _, q := range []string{`DELETE FROM events`, `DELETE FROM imports`} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("index: clear: %w", err)
		}
	}
	for _, ev := range events {
		if err := upsertEvent(tx, ev, ""); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceSource drops every event previously imported from source, stores
// events in its place and records the file checksum.
func (db *DB) ReplaceSource(source, checksum string, events []models.ScheduleEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteSource(tx, source); err != nil {
		return err
	}
	for _, ev := range events {
		if err := upsertEvent(tx, ev, source); err != nil {
			return err
		}
	}
	_, err = tx.Exec(`
		INSERT INTO imports (path, checksum) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET checksum = excluded.checksum
	`, source, checksum)
	if err != nil {
		return fmt.Errorf("index: record import: %w", err)
	}
	return tx.Commit()
}

// DeleteSource removes an import record and all events that came from it.
func (db *DB) DeleteSource(source string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteSource(tx, source); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM imports WHERE path = ?`, source); err != nil {
		return fmt.Errorf("index: delete import: %w", err)
	}
	return tx.Commit()
}

func deleteSource(tx *sql.Tx, source string) error {
	ids, err := sourceIDs(tx, source)
	if err != nil {
		return err
	}
	for _, id := range ids {
		ftsDelete(tx, id)
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE source = ?`, source); err != nil {
		return fmt.Errorf("index: delete source events: %w", err)
	}
	return nil
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// SourceIDs returns the ids of events imported from source, in insertion order.
func (db *DB) SourceIDs(source string) ([]models.EventID, error) {
	return sourceIDs(db.conn, source)
}

func sourceIDs(q querier, source string) ([]models.EventID, error) {
	rows, err := q.Query(`SELECT id FROM events WHERE source = ? ORDER BY seq`, source)
	if err != nil {
		return nil, fmt.Errorf("index: source ids: %w", err)
	}
	defer rows.Close()

	var out []models.EventID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, models.EventID(id))
	}
	return out, rows.Err()
}

// ImportChecksums returns the recorded checksum of every imported file.
func (db *DB) ImportChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM imports`)
	if err != nil {
		return nil, fmt.Errorf("index: import checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
