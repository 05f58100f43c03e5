//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/agenda/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			id UNINDEXED,
			person_id UNINDEXED,
			details,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, ev models.ScheduleEvent) error {
	ftsDelete(tx, ev.ID())
	tags := make([]string, 0, len(ev.Tags()))
	for _, t := range ev.Tags() {
		tags = append(tags, string(t))
	}
	_, err := tx.Exec(`INSERT INTO events_fts (id, person_id, details, tags) VALUES (?, ?, ?, ?)`,
		string(ev.ID()), string(ev.PersonID()), ev.Details(), strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id models.EventID) {
	_, _ = tx.Exec(`DELETE FROM events_fts WHERE id = ?`, string(id))
}

func ftsClear(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM events_fts`); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching events with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       person_id,
		       snippet(events_fts, 2, '<b>', '</b>', '...', 32)
		FROM events_fts
		WHERE events_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.PersonID, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
