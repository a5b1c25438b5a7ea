//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/lorekeeper/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			year UNINDEXED,
			row UNINDEXED,
			title,
			details,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, year, row int, ev models.TimelineEvent) error {
	_, err := tx.Exec(`INSERT INTO events_fts (year, row, title, details, tags) VALUES (?, ?, ?, ?, ?)`,
		year, row, ev.Title, ev.Details, strings.Join(ev.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, year int) {
	_, _ = tx.Exec(`DELETE FROM events_fts WHERE year = ?`, year)
}

// Search performs an FTS5 full-text search and returns matching events with snippets.
func (db *DB) Search(query string, limit int, includeArchived bool) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT `+eventColumns+`,
		       snippet(events_fts, 3, '<b>', '</b>', '...', 32)
		FROM events_fts f
		JOIN events e ON e.year = f.year AND e.row = f.row
		WHERE events_fts MATCH ?
		  AND (? OR e.archived = 0)
		ORDER BY rank
		LIMIT ?
	`, query, includeArchived, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return collect(rows)
}
