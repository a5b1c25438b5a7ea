//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/lorekeeper/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the events table.
	return nil
}

func ftsInsert(_ *sql.Tx, _, _ int, _ models.TimelineEvent) error { return nil }

func ftsDelete(_ *sql.Tx, _ int) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int, includeArchived bool) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+eventColumns+`, substr(e.details, 1, 200)
		FROM events e
		WHERE (? OR e.archived = 0)
		  AND (e.title LIKE ? OR e.details LIKE ? OR e.tags LIKE ?)
		ORDER BY e.date, e.year, e.row
		LIMIT ?
	`, includeArchived, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return collect(rows)
}
