package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/lorekeeper/internal/models"
)

// SearchResult is one search hit.
type SearchResult struct {
	Event   models.TimelineEvent `json:"event"`
	Snippet string               `json:"snippet"`
}

// TagCount is the number of events carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ReplaceShard swaps every indexed row of year for events, in one
// transaction. Rows are keyed by position so duplicate ids survive.
func (db *DB) ReplaceShard(year int, checksum string, events []models.TimelineEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteShardRows(tx, year); err != nil {
		return err
	}

	eventStmt, err := tx.Prepare(`
		INSERT INTO events (year, row, id, date, title, type, details, tags, source, metadata, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare event insert: %w", err)
	}
	defer eventStmt.Close()

	tagStmt, err := tx.Prepare(`INSERT OR IGNORE INTO event_tags (year, row, tag) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer tagStmt.Close()

	for row, ev := range events {
		tags, _ := json.Marshal(nonNilTags(ev.Tags))
		meta, _ := json.Marshal(nonNilMeta(ev.Metadata))
		if _, err := eventStmt.Exec(year, row, ev.ID, ev.Date, ev.Title, ev.Type, ev.Details,
			string(tags), ev.Source, string(meta), ev.Archived); err != nil {
			return fmt.Errorf("index: insert event: %w", err)
		}
		for _, tag := range ev.Tags {
			if _, err := tagStmt.Exec(year, row, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
		if err := ftsInsert(tx, year, row, ev); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO shards (year, checksum, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(year) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, year, checksum, time.Now().UTC()); err != nil {
		return fmt.Errorf("index: upsert shard: %w", err)
	}
	return tx.Commit()
}

// DeleteShard removes a shard and all its rows.
func (db *DB) DeleteShard(year int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteShardRows(tx, year); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM shards WHERE year = ?`, year); err != nil {
		return fmt.Errorf("index: delete shard: %w", err)
	}
	return tx.Commit()
}

func deleteShardRows(tx *sql.Tx, year int) error {
	ftsDelete(tx, year)
	if _, err := tx.Exec(`DELETE FROM event_tags WHERE year = ?`, year); err != nil {
		return fmt.Errorf("index: delete tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE year = ?`, year); err != nil {
		return fmt.Errorf("index: delete events: %w", err)
	}
	return nil
}

// ShardChecksums returns the checksum of every indexed shard.
func (db *DB) ShardChecksums() (map[int]string, error) {
	rows, err := db.conn.Query(`SELECT year, checksum FROM shards`)
	if err != nil {
		return nil, fmt.Errorf("index: shard checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[int]string)
	for rows.Next() {
		var year int
		var cs string
		if err := rows.Scan(&year, &cs); err != nil {
			return nil, err
		}
		out[year] = cs
	}
	return out, rows.Err()
}

// TagCounts returns tag frequencies, most used first, ties by name.
func (db *DB) TagCounts(includeArchived bool) ([]TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT t.tag, count(*) AS n
		FROM event_tags t
		JOIN events e ON e.year = t.year AND e.row = t.row
		WHERE ? OR e.archived = 0
		GROUP BY t.tag
		ORDER BY n DESC, t.tag ASC
	`, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("index: tag counts: %w", err)
	}
	defer rows.Close()

	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

const eventColumns = `e.id, e.date, e.title, e.type, e.details, e.tags, e.source, e.metadata, e.archived`

// scanEvent reads eventColumns followed by a snippet.
func scanEvent(rows *sql.Rows) (SearchResult, error) {
	var (
		r          SearchResult
		tags, meta string
	)
	ev := &r.Event
	if err := rows.Scan(&ev.ID, &ev.Date, &ev.Title, &ev.Type, &ev.Details, &tags, &ev.Source, &meta, &ev.Archived, &r.Snippet); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(tags), &ev.Tags); err != nil {
		return r, fmt.Errorf("index: decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
		return r, fmt.Errorf("index: decode metadata: %w", err)
	}
	return r, nil
}

func collect(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilMeta(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
