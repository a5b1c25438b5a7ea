package index

import "github.com/starford/lorekeeper/internal/models"

// EventIndex is the read/write surface of the event index. Consumers depend
// on it rather than *DB so tests can substitute it.
type EventIndex interface {
	ReplaceShard(year int, checksum string, events []models.TimelineEvent) error
	DeleteShard(year int) error
	ShardChecksums() (map[int]string, error)
	Search(query string, limit int, includeArchived bool) ([]SearchResult, error)
	TagCounts(includeArchived bool) ([]TagCount, error)
	Close() error
}

var _ EventIndex = (*DB)(nil)
