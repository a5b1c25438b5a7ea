package index

import (
	"fmt"
	"log/slog"

	"github.com/starford/lorekeeper/internal/storage"
	"github.com/starford/lorekeeper/internal/timeline"
)

// Sync walks the timeline directory and brings the index up to date:
//   - new/changed shards are decoded and re-indexed
//   - shards removed from disk are deleted from the index
func Sync(db EventIndex, store storage.Provider, logger *slog.Logger) error {
	shards, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.ShardChecksums()
	if err != nil {
		return err
	}

	disk := make(map[int]struct{}, len(shards))
	for _, s := range shards {
		disk[s.Year] = struct{}{}

		if checksums[s.Year] == s.Checksum {
			continue
		}
		if err := IndexShard(db, store, s.Year); err != nil {
			logger.Warn("sync: index failed", slog.Int("year", s.Year), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.Int("year", s.Year))
		}
	}

	for year := range checksums {
		if _, ok := disk[year]; !ok {
			if err := db.DeleteShard(year); err != nil {
				logger.Warn("sync: delete failed", slog.Int("year", year), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.Int("year", year))
			}
		}
	}

	return nil
}

// IndexShard reads one year shard and replaces its rows in the index.
func IndexShard(db EventIndex, store storage.Provider, year int) error {
	data, err := store.Read(storage.ShardName(year))
	if err != nil {
		return err
	}
	events, err := timeline.DecodeShard(data)
	if err != nil {
		return fmt.Errorf("index: shard %d: %w", year, err)
	}
	return db.ReplaceShard(year, storage.Checksum(data), events)
}
