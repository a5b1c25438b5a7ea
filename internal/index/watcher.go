package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lorekeeper/internal/storage"
)

// Watcher callback kinds.
const (
	ShardUpdated = "updated"
	ShardDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, year int)

// debounce is how long the watcher waits for a burst of writes to settle.
const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the timeline directory and re-indexes
// shards changed on disk until ctx is cancelled. Bursts of events on the
// same shard are coalesced. cb (if non-nil) runs after each index mutation.
func Watch(ctx context.Context, db EventIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	pending := map[int]struct{}{}
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func(year int) {
		pending[year] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for year := range pending {
				reconcileShard(db, store, year, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			year, isShard := storage.ShardYear(filepath.Base(ev.Name))
			if !isShard {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(year)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileShard re-indexes year if its file changed, or drops it if the
// file is gone.
func reconcileShard(db EventIndex, store storage.Provider, year int, logger *slog.Logger, cb EventCallback) {
	shards, err := store.List()
	if err != nil {
		logger.Warn("watcher: list failed", slog.String("error", err.Error()))
		return
	}
	checksums, err := db.ShardChecksums()
	if err != nil {
		logger.Warn("watcher: checksums failed", slog.String("error", err.Error()))
		return
	}

	for _, s := range shards {
		if s.Year != year {
			continue
		}
		if checksums[year] == s.Checksum {
			return
		}
		if err := IndexShard(db, store, year); err != nil {
			logger.Warn("watcher: index failed", slog.Int("year", year), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: indexed", slog.Int("year", year))
		if cb != nil {
			cb(ShardUpdated, year)
		}
		return
	}

	if _, indexed := checksums[year]; !indexed {
		return
	}
	if err := db.DeleteShard(year); err != nil {
		logger.Warn("watcher: delete failed", slog.Int("year", year), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: deleted", slog.Int("year", year))
	if cb != nil {
		cb(ShardDeleted, year)
	}
}
