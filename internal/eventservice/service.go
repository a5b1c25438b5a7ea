// Package eventservice is the single write path for timeline events. It
// keeps the search index in step with the shards and announces changes.
package eventservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/index"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/storage"
	"github.com/starford/lorekeeper/internal/timeline"
)

// Publisher receives event changes (sse.Broker implements it).
type Publisher interface {
	PublishEventChange(eventType string, ev models.TimelineEvent)
}

// Change types passed to the Publisher.
const (
	EventAdded     = "event.added"
	EventArchived  = "event.archived"
	EventCorrected = "event.corrected"
)

// Service coordinates the timeline store, the index, and the arc engine.
type Service struct {
	store  *timeline.Store
	fs     storage.Provider
	db     index.EventIndex
	engine *arc.Engine
	pub    Publisher
	logger *slog.Logger
}

// NewService creates a service. pub may be nil.
func NewService(store *timeline.Store, fs storage.Provider, db index.EventIndex, engine *arc.Engine, pub Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, fs: fs, db: db, engine: engine, pub: pub, logger: logger}
}

// AddEvent appends an event.
func (s *Service) AddEvent(_ context.Context, ev models.TimelineEvent) (models.TimelineEvent, error) {
	stored, err := s.store.AddEvent(ev)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	s.reindex()
	s.publish(EventAdded, stored)
	return stored, nil
}

// QueryEvents filters the timeline.
func (s *Service) QueryEvents(_ context.Context, q timeline.Query) ([]models.TimelineEvent, error) {
	return s.store.QueryEvents(q)
}

// ArchiveEvent archives the first event with id.
func (s *Service) ArchiveEvent(_ context.Context, id string) (models.TimelineEvent, error) {
	archived, err := s.store.ArchiveEvent(id)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	s.reindex()
	s.publish(EventArchived, archived)
	return archived, nil
}

// CorrectEvent archives id and appends corrected. The index is refreshed
// even when the append fails, so a half-finished correction is visible.
func (s *Service) CorrectEvent(_ context.Context, id string, corrected models.TimelineEvent) (models.TimelineEvent, error) {
	stored, err := s.store.CorrectEvent(id, corrected)
	s.reindex()
	if err != nil {
		return models.TimelineEvent{}, err
	}
	s.publish(EventCorrected, stored)
	return stored, nil
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Added  []models.TimelineEvent `json:"added"`
	Failed []string               `json:"failed"`
}

// Import appends events in order, continuing past invalid ones.
func (s *Service) Import(_ context.Context, events []models.TimelineEvent) ImportResult {
	res := ImportResult{Added: []models.TimelineEvent{}, Failed: []string{}}
	for _, ev := range events {
		stored, err := s.store.AddEvent(ev)
		if err != nil {
			res.Failed = append(res.Failed, fmt.Sprintf("%s %q: %v", ev.Date, ev.Title, err))
			continue
		}
		res.Added = append(res.Added, stored)
		s.publish(EventAdded, stored)
	}
	if len(res.Added) > 0 {
		s.reindex()
	}
	s.logger.Info("import finished", slog.Int("added", len(res.Added)), slog.Int("failed", len(res.Failed)))
	return res
}

// Search runs a full-text search over indexed events.
func (s *Service) Search(_ context.Context, query string, limit int, includeArchived bool) ([]index.SearchResult, error) {
	return s.db.Search(query, limit, includeArchived)
}

// TagCounts reports tag frequencies across the timeline.
func (s *Service) TagCounts(_ context.Context, includeArchived bool) ([]index.TagCount, error) {
	return s.db.TagCounts(includeArchived)
}

// MonthArc builds the arc for [start, end]. Zero bounds take the engine
// defaults.
func (s *Service) MonthArc(ctx context.Context, start, end time.Time) (*arc.MonthArc, error) {
	return s.engine.ConstructMonthArc(ctx, start, end)
}

// Reindex brings the index in line with the shards on disk.
func (s *Service) Reindex() error {
	return index.Sync(s.db, s.fs, s.logger)
}

// reindex refreshes changed shards. The shards are the source of truth, so
// failures are logged and the write still succeeds.
func (s *Service) reindex() {
	if err := s.Reindex(); err != nil {
		s.logger.Warn("reindex failed", slog.String("error", err.Error()))
	}
}

func (s *Service) publish(eventType string, ev models.TimelineEvent) {
	if s.pub != nil {
		s.pub.PublishEventChange(eventType, ev)
	}
}
