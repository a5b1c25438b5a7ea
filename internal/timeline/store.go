// Package timeline implements the year-sharded, append-only event store.
//
// Each calendar year lives in one "<year>.json" shard. Additions append to
// the shard; archive and correct rewrite the whole shard. Writes to the same
// shard are serialized within one Store, but nothing coordinates separate
// processes: two processes writing the same shard can lose an update (last
// writer wins).
package timeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/lorekeeper/internal/apperr"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/storage"
)

// Query filters events. All set fields must match.
type Query struct {
	// Year restricts the scan to one shard. Zero scans every existing shard.
	Year int
	// StartDate and EndDate bound the event date inclusively. They are
	// compared as strings, which is only correct for zero-padded ISO dates.
	StartDate string
	EndDate   string
	// Tags matches events sharing at least one tag.
	Tags            []string
	IncludeArchived bool
}

func (q Query) match(e *models.TimelineEvent) bool {
	if !q.IncludeArchived && e.Archived {
		return false
	}
	if len(q.Tags) > 0 && !e.HasAnyTag(q.Tags) {
		return false
	}
	if q.StartDate != "" && e.Date < q.StartDate {
		return false
	}
	if q.EndDate != "" && e.Date > q.EndDate {
		return false
	}
	return true
}

// Store provides append-only, year-sharded timeline storage.
type Store struct {
	fs storage.Provider

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewStore creates a store persisting shards through fs.
func NewStore(fs storage.Provider) *Store {
	return &Store{fs: fs, locks: make(map[int]*sync.Mutex)}
}

// lockShard serializes read-modify-write cycles on one year shard.
func (s *Store) lockShard(year int) func() {
	s.mu.Lock()
	l, ok := s.locks[year]
	if !ok {
		l = &sync.Mutex{}
		s.locks[year] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// loadShard reads a shard, creating it empty if it does not exist yet.
func (s *Store) loadShard(year int) ([]models.TimelineEvent, error) {
	data, err := s.fs.Read(storage.ShardName(year))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := s.saveShard(year, nil); err != nil {
				return nil, err
			}
			return []models.TimelineEvent{}, nil
		}
		return nil, err
	}
	events, err := DecodeShard(data)
	if err != nil {
		return nil, fmt.Errorf("timeline: shard %d: %w", year, err)
	}
	return events, nil
}

func (s *Store) saveShard(year int, events []models.TimelineEvent) error {
	data, err := EncodeShard(events)
	if err != nil {
		return fmt.Errorf("timeline: shard %d: %w", year, err)
	}
	if err := s.fs.Write(storage.ShardName(year), data); err != nil {
		return fmt.Errorf("timeline: save shard %d: %w", year, err)
	}
	return nil
}

// DecodeShard parses the persisted form of a shard.
func DecodeShard(data []byte) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.TimelineEvent{}, nil
	}
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if events == nil {
		events = []models.TimelineEvent{}
	}
	return events, nil
}

// EncodeShard renders events in the persisted shard form.
func EncodeShard(events []models.TimelineEvent) ([]byte, error) {
	if events == nil {
		events = []models.TimelineEvent{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Years returns every year that has a shard, ascending.
func (s *Store) Years() ([]int, error) {
	shards, err := s.fs.List()
	if err != nil {
		return nil, err
	}
	years := make([]int, 0, len(shards))
	for _, sh := range shards {
		years = append(years, sh.Year)
	}
	return years, nil
}

// LoadYear returns all events of a year, archived ones included.
func (s *Store) LoadYear(year int) ([]models.TimelineEvent, error) {
	unlock := s.lockShard(year)
	defer unlock()
	return s.loadShard(year)
}

// AddEvent appends event to the shard of its date's year and returns the
// stored record. A missing ID is generated. Reusing an existing ID is not
// rejected: the shard then holds two rows with that ID.
func (s *Store) AddEvent(event models.TimelineEvent) (models.TimelineEvent, error) {
	year, err := ShardYear(event.Date)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	stored := event.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Tags == nil {
		stored.Tags = []string{}
	}
	if stored.Metadata == nil {
		stored.Metadata = map[string]string{}
	}

	unlock := s.lockShard(year)
	defer unlock()

	events, err := s.loadShard(year)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	events = append(events, stored)
	if err := s.saveShard(year, events); err != nil {
		return models.TimelineEvent{}, err
	}
	return stored.Clone(), nil
}

// QueryEvents returns events matching q in shard-load order: shards by
// ascending year, rows in append order. Missing shards yield no events.
func (s *Store) QueryEvents(q Query) ([]models.TimelineEvent, error) {
	years := []int{q.Year}
	if q.Year == 0 {
		var err error
		if years, err = s.Years(); err != nil {
			return nil, err
		}
	}

	out := []models.TimelineEvent{}
	for _, y := range years {
		events, err := s.LoadYear(y)
		if err != nil {
			return nil, err
		}
		for i := range events {
			if q.match(&events[i]) {
				out = append(out, events[i])
			}
		}
	}
	return out, nil
}

// ArchiveEvent marks the first active row with id as archived and returns
// it. When every row with id is already archived the first of them is
// returned unchanged, so repeated calls are no-ops.
// Returns apperr.ErrNotFound when no shard holds id.
func (s *Store) ArchiveEvent(id string) (models.TimelineEvent, error) {
	years, err := s.Years()
	if err != nil {
		return models.TimelineEvent{}, err
	}
	var (
		archived models.TimelineEvent
		seen     bool
	)
	for _, y := range years {
		ev, found, flipped, err := s.archiveInShard(y, id)
		if err != nil {
			return models.TimelineEvent{}, err
		}
		if flipped {
			return ev, nil
		}
		if found && !seen {
			archived, seen = ev, true
		}
	}
	if seen {
		return archived, nil
	}
	return models.TimelineEvent{}, fmt.Errorf("timeline: archive %s: %w", id, apperr.ErrNotFound)
}

// archiveInShard flips the first active row with id. found reports any row
// with id, active or not; the returned event is the flipped row, or the
// first archived match when nothing was flipped.
func (s *Store) archiveInShard(year int, id string) (ev models.TimelineEvent, found, flipped bool, err error) {
	unlock := s.lockShard(year)
	defer unlock()

	events, err := s.loadShard(year)
	if err != nil {
		return models.TimelineEvent{}, false, false, err
	}
	first := -1
	for i := range events {
		if events[i].ID != id {
			continue
		}
		if events[i].Archived {
			if first < 0 {
				first = i
			}
			continue
		}
		events[i].Archived = true
		if err := s.saveShard(year, events); err != nil {
			return models.TimelineEvent{}, false, false, err
		}
		return events[i].Clone(), true, true, nil
	}
	if first < 0 {
		return models.TimelineEvent{}, false, false, nil
	}
	return events[first].Clone(), true, false, nil
}

// CorrectEvent archives the active row with id and appends corrected in
// its place. An unset source becomes "correction". Both rows persist.
//
// The two writes are not atomic: if the append fails after the archive
// succeeded, the original stays archived with no replacement and the
// append error is returned.
func (s *Store) CorrectEvent(id string, corrected models.TimelineEvent) (models.TimelineEvent, error) {
	if _, err := ShardYear(corrected.Date); err != nil {
		return models.TimelineEvent{}, err
	}
	if _, err := s.ArchiveEvent(id); err != nil {
		return models.TimelineEvent{}, err
	}
	if corrected.Source == "" {
		corrected.Source = models.SourceCorrection
	}
	stored, err := s.AddEvent(corrected)
	if err != nil {
		return models.TimelineEvent{}, fmt.Errorf("timeline: correct %s: original archived, append failed: %w", id, err)
	}
	return stored, nil
}
