// Package models defines the domain types for LoreKeeper.
package models

import (
	"slices"
	"time"
)

// Event sources with special meaning to the store.
const (
	SourceUserEntry  = "user_entry"
	SourceCorrection = "correction"
	SourceJournal    = "journal"
)

// Metadata keys read by the arc engine.
const (
	MetaSentiment = "sentiment"
	MetaTone      = "tone"
)

// TimelineEvent is one life event as persisted in a year shard.
//
// Date is an ISO-8601 date string. It decides the shard and is compared
// lexicographically by queries, so it must stay zero-padded.
type TimelineEvent struct {
	ID       string            `json:"id"`
	Date     string            `json:"date"`
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Details  string            `json:"details"`
	Tags     []string          `json:"tags"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata"`
	Archived bool              `json:"archived"`
}

// HasAnyTag reports whether the event carries at least one of tags.
func (e *TimelineEvent) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(e.Tags, t) {
			return true
		}
	}
	return false
}

// Mood returns the sentiment label, falling back to tone. Empty when neither is set.
func (e *TimelineEvent) Mood() string {
	if s := e.Metadata[MetaSentiment]; s != "" {
		return s
	}
	return e.Metadata[MetaTone]
}

// Clone returns a deep copy so callers never alias persisted slices and maps.
func (e TimelineEvent) Clone() TimelineEvent {
	out := e
	out.Tags = slices.Clone(e.Tags)
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// ShardInfo is a lightweight description of one year shard file.
type ShardInfo struct {
	Path      string    `json:"path"`
	Year      int       `json:"year"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
