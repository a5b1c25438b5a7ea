// Package drift finds inconsistencies in the timeline that usually mean a
// correction went wrong or an event was logged twice.
package drift

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/models"
)

// Issue kinds.
const (
	KindDuplicateID       = "duplicate_id"
	KindConflictingTitles = "conflicting_titles"
	KindOrphanedArchive   = "orphaned_archive"
)

// Auditor is a rule-based arc.DriftAuditor.
type Auditor struct{}

var _ arc.DriftAuditor = Auditor{}

// Audit reports, in order:
//   - ids shared by more than one active event;
//   - days holding several active events of the same type whose titles
//     disagree only in case or surrounding space;
//   - archived events with no active replacement, which is what a
//     correction that failed midway leaves behind. A replacement is an
//     active row with the same id, or an active correction on the same
//     date.
func (Auditor) Audit(ctx context.Context, events []models.TimelineEvent) ([]arc.DriftIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues := []arc.DriftIssue{}
	issues = append(issues, duplicateIDs(events)...)
	issues = append(issues, conflictingTitles(events)...)
	issues = append(issues, orphanedArchives(events)...)
	return issues, nil
}

func duplicateIDs(events []models.TimelineEvent) []arc.DriftIssue {
	counts := map[string]int{}
	var order []string
	for _, ev := range events {
		if ev.Archived || ev.ID == "" {
			continue
		}
		if counts[ev.ID] == 0 {
			order = append(order, ev.ID)
		}
		counts[ev.ID]++
	}
	var out []arc.DriftIssue
	for _, id := range order {
		if n := counts[id]; n > 1 {
			out = append(out, arc.DriftIssue{
				Kind:     KindDuplicateID,
				Message:  fmt.Sprintf("id %s is active on %d events", id, n),
				EventIDs: []string{id},
			})
		}
	}
	return out
}

func conflictingTitles(events []models.TimelineEvent) []arc.DriftIssue {
	type key struct{ date, typ, norm string }
	groups := map[key][]models.TimelineEvent{}
	var order []key
	for _, ev := range events {
		if ev.Archived || ev.Title == "" {
			continue
		}
		k := key{ev.Date, ev.Type, strings.ToLower(strings.TrimSpace(ev.Title))}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], ev)
	}
	var out []arc.DriftIssue
	for _, k := range order {
		g := groups[k]
		titles := map[string]struct{}{}
		ids := make([]string, 0, len(g))
		for _, ev := range g {
			titles[ev.Title] = struct{}{}
			ids = append(ids, ev.ID)
		}
		if len(titles) < 2 {
			continue
		}
		variants := make([]string, 0, len(titles))
		for t := range titles {
			variants = append(variants, fmt.Sprintf("%q", t))
		}
		sort.Strings(variants)
		out = append(out, arc.DriftIssue{
			Kind:     KindConflictingTitles,
			Message:  fmt.Sprintf("%s has conflicting titles: %s", k.date, strings.Join(variants, ", ")),
			EventIDs: ids,
		})
	}
	return out
}

func orphanedArchives(events []models.TimelineEvent) []arc.DriftIssue {
	activeIDs := map[string]struct{}{}
	correctedDates := map[string]struct{}{}
	for _, ev := range events {
		if ev.Archived {
			continue
		}
		if ev.ID != "" {
			activeIDs[ev.ID] = struct{}{}
		}
		if ev.Source == models.SourceCorrection {
			correctedDates[ev.Date] = struct{}{}
		}
	}
	var out []arc.DriftIssue
	for _, ev := range events {
		if !ev.Archived {
			continue
		}
		if _, ok := activeIDs[ev.ID]; ok {
			continue
		}
		if _, ok := correctedDates[ev.Date]; ok {
			continue
		}
		out = append(out, arc.DriftIssue{
			Kind:     KindOrphanedArchive,
			Message:  fmt.Sprintf("archived event %s (%s) has no active replacement", ev.ID, ev.Title),
			EventIDs: []string{ev.ID},
		})
	}
	return out
}
