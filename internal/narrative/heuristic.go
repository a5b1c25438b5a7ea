// Package narrative provides the weekly synthesizers and month stitchers
// the arc engine delegates prose to.
package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/models"
)

// turningTypes are event types always reported as turning points.
var turningTypes = map[string]bool{
	"milestone":     true,
	"breakthrough":  true,
	"turning_point": true,
	"decision":      true,
}

// Heuristic builds narratives from tag and type frequencies without any
// external service. It implements both arc.WeeklySynthesizer and
// arc.NarrativeStitcher.
type Heuristic struct{}

var (
	_ arc.WeeklySynthesizer = Heuristic{}
	_ arc.NarrativeStitcher = Heuristic{}
)

// Synthesize summarizes one week.
func (Heuristic) Synthesize(_ context.Context, events []models.TimelineEvent, start, end time.Time) (arc.Narrative, error) {
	// A quiet week has no arc, so it adds no subplot or motif to the month.
	if len(events) == 0 {
		return arc.Narrative{
			Hook: fmt.Sprintf("A quiet week from %s to %s.", start.Format("Jan 2"), end.Format("Jan 2")),
		}, nil
	}

	n := arc.Narrative{
		Hook: hook(events),
		Arc:  focus(events),
	}
	for _, ev := range events {
		if ev.Title != "" && turningTypes[ev.Type] {
			n.TurningPoints = append(n.TurningPoints, ev.Title)
		}
	}
	return n, nil
}

// Stitch summarizes a whole range.
func (Heuristic) Stitch(_ context.Context, events []models.TimelineEvent) (arc.Stitched, error) {
	if len(events) == 0 {
		return arc.Stitched{Hook: "A quiet month.", Arc: "No events were recorded."}, nil
	}
	days := map[string]struct{}{}
	for _, ev := range events {
		days[ev.Date] = struct{}{}
	}
	return arc.Stitched{
		Hook: fmt.Sprintf("%d events across %d days, opening with %s.", len(events), len(days), firstTitle(events)),
		Arc:  strings.TrimSpace(focus(events) + " " + categories(events)),
	}, nil
}

func hook(events []models.TimelineEvent) string {
	if len(events) == 1 {
		return fmt.Sprintf("One event: %s.", firstTitle(events))
	}
	return fmt.Sprintf("%d events, led by %s.", len(events), firstTitle(events))
}

func firstTitle(events []models.TimelineEvent) string {
	for _, ev := range events {
		if ev.Title != "" {
			return ev.Title
		}
	}
	return "an untitled entry"
}

// focus names the most frequent tags, ties broken by first appearance.
func focus(events []models.TimelineEvent) string {
	top := topKeys(events, func(ev models.TimelineEvent) []string { return ev.Tags }, 3)
	if len(top) == 0 {
		return "No recurring focus."
	}
	return "Focus on " + strings.Join(top, ", ") + "."
}

func categories(events []models.TimelineEvent) string {
	top := topKeys(events, func(ev models.TimelineEvent) []string {
		if ev.Type == "" {
			return nil
		}
		return []string{ev.Type}
	}, 3)
	if len(top) == 0 {
		return ""
	}
	return "Mostly " + strings.Join(top, ", ") + "."
}

func topKeys(events []models.TimelineEvent, keys func(models.TimelineEvent) []string, limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, ev := range events {
		for _, k := range keys(ev) {
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
