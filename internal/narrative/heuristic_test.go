package narrative

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/lorekeeper/internal/models"
)

func week(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 6)
}

func TestHeuristicSynthesize(t *testing.T) {
	start, end := week(t)
	events := []models.TimelineEvent{
		{Date: "2025-01-01", Title: "Open mat", Type: "training", Tags: []string{"bjj", "training"}},
		{Date: "2025-01-03", Title: "Blue belt", Type: "milestone", Tags: []string{"bjj"}},
		{Date: "2025-01-05", Title: "Kanji drills", Type: "learning", Tags: []string{"japanese"}},
	}
	n, err := Heuristic{}.Synthesize(context.Background(), events, start, end)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if n.Hook != "3 events, led by Open mat." {
		t.Errorf("hook = %q", n.Hook)
	}
	if n.Arc != "Focus on bjj, training, japanese." {
		t.Errorf("arc = %q", n.Arc)
	}
	if !reflect.DeepEqual(n.TurningPoints, []string{"Blue belt"}) {
		t.Errorf("turning points = %q", n.TurningPoints)
	}
}

func TestHeuristicSynthesizeQuietWeek(t *testing.T) {
	start, end := week(t)
	n, err := Heuristic{}.Synthesize(context.Background(), nil, start, end)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if n.Hook != "A quiet week from Jan 1 to Jan 7." || n.Arc != "" || len(n.TurningPoints) != 0 {
		t.Errorf("narrative = %+v", n)
	}
}

func TestHeuristicStitch(t *testing.T) {
	events := []models.TimelineEvent{
		{Date: "2025-01-01", Title: "", Type: "log"},
		{Date: "2025-01-01", Title: "Budget review", Type: "finance", Tags: []string{"finances"}},
		{Date: "2025-01-09", Title: "Servo test", Type: "log", Tags: []string{"robotics"}},
	}
	s, err := Heuristic{}.Stitch(context.Background(), events)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if s.Hook != "3 events across 2 days, opening with Budget review." {
		t.Errorf("hook = %q", s.Hook)
	}
	if !strings.HasSuffix(s.Arc, "Mostly log, finance.") {
		t.Errorf("arc = %q", s.Arc)
	}

	empty, err := Heuristic{}.Stitch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if empty.Hook != "A quiet month." {
		t.Errorf("hook = %q", empty.Hook)
	}
}

func TestHeuristicStitchUntyped(t *testing.T) {
	s, err := Heuristic{}.Stitch(context.Background(), []models.TimelineEvent{
		{Date: "2025-01-02", Title: "Open mat", Tags: []string{"bjj"}},
	})
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if s.Arc != "Focus on bjj." {
		t.Errorf("arc = %q", s.Arc)
	}
}

func TestWeeklyPrompt(t *testing.T) {
	start, end := week(t)
	p := WeeklyPrompt([]models.TimelineEvent{
		{Date: "2025-01-02", Type: "training", Title: "Open mat", Tags: []string{"bjj"}, Metadata: map[string]string{"tone": "tired"}},
	}, start, end)
	for _, want := range []string{
		"Week from 2025-01-01 to 2025-01-07.",
		"- 2025-01-02 [training] Open mat (tags: bjj) mood: tired",
		`"turning_points"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestPromptCapsEvents(t *testing.T) {
	events := make([]models.TimelineEvent, maxPromptEvents+5)
	for i := range events {
		events[i] = models.TimelineEvent{Date: "2025-01-01", Title: "x"}
	}
	p := StitchPrompt(events)
	if !strings.Contains(p, "... and 5 more.") {
		t.Errorf("prompt should note truncated events")
	}
	if strings.Count(p, "\n- ") != maxPromptEvents {
		t.Errorf("listed %d events, want %d", strings.Count(p, "\n- "), maxPromptEvents)
	}
}
