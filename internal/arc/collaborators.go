package arc

import (
	"context"
	"time"

	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/timeline"
)

// EventSource is the read side of the timeline the engine queries.
type EventSource interface {
	QueryEvents(q timeline.Query) ([]models.TimelineEvent, error)
}

// Narrative is a per-week synthesized story.
type Narrative struct {
	Hook          string   `json:"hook"`
	Arc           string   `json:"arc"`
	TurningPoints []string `json:"turning_points,omitempty"`
}

// WeeklySynthesizer turns one week of events into a Narrative.
type WeeklySynthesizer interface {
	Synthesize(ctx context.Context, events []models.TimelineEvent, start, end time.Time) (Narrative, error)
}

// Stitched is the whole-range hook and arc. Stitchers that produce a
// single string set both fields to it.
type Stitched struct {
	Hook string `json:"hook"`
	Arc  string `json:"arc"`
}

// NarrativeStitcher produces prose over a whole set of events.
type NarrativeStitcher interface {
	Stitch(ctx context.Context, events []models.TimelineEvent) (Stitched, error)
}

// TaskWeek is a per-week task tally reported by a task source.
type TaskWeek struct {
	Label     string   `json:"label"`
	Completed []string `json:"completed"`
	Overdue   []string `json:"overdue"`
}

// TaskSummary is what a task source reports for the month.
// EfficiencyScore is nil when the source leaves it to the engine.
type TaskSummary struct {
	Completed       []string
	Overdue         []string
	NewTasks        []string
	Priority        []string
	EfficiencyScore *float64
	WeekBreakdowns  []TaskWeek
}

// TaskSource supplies task signals. It must implement MonthlyTaskSummarizer,
// TaskLister, or both; the monthly summary wins when both are present.
// WeeklyTaskBreakdown is an optional extra.
type TaskSource any

// MonthlyTaskSummarizer reports the whole month in one call.
type MonthlyTaskSummarizer interface {
	SummarizeMonth(ctx context.Context) (TaskSummary, error)
}

// TaskLister exposes task lists one at a time.
type TaskLister interface {
	CompletedTasks(ctx context.Context) ([]string, error)
	OverdueTasks(ctx context.Context) ([]string, error)
	NewTasks(ctx context.Context) ([]string, error)
	PriorityTasks(ctx context.Context) ([]string, error)
}

// WeeklyTaskBreakdown reports tasks per week.
type WeeklyTaskBreakdown interface {
	WeeklyBreakdown(ctx context.Context) ([]TaskWeek, error)
}

// DriftIssue is one detected inconsistency. The engine only counts them.
type DriftIssue struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	EventIDs []string `json:"event_ids,omitempty"`
}

// DriftAuditor inspects events for contradictions.
type DriftAuditor interface {
	Audit(ctx context.Context, events []models.TimelineEvent) ([]DriftIssue, error)
}
