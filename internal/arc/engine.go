// Package arc composes monthly narrative arcs from the timeline and its
// collaborators: a weekly synthesizer, a whole-range stitcher, a task
// source, and a drift auditor.
package arc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/timeline"
)

// Resolution closes every month narrative.
const Resolution = "Trajectory set for next month."

// defaultSpan is the range assumed when only one bound is given.
const defaultSpan = 30

// Drift severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Engine composes MonthArcs. Collaborator errors are returned as-is; the
// engine never retries.
type Engine struct {
	events   EventSource
	weekly   WeeklySynthesizer
	stitcher NarrativeStitcher
	tasks    TaskSource
	drift    DriftAuditor

	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the reference "now" used to default the month range.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine wires an Engine. events is required; a nil collaborator
// contributes empty results.
func NewEngine(events EventSource, weekly WeeklySynthesizer, stitcher NarrativeStitcher, tasks TaskSource, drift DriftAuditor, opts ...Option) (*Engine, error) {
	if events == nil {
		return nil, fmt.Errorf("arc: event source is required")
	}
	if tasks != nil {
		_, summarizer := tasks.(MonthlyTaskSummarizer)
		_, lister := tasks.(TaskLister)
		if !summarizer && !lister {
			return nil, fmt.Errorf("arc: task source %T implements neither SummarizeMonth nor the task accessors", tasks)
		}
	}
	e := &Engine{
		events:   events,
		weekly:   weekly,
		stitcher: stitcher,
		tasks:    tasks,
		drift:    drift,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ResolveMonthRange fills in omitted (zero) bounds. With neither bound the
// current calendar month is used; with one bound the other is 30 days
// away. Reversed bounds are swapped.
func (e *Engine) ResolveMonthRange(start, end time.Time) (time.Time, time.Time) {
	switch {
	case start.IsZero() && end.IsZero():
		today := day(e.now().UTC())
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, 0).AddDate(0, 0, -1)
	case end.IsZero():
		start = day(start)
		end = start.AddDate(0, 0, defaultSpan)
	case start.IsZero():
		end = day(end)
		start = end.AddDate(0, 0, -defaultSpan)
	default:
		start, end = day(start), day(end)
	}
	if start.After(end) {
		start, end = end, start
	}
	return start, end
}

func (e *Engine) queryRange(start, end time.Time, includeArchived bool) ([]models.TimelineEvent, error) {
	events, err := e.events.QueryEvents(timeline.Query{
		StartDate:       timeline.FormatDate(start),
		EndDate:         timeline.FormatDate(end),
		IncludeArchived: includeArchived,
	})
	if err != nil {
		return nil, fmt.Errorf("arc: query events: %w", err)
	}
	return events, nil
}

// GatherMonthEvents loads the active events of the resolved range and
// tallies categories, tags, moods, and per-week counts.
func (e *Engine) GatherMonthEvents(start, end time.Time) (MonthEvents, error) {
	start, end = e.ResolveMonthRange(start, end)
	events, err := e.queryRange(start, end, false)
	if err != nil {
		return MonthEvents{}, err
	}

	stats := EventStats{
		Count:            len(events),
		Categories:       map[string]int{},
		Tags:             map[string]int{},
		SentimentSummary: map[string]int{},
		WeekSplits:       []WeekSplit{},
	}
	for i := range events {
		ev := &events[i]
		category := ev.Type
		if category == "" {
			category = "uncategorized"
		}
		stats.Categories[category]++
		for _, tag := range ev.Tags {
			stats.Tags[tag]++
		}
		mood := ev.Mood()
		if mood == "" {
			mood = "neutral"
		}
		stats.SentimentSummary[mood]++
	}
	for _, w := range Partition(start, end, events) {
		stats.WeekSplits = append(stats.WeekSplits, WeekSplit{
			Label: w.Label,
			Start: timeline.FormatDate(w.Start),
			End:   timeline.FormatDate(w.End),
			Count: len(w.Events),
		})
	}
	return MonthEvents{Events: events, Stats: stats}, nil
}

// SummarizeMonthTasks asks the task source for the month. The efficiency
// score is completed / max(1, completed+overdue), rounded to two decimals,
// unless the source supplied one.
func (e *Engine) SummarizeMonthTasks(ctx context.Context) (TaskReport, error) {
	var sum TaskSummary
	switch src := e.tasks.(type) {
	case MonthlyTaskSummarizer:
		s, err := src.SummarizeMonth(ctx)
		if err != nil {
			return TaskReport{}, fmt.Errorf("arc: summarize tasks: %w", err)
		}
		sum = s
	case TaskLister:
		var err error
		if sum.Completed, err = src.CompletedTasks(ctx); err != nil {
			return TaskReport{}, fmt.Errorf("arc: completed tasks: %w", err)
		}
		if sum.Overdue, err = src.OverdueTasks(ctx); err != nil {
			return TaskReport{}, fmt.Errorf("arc: overdue tasks: %w", err)
		}
		if sum.NewTasks, err = src.NewTasks(ctx); err != nil {
			return TaskReport{}, fmt.Errorf("arc: new tasks: %w", err)
		}
		if sum.Priority, err = src.PriorityTasks(ctx); err != nil {
			return TaskReport{}, fmt.Errorf("arc: priority tasks: %w", err)
		}
	}
	if b, ok := e.tasks.(WeeklyTaskBreakdown); ok {
		weeks, err := b.WeeklyBreakdown(ctx)
		if err != nil {
			return TaskReport{}, fmt.Errorf("arc: weekly task breakdown: %w", err)
		}
		sum.WeekBreakdowns = weeks
	}

	report := TaskReport{
		Completed:      nonNil(sum.Completed),
		Overdue:        nonNil(sum.Overdue),
		NewTasks:       nonNil(sum.NewTasks),
		Priority:       nonNil(sum.Priority),
		WeekBreakdowns: nonNil(sum.WeekBreakdowns),
	}
	if sum.EfficiencyScore != nil {
		report.EfficiencyScore = *sum.EfficiencyScore
	} else {
		done, late := len(report.Completed), len(report.Overdue)
		report.EfficiencyScore = math.Round(float64(done)/float64(max(1, done+late))*100) / 100
	}
	return report, nil
}

// SynthesizeWeeklyArcs runs the weekly synthesizer over each week window.
// A nil events slice is loaded from the timeline for the resolved range.
func (e *Engine) SynthesizeWeeklyArcs(ctx context.Context, start, end time.Time, events []models.TimelineEvent) ([]WeeklyArc, error) {
	start, end = e.ResolveMonthRange(start, end)
	if events == nil {
		var err error
		if events, err = e.queryRange(start, end, false); err != nil {
			return nil, err
		}
	}

	arcs := []WeeklyArc{}
	for _, w := range Partition(start, end, events) {
		var n Narrative
		if e.weekly != nil {
			var err error
			n, err = e.weekly.Synthesize(ctx, w.Events, w.Start, w.End)
			if err != nil {
				return nil, fmt.Errorf("arc: synthesize %s: %w", w.Label, err)
			}
		}
		arcs = append(arcs, WeeklyArc{
			WeekLabel: w.Label,
			Start:     timeline.FormatDate(w.Start),
			End:       timeline.FormatDate(w.End),
			Arc:       n,
		})
	}
	return arcs, nil
}

// GenerateMonthNarrative stitches the month's hook and arc and gathers
// subplots and turning points from the weekly arcs. Without turning
// points it falls back to the first three event titles. A nil events
// slice is loaded for the current month.
func (e *Engine) GenerateMonthNarrative(ctx context.Context, events []models.TimelineEvent, weekly []WeeklyArc) (MonthNarrative, error) {
	if events == nil {
		month, err := e.GatherMonthEvents(time.Time{}, time.Time{})
		if err != nil {
			return MonthNarrative{}, err
		}
		events = month.Events
	}

	var stitched Stitched
	if e.stitcher != nil {
		var err error
		if stitched, err = e.stitcher.Stitch(ctx, events); err != nil {
			return MonthNarrative{}, fmt.Errorf("arc: stitch narrative: %w", err)
		}
	}

	subplots, turning := []string{}, []string{}
	for _, w := range weekly {
		if w.Arc.Arc != "" {
			subplots = append(subplots, w.Arc.Arc)
		}
		turning = append(turning, w.Arc.TurningPoints...)
	}
	if len(turning) == 0 {
		for i := 0; i < len(events) && i < 3; i++ {
			if events[i].Title != "" {
				turning = append(turning, events[i].Title)
			}
		}
	}

	n := MonthNarrative{
		Hook:          stitched.Hook,
		Arc:           stitched.Arc,
		Subplots:      subplots,
		TurningPoints: turning,
		Resolution:    Resolution,
	}
	if len(turning) > 0 {
		n.Climax = turning[0]
	}
	return n, nil
}

// RunMonthlyDriftAudit audits events for drift. A nil events slice audits
// the whole timeline, archived rows included.
func (e *Engine) RunMonthlyDriftAudit(ctx context.Context, events []models.TimelineEvent) (DriftReport, error) {
	if events == nil {
		var err error
		if events, err = e.events.QueryEvents(timeline.Query{IncludeArchived: true}); err != nil {
			return DriftReport{}, fmt.Errorf("arc: query events: %w", err)
		}
	}

	issues := []DriftIssue{}
	if e.drift != nil {
		found, err := e.drift.Audit(ctx, events)
		if err != nil {
			return DriftReport{}, fmt.Errorf("arc: drift audit: %w", err)
		}
		issues = nonNil(found)
	}
	return DriftReport{
		Issues:   issues,
		Severity: Severity(len(issues)),
		Notes:    driftNotes(len(issues)),
	}, nil
}

// Severity grades a drift issue count: more than five is high, one to
// five medium, none low.
func Severity(issues int) string {
	switch {
	case issues > 5:
		return SeverityHigh
	case issues > 0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func driftNotes(issues int) string {
	if issues == 0 {
		return "No drift detected."
	}
	return fmt.Sprintf("%d drift signals detected.", issues)
}

// ConstructMonthArc assembles the full MonthArc for the resolved range.
func (e *Engine) ConstructMonthArc(ctx context.Context, start, end time.Time) (*MonthArc, error) {
	start, end = e.ResolveMonthRange(start, end)

	month, err := e.GatherMonthEvents(start, end)
	if err != nil {
		return nil, err
	}
	events := month.Events

	weekly, err := e.SynthesizeWeeklyArcs(ctx, start, end, events)
	if err != nil {
		return nil, err
	}
	narrative, err := e.GenerateMonthNarrative(ctx, events, weekly)
	if err != nil {
		return nil, err
	}
	// Drift looks at archived rows too so unreplaced archives surface.
	audited, err := e.queryRange(start, end, true)
	if err != nil {
		return nil, err
	}
	drift, err := e.RunMonthlyDriftAudit(ctx, audited)
	if err != nil {
		return nil, err
	}
	tasks, err := e.SummarizeMonthTasks(ctx)
	if err != nil {
		return nil, err
	}

	arc := &MonthArc{
		TimeWindow: fmt.Sprintf("%s to %s", timeline.FormatDate(start), timeline.FormatDate(end)),
		Events:     month,
		Tasks:      tasks,
		WeeklyArcs: weekly,
		Narrative:  narrative,
		Themes:     InferMonthlyThemes(events, weekly),
		Epics:      DetectEpicProgression(events),
		Drift:      drift,
	}
	e.logger.Debug("month arc constructed",
		slog.String("time_window", arc.TimeWindow),
		slog.Int("events", month.Stats.Count),
		slog.Int("weeks", len(weekly)),
		slog.String("drift_severity", drift.Severity))
	return arc, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
