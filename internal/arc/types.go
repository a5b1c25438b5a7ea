package arc

import "github.com/starford/lorekeeper/internal/models"

// MonthArc is the composed monthly report. It is rebuilt on every request.
type MonthArc struct {
	TimeWindow string         `json:"time_window"`
	Events     MonthEvents    `json:"events"`
	Tasks      TaskReport     `json:"tasks"`
	WeeklyArcs []WeeklyArc    `json:"weekly_arcs"`
	Narrative  MonthNarrative `json:"narrative"`
	Themes     []string       `json:"themes"`
	Epics      []Epic         `json:"epics"`
	Drift      DriftReport    `json:"drift"`
}

// MonthEvents is the event slice of a month plus quick statistics.
type MonthEvents struct {
	Events []models.TimelineEvent `json:"events"`
	Stats  EventStats             `json:"stats"`
}

// EventStats tallies a month's events.
type EventStats struct {
	Count            int            `json:"count"`
	Categories       map[string]int `json:"categories"`
	Tags             map[string]int `json:"tags"`
	SentimentSummary map[string]int `json:"sentiment_summary"`
	WeekSplits       []WeekSplit    `json:"week_splits"`
}

// WeekSplit records how many events fell in one week window.
type WeekSplit struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
	Count int    `json:"count"`
}

// TaskReport is the task section of a MonthArc.
type TaskReport struct {
	Completed       []string   `json:"completed"`
	Overdue         []string   `json:"overdue"`
	NewTasks        []string   `json:"new_tasks"`
	Priority        []string   `json:"priority"`
	EfficiencyScore float64    `json:"efficiency_score"`
	WeekBreakdowns  []TaskWeek `json:"week_breakdowns"`
}

// WeeklyArc pairs a week window with its synthesized narrative.
type WeeklyArc struct {
	WeekLabel string    `json:"week_label"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Arc       Narrative `json:"arc"`
}

// MonthNarrative is the stitched story of the month.
type MonthNarrative struct {
	Hook          string   `json:"hook"`
	Arc           string   `json:"arc"`
	Subplots      []string `json:"subplots"`
	TurningPoints []string `json:"turning_points"`
	Climax        string   `json:"climax"`
	Resolution    string   `json:"resolution"`
}

// Epic is the progress of one long-running theme.
type Epic struct {
	Epic       string   `json:"epic"`
	Progress   string   `json:"progress"`
	Milestones []string `json:"milestones"`
}

// DriftReport is the drift section of a MonthArc.
type DriftReport struct {
	Issues   []DriftIssue `json:"issues"`
	Severity string       `json:"severity"`
	Notes    string       `json:"notes"`
}
