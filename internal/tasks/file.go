// Package tasks reads task signals for the monthly arc from a YAML file.
//
// The file looks like:
//
//	tasks:
//	  - title: Ship servo firmware
//	    status: done
//	    created: 2025-01-02
//	    due: 2025-01-10
//	    completed: 2025-01-09
//	    priority: true
//
// Lists are computed relative to the calendar month containing "now".
package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/timeline"
)

// Task statuses.
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// Task is one entry of the task file.
type Task struct {
	Title     string `yaml:"title"`
	Status    string `yaml:"status"`
	Created   string `yaml:"created"`
	Due       string `yaml:"due"`
	Completed string `yaml:"completed"`
	Priority  bool   `yaml:"priority"`
}

type document struct {
	Tasks []Task `yaml:"tasks"`
}

// File is an arc.TaskLister and arc.WeeklyTaskBreakdown backed by a YAML
// file. The file is re-read on every call; a missing file means no tasks.
type File struct {
	path string
	now  func() time.Time
}

var (
	_ arc.TaskLister          = (*File)(nil)
	_ arc.WeeklyTaskBreakdown = (*File)(nil)
)

// NewFile creates a task source reading path. A nil now uses time.Now.
func NewFile(path string, now func() time.Time) *File {
	if now == nil {
		now = time.Now
	}
	return &File{path: path, now: now}
}

// Load parses the task file.
func (f *File) Load() ([]Task, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("tasks: read %s: %w", f.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tasks: parse %s: %w", f.path, err)
	}
	for i, t := range doc.Tasks {
		for _, d := range []string{t.Created, t.Due, t.Completed} {
			if d == "" {
				continue
			}
			if _, err := timeline.ParseDate(d); err != nil {
				return nil, fmt.Errorf("tasks: task %d (%q): %w", i, t.Title, err)
			}
		}
	}
	return doc.Tasks, nil
}

// month returns the first and last day of the current month as ISO dates,
// plus today.
func (f *File) month() (first, last, today string) {
	now := f.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return timeline.FormatDate(start), timeline.FormatDate(end), now.Format(timeline.DateLayout)
}

func (f *File) filter(keep func(t Task, first, last, today string) bool) ([]string, error) {
	all, err := f.Load()
	if err != nil {
		return nil, err
	}
	first, last, today := f.month()
	out := []string{}
	for _, t := range all {
		if keep(t, first, last, today) {
			out = append(out, t.Title)
		}
	}
	return out, nil
}

func within(date, first, last string) bool {
	d := dateOnly(date)
	return d != "" && first <= d && d <= last
}

func dateOnly(s string) string {
	if len(s) >= len(timeline.DateLayout) {
		return s[:len(timeline.DateLayout)]
	}
	return s
}

// CompletedTasks lists tasks completed this month.
func (f *File) CompletedTasks(context.Context) ([]string, error) {
	return f.filter(func(t Task, first, last, _ string) bool {
		return t.Status == StatusDone && within(t.Completed, first, last)
	})
}

// OverdueTasks lists open tasks whose due date has passed.
func (f *File) OverdueTasks(context.Context) ([]string, error) {
	return f.filter(func(t Task, _, _, today string) bool {
		return t.Status != StatusDone && t.Due != "" && dateOnly(t.Due) < today
	})
}

// NewTasks lists tasks created this month.
func (f *File) NewTasks(context.Context) ([]string, error) {
	return f.filter(func(t Task, first, last, _ string) bool {
		return within(t.Created, first, last)
	})
}

// PriorityTasks lists open priority tasks.
func (f *File) PriorityTasks(context.Context) ([]string, error) {
	return f.filter(func(t Task, _, _, _ string) bool {
		return t.Priority && t.Status != StatusDone
	})
}

// WeeklyBreakdown groups this month's completed and due tasks into
// seven-day windows anchored at the first of the month.
func (f *File) WeeklyBreakdown(context.Context) ([]arc.TaskWeek, error) {
	all, err := f.Load()
	if err != nil {
		return nil, err
	}
	first, last, today := f.month()
	start, _ := timeline.ParseDate(first)
	end, _ := timeline.ParseDate(last)

	var weeks []arc.TaskWeek
	for _, w := range arc.Partition(start, end, nil) {
		lo, hi := timeline.FormatDate(w.Start), timeline.FormatDate(w.End)
		tw := arc.TaskWeek{Label: w.Label, Completed: []string{}, Overdue: []string{}}
		for _, t := range all {
			switch {
			case t.Status == StatusDone && within(t.Completed, lo, hi):
				tw.Completed = append(tw.Completed, t.Title)
			case t.Status != StatusDone && within(t.Due, lo, hi) && dateOnly(t.Due) < today:
				tw.Overdue = append(tw.Overdue, t.Title)
			}
		}
		weeks = append(weeks, tw)
	}
	return weeks, nil
}
