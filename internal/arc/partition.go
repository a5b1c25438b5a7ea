package arc

import (
	"fmt"
	"time"

	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/timeline"
)

// WeekWindow is one partition of a date range. Start and End are inclusive.
type WeekWindow struct {
	Label  string
	Start  time.Time
	End    time.Time
	Events []models.TimelineEvent
}

// Partition splits [start, end] into consecutive windows of at most seven
// days anchored at start, and assigns each event to the window whose bounds
// contain its date (string comparison, both ends inclusive). The last
// window may be shorter. Returns nil when start is after end.
func Partition(start, end time.Time, events []models.TimelineEvent) []WeekWindow {
	start, end = day(start), day(end)

	var windows []WeekWindow
	for cursor, n := start, 1; !cursor.After(end); n++ {
		weekEnd := cursor.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}
		lo, hi := timeline.FormatDate(cursor), timeline.FormatDate(weekEnd)

		in := []models.TimelineEvent{}
		for _, ev := range events {
			if lo <= ev.Date && ev.Date <= hi {
				in = append(in, ev)
			}
		}
		windows = append(windows, WeekWindow{
			Label:  fmt.Sprintf("Week %d (%s to %s)", n, lo, hi),
			Start:  cursor,
			End:    weekEnd,
			Events: in,
		})
		cursor = weekEnd.AddDate(0, 0, 1)
	}
	return windows
}

// day truncates t to midnight UTC of its calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
