package arc

import (
	"testing"
	"time"

	"github.com/starford/lorekeeper/internal/models"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestPartitionJanuary(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "a", Date: "2025-01-01"},
		{ID: "b", Date: "2025-01-07"},
		{ID: "c", Date: "2025-01-08"},
		{ID: "d", Date: "2025-01-29"},
		{ID: "e", Date: "2025-01-31"},
	}
	windows := Partition(date(t, "2025-01-01"), date(t, "2025-01-31"), events)

	wantLabels := []string{
		"Week 1 (2025-01-01 to 2025-01-07)",
		"Week 2 (2025-01-08 to 2025-01-14)",
		"Week 3 (2025-01-15 to 2025-01-21)",
		"Week 4 (2025-01-22 to 2025-01-28)",
		"Week 5 (2025-01-29 to 2025-01-31)",
	}
	if len(windows) != len(wantLabels) {
		t.Fatalf("windows = %d, want %d", len(windows), len(wantLabels))
	}
	wantCounts := []int{2, 1, 0, 0, 2}
	for i, w := range windows {
		if w.Label != wantLabels[i] {
			t.Errorf("window %d label = %q, want %q", i, w.Label, wantLabels[i])
		}
		if len(w.Events) != wantCounts[i] {
			t.Errorf("window %d events = %d, want %d", i, len(w.Events), wantCounts[i])
		}
		if w.Events == nil {
			t.Errorf("window %d events should be empty, not nil", i)
		}
	}
}

func TestPartitionContiguousAndBounded(t *testing.T) {
	start, end := date(t, "2024-02-03"), date(t, "2024-03-19")
	windows := Partition(start, end, nil)

	if !windows[0].Start.Equal(start) {
		t.Errorf("first start = %v", windows[0].Start)
	}
	if last := windows[len(windows)-1]; !last.End.Equal(end) {
		t.Errorf("last end = %v", last.End)
	}
	for i, w := range windows {
		days := int(w.End.Sub(w.Start).Hours()/24) + 1
		if days < 1 || days > 7 {
			t.Errorf("window %d spans %d days", i, days)
		}
		if i > 0 && !w.Start.Equal(windows[i-1].End.AddDate(0, 0, 1)) {
			t.Errorf("window %d not contiguous with previous", i)
		}
	}
}

func TestPartitionEveryEventOnce(t *testing.T) {
	var events []models.TimelineEvent
	for d := date(t, "2025-03-01"); d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		events = append(events, models.TimelineEvent{Date: d.Format("2006-01-02")})
	}
	events = append(events, models.TimelineEvent{Date: "2025-04-01"})

	total := 0
	for _, w := range Partition(date(t, "2025-03-01"), date(t, "2025-03-31"), events) {
		total += len(w.Events)
	}
	if total != 31 {
		t.Errorf("assigned %d events, want 31", total)
	}
}

func TestPartitionSingleDay(t *testing.T) {
	d := date(t, "2025-06-15")
	windows := Partition(d, d, []models.TimelineEvent{{Date: "2025-06-15"}})
	if len(windows) != 1 || len(windows[0].Events) != 1 {
		t.Fatalf("windows = %+v", windows)
	}
	if windows[0].Label != "Week 1 (2025-06-15 to 2025-06-15)" {
		t.Errorf("label = %q", windows[0].Label)
	}
}

func TestPartitionStartAfterEnd(t *testing.T) {
	if w := Partition(date(t, "2025-02-01"), date(t, "2025-01-01"), nil); len(w) != 0 {
		t.Errorf("windows = %d, want 0", len(w))
	}
}
