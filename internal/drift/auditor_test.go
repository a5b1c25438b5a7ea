package drift

import (
	"context"
	"testing"

	"github.com/starford/lorekeeper/internal/models"
)

func kinds(t *testing.T, events []models.TimelineEvent) []string {
	t.Helper()
	issues, err := Auditor{}.Audit(context.Background(), events)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Kind
	}
	return out
}

func TestAuditClean(t *testing.T) {
	got := kinds(t, []models.TimelineEvent{
		{ID: "1", Date: "2025-01-01", Title: "Typo", Archived: true},
		{ID: "1", Date: "2025-01-01", Title: "Fixed", Source: models.SourceCorrection},
		{ID: "2", Date: "2025-01-01", Title: "Other", Type: "log"},
	})
	if len(got) != 0 {
		t.Errorf("issues = %q, want none", got)
	}
}

func TestAuditDuplicateIDs(t *testing.T) {
	got := kinds(t, []models.TimelineEvent{
		{ID: "dup", Date: "2025-01-01", Title: "a"},
		{ID: "dup", Date: "2025-01-02", Title: "b"},
		{ID: "dup", Date: "2025-01-03", Title: "c", Archived: true},
		{ID: "dup", Date: "2025-01-03", Title: "c", Source: models.SourceCorrection},
	})
	if len(got) != 1 || got[0] != KindDuplicateID {
		t.Errorf("issues = %q", got)
	}
}

func TestAuditConflictingTitles(t *testing.T) {
	issues, err := Auditor{}.Audit(context.Background(), []models.TimelineEvent{
		{ID: "a", Date: "2025-01-01", Type: "training", Title: "Open Mat"},
		{ID: "b", Date: "2025-01-01", Type: "training", Title: "open mat "},
		{ID: "c", Date: "2025-01-02", Type: "training", Title: "Open Mat"},
	})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != KindConflictingTitles {
		t.Fatalf("issues = %+v", issues)
	}
	if len(issues[0].EventIDs) != 2 {
		t.Errorf("ids = %q", issues[0].EventIDs)
	}
}

func TestAuditOrphanedArchive(t *testing.T) {
	got := kinds(t, []models.TimelineEvent{
		{ID: "x", Date: "2025-01-05", Title: "Original", Archived: true},
	})
	if len(got) != 1 || got[0] != KindOrphanedArchive {
		t.Errorf("issues = %q", got)
	}
}

func TestAuditOrphanedArchiveMatching(t *testing.T) {
	tests := []struct {
		name   string
		events []models.TimelineEvent
		want   int
	}{
		{"replaced by same id", []models.TimelineEvent{
			{ID: "x", Date: "2025-01-05", Title: "Old", Archived: true},
			{ID: "x", Date: "2025-01-06", Title: "New", Source: models.SourceUserEntry},
		}, 0},
		{"corrected on same date", []models.TimelineEvent{
			{ID: "x", Date: "2025-01-05", Title: "Old", Archived: true},
			{ID: "y", Date: "2025-01-05", Title: "New", Source: models.SourceCorrection},
		}, 0},
		{"unrelated correction elsewhere", []models.TimelineEvent{
			{ID: "x", Date: "2025-01-05", Title: "Old", Archived: true},
			{ID: "y", Date: "2025-01-20", Title: "Other fix", Source: models.SourceCorrection},
		}, 1},
		{"plain event on same date", []models.TimelineEvent{
			{ID: "x", Date: "2025-01-05", Title: "Old", Archived: true},
			{ID: "y", Date: "2025-01-05", Title: "Gym"},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(t, tt.events)
			if len(got) != tt.want {
				t.Errorf("issues = %q, want %d", got, tt.want)
			}
		})
	}
}

func TestAuditHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Auditor{}).Audit(ctx, nil); err == nil {
		t.Error("expected context error")
	}
}
