package render

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/starford/lorekeeper/internal/apperr"
	"github.com/starford/lorekeeper/internal/arc"
)

func sampleArc() *arc.MonthArc {
	return &arc.MonthArc{
		TimeWindow: "2025-01-01 to 2025-01-31",
		Tasks: arc.TaskReport{
			Completed:       []string{"ship servo", "file taxes"},
			Overdue:         []string{"dentist"},
			Priority:        []string{"omega1 demo"},
			EfficiencyScore: 0.67,
		},
		WeeklyArcs: []arc.WeeklyArc{
			{WeekLabel: "Week 1 (2025-01-01 to 2025-01-07)", Arc: arc.Narrative{Hook: "A fast start", Arc: "three sessions"}},
		},
		Narrative: arc.MonthNarrative{
			Hook:          "January opened strong",
			Arc:           "Training and robotics",
			Subplots:      []string{"three sessions"},
			TurningPoints: []string{"Blue belt"},
			Climax:        "Blue belt",
			Resolution:    arc.Resolution,
		},
		Themes: []string{"Trending tags: bjj", "Progress in bjj"},
		Epics: []arc.Epic{
			{Epic: "Brazilian Jiu-Jitsu", Progress: "2 updates recorded.", Milestones: []string{"Blue belt", "Open mat"}},
		},
		Drift: arc.DriftReport{Issues: []arc.DriftIssue{}, Severity: "low", Notes: "No drift detected."},
	}
}

func TestMarkdownSectionOrder(t *testing.T) {
	md := Markdown(sampleArc())
	sections := []string{
		"# 🟣 Monthly Arc — 2025-01-01 to 2025-01-31",
		"## 🔥 Opening Hook\nJanuary opened strong",
		"## 📘 Month’s Main Arc\nTraining and robotics",
		"## 🧩 Subplots\n- three sessions",
		"## ⚡ Turning Points\n- Blue belt",
		"## 🏁 Resolution\nTrajectory set for next month.",
		"## 📅 Weekly Beats\n### Week 1 (2025-01-01 to 2025-01-07)\nA fast start\n- three sessions",
		"## 📌 Tasks Summary\n- Completed: ship servo, file taxes\n- Overdue: dentist\n- Priority: omega1 demo\n- Efficiency Score: 0.67",
		"## 🎭 Monthly Themes\n- Trending tags: bjj\n- Progress in bjj",
		"## 🧵 Epics in Motion\n### Brazilian Jiu-Jitsu\n2 updates recorded.\n- Blue belt\n- Open mat",
		"## ⚠️ Drift Auditor\nNo drift detected.",
	}
	pos := -1
	for _, s := range sections {
		i := strings.Index(md, s)
		if i < 0 {
			t.Fatalf("missing section %q in:\n%s", s, md)
		}
		if i <= pos {
			t.Errorf("section %q out of order", s)
		}
		pos = i
	}
	if !strings.HasSuffix(md, "No drift detected.") {
		t.Errorf("markdown should end with drift notes")
	}
}

func TestMarkdownFallbacks(t *testing.T) {
	md := Markdown(&arc.MonthArc{TimeWindow: "2025-02-01 to 2025-02-28"})
	for _, want := range []string{
		"- None recorded.",
		"- No clear turning points identified.",
		"No weekly arcs available.",
		"- Completed: none",
		"- Efficiency Score: 0",
		"- No themes identified.",
		"No epic progress detected.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing fallback %q", want)
		}
	}
}

func TestMarkdownQuietWeekHasNoBullet(t *testing.T) {
	a := sampleArc()
	a.WeeklyArcs = []arc.WeeklyArc{
		{WeekLabel: "Week 2", Arc: arc.Narrative{Hook: "A quiet week from Jan 8 to Jan 14."}},
	}
	md := Markdown(a)
	if !strings.Contains(md, "### Week 2\nA quiet week from Jan 8 to Jan 14.\n\n---") {
		t.Errorf("quiet week rendered as:\n%s", md)
	}
	if strings.Contains(md, "\n- \n") {
		t.Errorf("empty bullet in:\n%s", md)
	}
}

func TestCompressed(t *testing.T) {
	got := Compressed(sampleArc())
	want := "🟣 2025-01-01 to 2025-01-31 Hook: January opened strong Arc: Training and robotics " +
		"Tasks✓ 2 ✅ / 1 ❌ Themes: Trending tags: bjj, Progress in bjj"
	if got != want {
		t.Errorf("compressed =\n%q\nwant\n%q", got, want)
	}

	empty := Compressed(&arc.MonthArc{TimeWindow: "w"})
	if !strings.HasSuffix(empty, "Themes: None") {
		t.Errorf("compressed = %q", empty)
	}
}

func TestHTMLEscapesMarkdown(t *testing.T) {
	a := sampleArc()
	a.Narrative.Hook = "<script>x</script>"
	out := HTML(a)
	if !strings.HasPrefix(out, "<pre>") || !strings.HasSuffix(out, "</pre>") {
		t.Fatalf("html = %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Error("markup should be escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;x&lt;/script&gt;") {
		t.Error("escaped hook missing")
	}
}

func TestJSONIncludesEveryField(t *testing.T) {
	data, err := JSON(sampleArc())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"time_window", "events", "tasks", "weekly_arcs", "narrative", "themes", "epics", "drift"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestRenderDispatch(t *testing.T) {
	a := sampleArc()
	for _, format := range []string{"", FormatMarkdown, FormatCompressed, FormatHTML, FormatJSON} {
		body, ctype, err := Render(a, format)
		if err != nil {
			t.Fatalf("Render(%q): %v", format, err)
		}
		if len(body) == 0 || ctype == "" {
			t.Errorf("Render(%q) returned empty output", format)
		}
	}
	if _, _, err := Render(a, "pdf"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(sampleArc(), 80)
	if err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	if !strings.Contains(out, "Monthly") {
		t.Errorf("terminal output missing title")
	}
}
