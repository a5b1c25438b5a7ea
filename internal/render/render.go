// Package render serializes a MonthArc for people and machines. Every
// renderer is read-only over the arc.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/starford/lorekeeper/internal/apperr"
	"github.com/starford/lorekeeper/internal/arc"
)

// Output formats.
const (
	FormatMarkdown   = "markdown"
	FormatCompressed = "compressed"
	FormatHTML       = "html"
	FormatJSON       = "json"
	FormatTerminal   = "terminal"
)

// Markdown renders the full monthly report.
func Markdown(a *arc.MonthArc) string {
	n := a.Narrative
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	bullets := func(items []string, fallback string) {
		for _, it := range items {
			line("- " + it)
		}
		if len(items) == 0 {
			line(fallback)
		}
	}
	rule := func() {
		line("")
		line("---")
		line("")
	}

	line("# 🟣 Monthly Arc — " + a.TimeWindow)
	line("")
	line("## 🔥 Opening Hook")
	line(n.Hook)
	line("")
	line("## 📘 Month’s Main Arc")
	line(n.Arc)
	line("")
	line("## 🧩 Subplots")
	bullets(n.Subplots, "- None recorded.")
	line("")
	line("## ⚡ Turning Points")
	bullets(n.TurningPoints, "- No clear turning points identified.")
	line("")
	line("## 🏁 Resolution")
	line(n.Resolution)
	rule()

	line("## 📅 Weekly Beats")
	for _, w := range a.WeeklyArcs {
		line("### " + w.WeekLabel)
		line(w.Arc.Hook)
		if w.Arc.Arc != "" {
			line("- " + w.Arc.Arc)
		}
	}
	if len(a.WeeklyArcs) == 0 {
		line("No weekly arcs available.")
	}
	rule()

	line("## 📌 Tasks Summary")
	line("- Completed: " + list(a.Tasks.Completed))
	line("- Overdue: " + list(a.Tasks.Overdue))
	line("- Priority: " + list(a.Tasks.Priority))
	line("- Efficiency Score: " + strconv.FormatFloat(a.Tasks.EfficiencyScore, 'f', -1, 64))
	rule()

	line("## 🎭 Monthly Themes")
	bullets(a.Themes, "- No themes identified.")
	rule()

	line("## 🧵 Epics in Motion")
	for _, e := range a.Epics {
		line("### " + e.Epic)
		line(e.Progress)
		for _, m := range e.Milestones {
			line("- " + m)
		}
	}
	if len(a.Epics) == 0 {
		line("No epic progress detected.")
	}
	rule()

	line("## ⚠️ Drift Auditor")
	b.WriteString(a.Drift.Notes)
	return b.String()
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// Compressed renders a one-line digest suitable for notifications.
func Compressed(a *arc.MonthArc) string {
	themes := "None"
	if len(a.Themes) > 0 {
		themes = strings.Join(a.Themes, ", ")
	}
	parts := []string{
		"🟣 " + a.TimeWindow,
		"Hook: " + a.Narrative.Hook,
		"Arc: " + a.Narrative.Arc,
		fmt.Sprintf("Tasks✓ %d ✅ / %d ❌", len(a.Tasks.Completed), len(a.Tasks.Overdue)),
		"Themes: " + themes,
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// HTML wraps the escaped markdown report in a <pre> block.
func HTML(a *arc.MonthArc) string {
	return "<pre>" + html.EscapeString(Markdown(a)) + "</pre>"
}

// JSON dumps every MonthArc field, indented.
func JSON(a *arc.MonthArc) ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json: %w", err)
	}
	return data, nil
}

// Terminal renders the markdown report with ANSI styling.
func Terminal(a *arc.MonthArc, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("render: terminal: %w", err)
	}
	out, err := r.Render(Markdown(a))
	if err != nil {
		return "", fmt.Errorf("render: terminal: %w", err)
	}
	return out, nil
}

// Render dispatches on format and returns the body with its content type.
func Render(a *arc.MonthArc, format string) ([]byte, string, error) {
	switch format {
	case "", FormatMarkdown:
		return []byte(Markdown(a)), "text/markdown; charset=utf-8", nil
	case FormatCompressed:
		return []byte(Compressed(a)), "text/plain; charset=utf-8", nil
	case FormatHTML:
		return []byte(HTML(a)), "text/html; charset=utf-8", nil
	case FormatJSON:
		data, err := JSON(a)
		return data, "application/json", err
	case FormatTerminal:
		out, err := Terminal(a, 0)
		return []byte(out), "text/plain; charset=utf-8", err
	default:
		return nil, "", fmt.Errorf("%w: unknown format %q", apperr.ErrInvalidInput, format)
	}
}
