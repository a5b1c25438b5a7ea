package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/lorekeeper/internal/models"
)

// maxPromptEvents caps how many events are listed in one prompt.
const maxPromptEvents = 60

// WeeklyPrompt lists one week of events and asks for a JSON narrative.
func WeeklyPrompt(events []models.TimelineEvent, start, end time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week from %s to %s.\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	writeEvents(&b, events)
	b.WriteString("\nReturn JSON with keys \"hook\" (one sentence), \"arc\" (two sentences at most) " +
		"and \"turning_points\" (array of event titles that changed direction, may be empty).")
	return b.String()
}

// StitchPrompt lists a month of events and asks for a JSON hook and arc.
func StitchPrompt(events []models.TimelineEvent) string {
	var b strings.Builder
	b.WriteString("A month of personal timeline events.\n")
	writeEvents(&b, events)
	b.WriteString("\nReturn JSON with keys \"hook\" (one sentence that opens the month) " +
		"and \"arc\" (a short paragraph on how the month developed).")
	return b.String()
}

func writeEvents(b *strings.Builder, events []models.TimelineEvent) {
	if len(events) == 0 {
		b.WriteString("No events were recorded.\n")
		return
	}
	for i, ev := range events {
		if i == maxPromptEvents {
			fmt.Fprintf(b, "... and %d more.\n", len(events)-maxPromptEvents)
			break
		}
		fmt.Fprintf(b, "- %s [%s] %s", ev.Date, ev.Type, ev.Title)
		if len(ev.Tags) > 0 {
			fmt.Fprintf(b, " (tags: %s)", strings.Join(ev.Tags, ", "))
		}
		if mood := ev.Mood(); mood != "" {
			fmt.Fprintf(b, " mood: %s", mood)
		}
		b.WriteByte('\n')
	}
}
