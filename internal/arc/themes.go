package arc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/lorekeeper/internal/models"
)

// NoThemes is the single theme reported when nothing qualifies.
const NoThemes = "No major themes detected."

// specialTracks are tags that always earn a "Progress in" theme line.
var specialTracks = []string{"robotics", "omega1", "japanese", "bjj", "training"}

// epicTags maps tags to the epic they advance. Several tags may share an epic.
var epicTags = map[string]string{
	"robotics":      "Robotics: Omega-1",
	"omega1":        "Robotics: Omega-1",
	"japanese":      "Japanese Language",
	"bjj":           "Brazilian Jiu-Jitsu",
	"finances":      "Finances",
	"relationships": "Relationships",
	"health":        "Health",
	"career":        "Career",
}

// tagCount is a tag frequency remembering first-seen order.
type tagCount struct {
	tag   string
	count int
}

func countTags(events []models.TimelineEvent) []tagCount {
	index := map[string]int{}
	var counts []tagCount
	for _, ev := range events {
		for _, tag := range ev.Tags {
			i, ok := index[tag]
			if !ok {
				i = len(counts)
				index[tag] = i
				counts = append(counts, tagCount{tag: tag})
			}
			counts[i].count++
		}
	}
	return counts
}

// InferMonthlyThemes derives ordered theme lines from tag frequency, weekly
// motifs, moods, and special tracks. Identical input yields identical output.
func InferMonthlyThemes(events []models.TimelineEvent, weekly []WeeklyArc) []string {
	counts := countTags(events)

	var trending []string
	for _, c := range counts {
		if c.count > 1 {
			trending = append(trending, c.tag)
		}
	}
	if len(trending) == 0 && len(counts) > 0 {
		ranked := append([]tagCount(nil), counts...)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
		for i := 0; i < len(ranked) && i < 3; i++ {
			trending = append(trending, ranked[i].tag)
		}
	}

	var motifs []string
	for _, w := range weekly {
		if w.Arc.Arc != "" {
			motifs = append(motifs, w.Arc.Arc)
		}
	}

	var moods []string
	for i := range events {
		if m := events[i].Mood(); m != "" {
			moods = append(moods, m)
		}
	}

	seen := make(map[string]struct{}, len(counts))
	for _, c := range counts {
		seen[c.tag] = struct{}{}
	}

	var themes []string
	if len(trending) > 0 {
		sort.Strings(trending)
		themes = append(themes, "Trending tags: "+strings.Join(trending, ", "))
	}
	if len(motifs) > 0 {
		themes = append(themes, "Repeated motifs: "+strings.Join(motifs, ", "))
	}
	if len(moods) > 0 {
		themes = append(themes, "Emotional patterns: "+strings.Join(moods, ", "))
	}
	for _, track := range specialTracks {
		if _, ok := seen[track]; ok {
			themes = append(themes, "Progress in "+track)
		}
	}

	if len(themes) == 0 {
		return []string{NoThemes}
	}
	return themes
}

// DetectEpicProgression groups events under the epics their tags map to,
// in order of first appearance. An event is added once per matching tag,
// so two tags of the same epic count it twice.
func DetectEpicProgression(events []models.TimelineEvent) []Epic {
	var order []string
	groups := map[string][]models.TimelineEvent{}
	for _, ev := range events {
		for _, tag := range ev.Tags {
			name, ok := epicTags[tag]
			if !ok {
				continue
			}
			if _, exists := groups[name]; !exists {
				order = append(order, name)
			}
			groups[name] = append(groups[name], ev)
		}
	}

	epics := make([]Epic, 0, len(order))
	for _, name := range order {
		group := groups[name]
		milestones := []string{}
		for _, ev := range group {
			if ev.Title != "" {
				milestones = append(milestones, ev.Title)
			}
		}
		epics = append(epics, Epic{
			Epic:       name,
			Progress:   fmt.Sprintf("%d updates recorded.", len(group)),
			Milestones: milestones,
		})
	}
	return epics
}
