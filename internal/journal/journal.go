// Package journal turns Markdown journal entries with YAML frontmatter into
// timeline events.
package journal

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/lorekeeper/internal/apperr"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/timeline"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

type frontmatter struct {
	ID        string            `yaml:"id"`
	Date      string            `yaml:"date"`
	Title     string            `yaml:"title"`
	Type      string            `yaml:"type"`
	Tags      []string          `yaml:"tags"`
	Source    string            `yaml:"source"`
	Sentiment string            `yaml:"sentiment"`
	Tone      string            `yaml:"tone"`
	Metadata  map[string]string `yaml:"metadata"`
}

// Parse converts one entry into an event. The frontmatter must carry a
// date; the title falls back to the first H1 heading and the body becomes
// the event details. Inline #tags in the body are appended to the
// frontmatter tags.
func Parse(data []byte) (models.TimelineEvent, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return models.TimelineEvent{}, fmt.Errorf("%w: entry has no frontmatter", apperr.ErrInvalidInput)
	}
	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return models.TimelineEvent{}, fmt.Errorf("%w: frontmatter: %v", apperr.ErrInvalidInput, err)
	}
	if fm.Date == "" {
		return models.TimelineEvent{}, fmt.Errorf("%w: frontmatter has no date", apperr.ErrInvalidInput)
	}
	if _, err := timeline.ParseDate(fm.Date); err != nil {
		return models.TimelineEvent{}, err
	}

	meta := map[string]string{}
	for k, v := range fm.Metadata {
		meta[k] = v
	}
	if fm.Sentiment != "" {
		meta[models.MetaSentiment] = fm.Sentiment
	}
	if fm.Tone != "" {
		meta[models.MetaTone] = fm.Tone
	}
	source := fm.Source
	if source == "" {
		source = models.SourceJournal
	}

	title, details := fm.Title, strings.TrimSpace(body)
	if title == "" {
		title, details = headingTitle(details)
	}

	return models.TimelineEvent{
		ID:       fm.ID,
		Date:     fm.Date,
		Title:    title,
		Type:     fm.Type,
		Details:  details,
		Tags:     mergeTags(fm.Tags, body),
		Source:   source,
		Metadata: meta,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return rest[:idx], body, true
}

// headingTitle pulls a leading "# " heading out of body.
func headingTitle(body string) (string, string) {
	first, rest, _ := strings.Cut(body, "\n")
	if t := strings.TrimSpace(first); strings.HasPrefix(t, "# ") {
		return strings.TrimSpace(t[2:]), strings.TrimSpace(rest)
	}
	return "", body
}

func mergeTags(fmTags []string, body string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range fmTags {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// FileError ties a parse failure to the entry that caused it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// ReadDir parses every .md file under root, in path order. Entries that
// fail to parse are reported alongside the events that succeeded.
func ReadDir(root string) ([]models.TimelineEvent, []error, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("journal: walk %s: %w", root, err)
	}
	sort.Strings(paths)

	events := []models.TimelineEvent{}
	var failed []error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			failed = append(failed, &FileError{Path: p, Err: err})
			continue
		}
		ev, err := Parse(data)
		if err != nil {
			failed = append(failed, &FileError{Path: p, Err: err})
			continue
		}
		events = append(events, ev)
	}
	return events, failed, nil
}
