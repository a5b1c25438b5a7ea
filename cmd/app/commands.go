package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/lorekeeper/internal"
	"github.com/starford/lorekeeper/internal/journal"
	"github.com/starford/lorekeeper/internal/models"
	"github.com/starford/lorekeeper/internal/render"
	"github.com/starford/lorekeeper/internal/timeline"
)

// withCore opens the shared components for a one-shot command.
func withCore(cmd *cli.Command, fn func(core *internal.Core) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	core, err := internal.Open(internal.NewLogger(cfg), internal.WithConfig(cfg), internal.WithVersion(version))
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(core)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func eventFlags(requireFields bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Event date (YYYY-MM-DD)", Required: requireFields},
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Headline", Required: requireFields},
		&cli.StringFlag{Name: "type", Usage: "Category, e.g. milestone"},
		&cli.StringFlag{Name: "details", Usage: "Longer description"},
		&cli.StringSliceFlag{Name: "tag", Usage: "Tag (repeatable)"},
		&cli.StringFlag{Name: "source", Usage: "Origin of the event"},
		&cli.StringFlag{Name: "sentiment", Usage: "Mood label"},
	}
}

func eventFromFlags(cmd *cli.Command) models.TimelineEvent {
	ev := models.TimelineEvent{
		Date:     cmd.String("date"),
		Title:    cmd.String("title"),
		Type:     cmd.String("type"),
		Details:  cmd.String("details"),
		Tags:     cmd.StringSlice("tag"),
		Source:   cmd.String("source"),
		Metadata: map[string]string{},
	}
	if s := cmd.String("sentiment"); s != "" {
		ev.Metadata[models.MetaSentiment] = s
	}
	return ev
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Append an event to the timeline",
		Flags: eventFlags(true),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withCore(cmd, func(core *internal.Core) error {
				ev := eventFromFlags(cmd)
				if ev.Source == "" {
					ev.Source = models.SourceUserEntry
				}
				stored, err := core.Service.AddEvent(ctx, ev)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, stored)
			})
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "List events matching every given filter",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Usage: "Restrict to one year"},
			&cli.StringFlag{Name: "start", Usage: "Inclusive start date"},
			&cli.StringFlag{Name: "end", Usage: "Inclusive end date"},
			&cli.StringSliceFlag{Name: "tag", Usage: "Match any of these tags (repeatable)"},
			&cli.BoolFlag{Name: "archived", Usage: "Include archived events"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withCore(cmd, func(core *internal.Core) error {
				events, err := core.Service.QueryEvents(ctx, timeline.Query{
					Year:            int(cmd.Int("year")),
					StartDate:       cmd.String("start"),
					EndDate:         cmd.String("end"),
					Tags:            cmd.StringSlice("tag"),
					IncludeArchived: cmd.Bool("archived"),
				})
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, events)
			})
		},
	}
}

func archiveCommand() *cli.Command {
	return &cli.Command{
		Name:      "archive",
		Usage:     "Archive an event by id",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("archive: event id is required")
			}
			return withCore(cmd, func(core *internal.Core) error {
				archived, err := core.Service.ArchiveEvent(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, archived)
			})
		},
	}
}

func correctCommand() *cli.Command {
	return &cli.Command{
		Name:      "correct",
		Usage:     "Archive an event and append its corrected version",
		ArgsUsage: "<id>",
		Flags:     eventFlags(true),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("correct: event id is required")
			}
			return withCore(cmd, func(core *internal.Core) error {
				ev := eventFromFlags(cmd)
				ev.ID = id
				stored, err := core.Service.CorrectEvent(ctx, id, ev)
				if err != nil {
					return err
				}
				return printJSON(os.Stdout, stored)
			})
		},
	}
}

func arcCommand() *cli.Command {
	return &cli.Command{
		Name:  "arc",
		Usage: "Compose the monthly arc (defaults to the current month)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "Range start (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "end", Usage: "Range end (YYYY-MM-DD)"},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "terminal, markdown, compressed, html or json",
				Value:   render.FormatTerminal,
			},
			&cli.IntFlag{Name: "width", Usage: "Word wrap for terminal output", Value: 100},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var bounds [2]time.Time
			for i, name := range []string{"start", "end"} {
				v := cmd.String(name)
				if v == "" {
					continue
				}
				d, err := timeline.ParseDate(v)
				if err != nil {
					return err
				}
				bounds[i] = d
			}
			return withCore(cmd, func(core *internal.Core) error {
				a, err := core.Service.MonthArc(ctx, bounds[0], bounds[1])
				if err != nil {
					return err
				}
				if cmd.String("format") == render.FormatTerminal {
					out, err := render.Terminal(a, int(cmd.Int("width")))
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(os.Stdout, out)
					return err
				}
				body, _, err := render.Render(a, cmd.String("format"))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(os.Stdout, string(body))
				return err
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Append journal entries (markdown with YAML frontmatter) as events",
		ArgsUsage: "<dir>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return fmt.Errorf("import: journal directory is required")
			}
			return withCore(cmd, func(core *internal.Core) error {
				events, failed, err := journal.ReadDir(dir)
				if err != nil {
					return err
				}
				res := core.Service.Import(ctx, events)
				for _, ferr := range failed {
					fmt.Fprintln(os.Stderr, "skipped:", ferr)
				}
				for _, msg := range res.Failed {
					fmt.Fprintln(os.Stderr, "skipped:", msg)
				}
				fmt.Fprintf(os.Stdout, "imported %d events, %d skipped\n", len(res.Added), len(failed)+len(res.Failed))
				return nil
			})
		},
	}
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the search index from the year shards",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return withCore(cmd, func(core *internal.Core) error {
				return core.Service.Reindex()
			})
		},
	}
}
