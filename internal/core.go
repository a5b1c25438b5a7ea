package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/drift"
	"github.com/starford/lorekeeper/internal/eventservice"
	"github.com/starford/lorekeeper/internal/index"
	"github.com/starford/lorekeeper/internal/narrative"
	"github.com/starford/lorekeeper/internal/storage"
	"github.com/starford/lorekeeper/internal/tasks"
	"github.com/starford/lorekeeper/internal/timeline"
)

var errConfigRequired = errors.New("config is required")

// Core holds the components shared by every entry point.
type Core struct {
	FS      *storage.FS
	Store   *timeline.Store
	DB      *index.DB
	Engine  *arc.Engine
	Service *eventservice.Service
	Logger  *slog.Logger
}

// Open wires storage, the index and the arc engine from the configuration
// and brings the index in line with the shards on disk.
func Open(logger *slog.Logger, opts ...Option) (*Core, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config

	if err := os.MkdirAll(cfg.Timeline.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create timeline dir: %w", err)
	}
	fs, err := storage.NewFS(cfg.Timeline.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	store := timeline.NewStore(fs)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, fs, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	engine, err := newEngine(cfg, store, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Core{
		FS:      fs,
		Store:   store,
		DB:      db,
		Engine:  engine,
		Service: eventservice.NewService(store, fs, db, engine, app.publisher, logger),
		Logger:  logger,
	}, nil
}

// Close releases the index.
func (c *Core) Close() error {
	return c.DB.Close()
}

func newEngine(cfg *Config, store *timeline.Store, logger *slog.Logger) (*arc.Engine, error) {
	var (
		weekly   arc.WeeklySynthesizer
		stitcher arc.NarrativeStitcher
	)
	switch cfg.Narrative.Provider {
	case NarrativeOpenAI:
		p := narrative.NewOpenAI(cfg.Narrative.APIKey, cfg.Narrative.BaseURL, cfg.Narrative.Model, logger)
		weekly, stitcher = p, p
	default:
		weekly, stitcher = narrative.Heuristic{}, narrative.Heuristic{}
	}

	var taskSource arc.TaskSource
	if cfg.Tasks.Path != "" {
		taskSource = tasks.NewFile(cfg.Tasks.Path, time.Now)
	}

	engine, err := arc.NewEngine(store, weekly, stitcher, taskSource, drift.Auditor{}, arc.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init arc engine: %w", err)
	}
	return engine, nil
}
