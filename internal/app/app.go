// Package app wires the store, the reconciliation engine and the external
// collaborators into the operations the CLI and the bot expose.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"bear-kitchen/internal/clipper"
	"bear-kitchen/internal/config"
	"bear-kitchen/internal/database"
	"bear-kitchen/internal/drive"
	"bear-kitchen/internal/ghost"
	"bear-kitchen/internal/live"
	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/metrics"
	"bear-kitchen/internal/ocr"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/reconcile"
	"bear-kitchen/internal/shared"
	"bear-kitchen/internal/storage"

	"github.com/rs/zerolog"
)

// OCR reads text off a photo.
type OCR interface {
	Recognize(ctx context.Context, img llm.ImageInput) (string, error)
}

// Collaborators are the external services the app talks to. Any of them
// may be nil; the operations that need a missing one fail with
// shared.ErrValidation.
type Collaborators struct {
	Vision llm.VisionGenerator
	Text   llm.TextGenerator
	OCR    OCR
	Ghost  ghost.Client
	Cloud  reconcile.CloudStore
}

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time

	db        *database.DB
	hub       *live.Hub
	recipes   *recipe.Repository
	plans     *planner.PlanRepository
	board     *planner.Board
	extractor *recipe.Extractor
	clipper   *clipper.Clipper
	metrics   *metrics.Store
	backups   *storage.BackupStore
	syncer    *reconcile.Syncer

	ocr   OCR
	ghost ghost.Client

	closers []func() error
}

// New opens the database at cfg.DatabasePath, runs the migrations and
// builds the app around the given collaborators.
func New(cfg *config.Config, logger zerolog.Logger, c Collaborators) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	backups, err := storage.NewBackupStore(cfg.BackupDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := live.NewHub()
	recipes := recipe.NewRepository(db.SQL, hub)
	plans := planner.NewPlanRepository(db.SQL, hub)

	var chef *planner.Chef
	if c.Text != nil {
		chef = planner.NewChef(c.Text, cfg.NetworkTimeout)
	}
	extractor := recipe.NewExtractor(c.Vision, c.Text, cfg.NetworkTimeout)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		db:        db,
		hub:       hub,
		recipes:   recipes,
		plans:     plans,
		board:     planner.NewBoard(plans, recipes, chef),
		extractor: extractor,
		clipper:   clipper.NewClipper(extractor, cfg.NetworkTimeout),
		metrics:   metrics.NewStore(db.SQL),
		backups:   backups,
		ocr:       c.OCR,
		ghost:     c.Ghost,
	}
	if c.Cloud != nil {
		a.syncer = reconcile.NewSyncer(recipes, c.Cloud, cfg.NetworkTimeout, logger)
	}
	return a, nil
}

// Bootstrap builds the real collaborators from cfg and then the app.
// Collaborators without configuration are left out.
func Bootstrap(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	var (
		c       Collaborators
		closers []func() error
	)

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.Vision = gemini
		closers = append(closers, gemini.Close)
	}
	if cfg.TextAIURL != "" {
		c.Text = llm.NewChatClient(cfg)
	}
	if ocr.Available(cfg) {
		c.OCR = ocr.NewTesseract(cfg)
	} else if cfg.TesseractPath != "" {
		logger.Warn().Str("path", cfg.TesseractPath).Msg("tesseract not found, OCR disabled")
	}
	if cfg.GhostEnabled() {
		c.Ghost = ghost.NewClient(cfg)
	}
	if cfg.DriveEnabled() {
		cloud, err := drive.NewClient(ctx, cfg)
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}
			return nil, err
		}
		c.Cloud = cloud
	}

	a, err := New(cfg, logger, c)
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return nil, err
	}
	a.closers = closers

	logger.Info().
		Str("database", cfg.DatabasePath).
		Bool("vision", c.Vision != nil).
		Bool("cloud", c.Cloud != nil).
		Bool("ghost", c.Ghost != nil).
		Bool("ocr", c.OCR != nil).
		Msg("Bear Kitchen ready")
	return a, nil
}

// Close releases the collaborators and the database.
func (a *App) Close() error {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close collaborator")
		}
	}
	return a.db.Close()
}

// Hub is the write-path observer registry backing live queries.
func (a *App) Hub() *live.Hub { return a.hub }

// Recipes is the recipe store.
func (a *App) Recipes() *recipe.Repository { return a.recipes }

// Plans is the week plan store.
func (a *App) Plans() *planner.PlanRepository { return a.plans }

// Syncer returns the cloud syncer, or nil when cloud sync is not configured.
func (a *App) Syncer() *reconcile.Syncer { return a.syncer }

// Watcher returns a drop-folder watcher, or nil when no drop folder is configured.
func (a *App) Watcher() (*reconcile.Watcher, error) {
	if a.cfg.DropDir == "" {
		return nil, nil
	}
	return reconcile.NewWatcher(a.cfg.DropDir, a.recipes, a.logger)
}

// Health reports process and data directory health.
func (a *App) Health(ctx context.Context) metrics.SysHealth {
	health := metrics.GetSysHealth(filepath.Dir(a.db.Path()))
	version, err := a.db.SchemaVersion(ctx)
	if err != nil {
		health.Status = "degraded"
		a.logger.Warn().Err(err).Msg("Failed to read schema version")
	}
	health.SchemaVersion = version
	return health
}

// Usage returns AI token usage per day for the last days.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metrics.GetDailyUsage(ctx, days)
}

// CleanupMetrics drops AI usage records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("days must be at least 1: %w", shared.ErrValidation)
	}
	return a.metrics.Cleanup(ctx, days)
}

func (a *App) recordMeta(ctx context.Context, meta shared.AgentMeta) {
	if err := a.metrics.RecordMeta(ctx, meta); err != nil {
		a.logger.Warn().Err(err).Str("agent", meta.AgentName).Msg("Failed to record metrics")
	}
}
