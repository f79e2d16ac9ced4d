package reconcile

import (
	"context"
	"fmt"
	"time"

	"bear-kitchen/internal/backup"
	"bear-kitchen/internal/recipe"

	"github.com/rs/zerolog"
)

// CloudStore holds the single cloud copy of the recipe collection.
type CloudStore interface {
	// Download returns the stored document. found is false when no copy
	// has been uploaded yet.
	Download(ctx context.Context) (data []byte, found bool, err error)
	// Upload replaces the stored document.
	Upload(ctx context.Context, data []byte) error
}

// SyncReport describes one completed sync.
type SyncReport struct {
	Merged   Result
	Uploaded int
	SyncedAt int64
}

// Syncer pulls the cloud copy into the store and pushes the store back.
type Syncer struct {
	recipes RecipeStore
	cloud   CloudStore
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewSyncer creates a Syncer. Each cloud call is bounded by timeout when it
// is positive.
func NewSyncer(recipes RecipeStore, cloud CloudStore, timeout time.Duration, logger zerolog.Logger) *Syncer {
	return &Syncer{
		recipes: recipes,
		cloud:   cloud,
		timeout: timeout,
		logger:  logger.With().Str("component", "syncer").Logger(),
		now:     time.Now,
	}
}

// Sync downloads and merges the cloud copy, uploads the full local
// collection and stamps syncedAt on every recipe. A failed step ends the
// sync; records merged before the failure stay merged.
func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	data, found, err := s.download(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to download cloud backup: %w", err)
	}
	if found {
		report.Merged, err = MergeCloud(ctx, s.recipes, data)
		if err != nil {
			return report, fmt.Errorf("failed to merge cloud backup: %w", err)
		}
	}

	recipes, err := s.recipes.List(ctx, recipe.ListOptions{OrderBy: "id"})
	if err != nil {
		return report, err
	}
	doc, err := backup.EncodeRecipes(recipes)
	if err != nil {
		return report, err
	}
	if err := s.upload(ctx, doc); err != nil {
		return report, fmt.Errorf("failed to upload backup: %w", err)
	}
	report.Uploaded = len(recipes)

	report.SyncedAt = s.now().UnixMilli()
	if err := s.recipes.MarkAllSynced(ctx, report.SyncedAt); err != nil {
		return report, err
	}

	s.logger.Info().
		Int("added", report.Merged.Added).
		Int("replaced", report.Merged.Replaced).
		Int("uploaded", report.Uploaded).
		Msg("Cloud sync complete")
	return report, nil
}

// Run syncs once and then on every tick of interval until ctx is done.
// A failed sync is logged and the next tick tries again. A non-positive
// interval disables polling.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		s.logger.Info().Msg("Cloud sync polling disabled")
		return nil
	}

	s.logger.Info().Dur("interval", interval).Msg("Cloud sync polling started")
	s.syncOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Cloud sync polling stopped")
			return nil
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

func (s *Syncer) syncOnce(ctx context.Context) {
	if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("Cloud sync failed")
	}
}

func (s *Syncer) download(ctx context.Context) ([]byte, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.cloud.Download(ctx)
}

func (s *Syncer) upload(ctx context.Context, data []byte) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.cloud.Upload(ctx, data)
}

func (s *Syncer) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
