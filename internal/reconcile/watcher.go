package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bear-kitchen/internal/shared"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ImportedSuffix is appended to a dropped backup once it has been restored.
const ImportedSuffix = ".imported"

// Watcher restores recipe backups dropped into a directory.
type Watcher struct {
	dir    string
	store  RecipeStore
	logger zerolog.Logger
}

// NewWatcher creates a Watcher for dir, creating the directory if needed.
func NewWatcher(dir string, store RecipeStore, logger zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create drop directory %s: %w", dir, err)
	}
	return &Watcher{
		dir:    dir,
		store:  store,
		logger: logger.With().Str("component", "watcher").Str("dir", dir).Logger(),
	}, nil
}

// Run imports any backups already in the directory and then watches for new
// ones until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch drop directory %s: %w", w.dir, err)
	}

	w.ImportPending(ctx)

	w.logger.Info().Msg("Watching for dropped backups")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if isBackup(event.Name) {
				w.importFile(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// ImportPending restores every backup currently in the directory and
// returns how many files were imported.
func (w *Watcher) ImportPending(ctx context.Context) int {
	matches, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list drop directory")
		return 0
	}

	imported := 0
	for _, path := range matches {
		if w.importFile(ctx, path) {
			imported++
		}
	}
	return imported
}

func (w *Watcher) importFile(ctx context.Context, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		// Already imported by an earlier event for the same file.
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Error().Err(err).Str("file", path).Msg("Failed to read dropped backup")
		}
		return false
	}

	result, err := RestoreFromFile(ctx, w.store, data)
	if err != nil {
		if errors.Is(err, shared.ErrParse) {
			w.logger.Warn().Err(err).Str("file", path).Msg("Skipping malformed backup")
		} else {
			w.logger.Error().Err(err).Str("file", path).Msg("Failed to restore dropped backup")
		}
		return false
	}

	if err := os.Rename(path, path+ImportedSuffix); err != nil {
		w.logger.Error().Err(err).Str("file", path).Msg("Failed to mark backup as imported")
	}
	w.logger.Info().Str("file", filepath.Base(path)).Int("added", result.Added).Msg("Restored dropped backup")
	return true
}

func isBackup(path string) bool {
	return strings.HasSuffix(path, ".json")
}
