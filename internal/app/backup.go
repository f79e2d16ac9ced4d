package app

import (
	"context"
	"fmt"

	"bear-kitchen/internal/backup"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/reconcile"
	"bear-kitchen/internal/shared"
)

// ExportResult describes the files an export wrote.
type ExportResult struct {
	RecipesFile string
	PlansFile   string
	Recipes     int
	Plans       int
	Pruned      int
}

// Export writes the recipe and week plan collections to the backup
// directory and prunes old recipe backups beyond cfg.BackupKeep.
func (a *App) Export(ctx context.Context) (ExportResult, error) {
	var result ExportResult
	now := a.now()

	recipes, err := a.recipes.List(ctx, recipe.ListOptions{OrderBy: "id"})
	if err != nil {
		return result, err
	}
	doc, err := backup.EncodeRecipes(recipes)
	if err != nil {
		return result, err
	}
	if result.RecipesFile, err = a.backups.Save(backup.Filename(now), doc); err != nil {
		return result, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	result.Recipes = len(recipes)

	plans, err := a.plans.List(ctx, planner.ListOptions{OrderBy: "id"})
	if err != nil {
		return result, err
	}
	if len(plans) > 0 {
		doc, err = backup.EncodePlans(plans)
		if err != nil {
			return result, err
		}
		if result.PlansFile, err = a.backups.Save(backup.PlansFilename(now), doc); err != nil {
			return result, fmt.Errorf("%w: %w", shared.ErrStorage, err)
		}
		result.Plans = len(plans)
	}

	if a.cfg.BackupKeep > 0 {
		if result.Pruned, err = a.backups.Prune(a.cfg.BackupKeep); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to prune old backups")
		}
	}

	a.logger.Info().
		Str("file", result.RecipesFile).
		Int("recipes", result.Recipes).
		Int("plans", result.Plans).
		Msg("Backup exported")
	return result, nil
}

// Restore imports a recipe backup document. Every record is added as a new
// recipe; existing recipes are never touched.
func (a *App) Restore(ctx context.Context, data []byte) (reconcile.Result, error) {
	result, err := reconcile.RestoreFromFile(ctx, a.recipes, data)
	if err != nil {
		return result, err
	}
	a.logger.Info().Int("added", result.Added).Msg("Backup restored")
	return result, nil
}

// RestorePlans imports a week plan backup document as new plans.
func (a *App) RestorePlans(ctx context.Context, data []byte) (reconcile.Result, error) {
	return reconcile.RestorePlansFromFile(ctx, a.plans, data)
}

// Merge imports a recipe backup document keeping its ids. A record whose id
// already exists replaces the local copy.
func (a *App) Merge(ctx context.Context, data []byte) (reconcile.Result, error) {
	result, err := reconcile.MergeCloud(ctx, a.recipes, data)
	if err != nil {
		return result, err
	}
	a.logger.Info().Int("added", result.Added).Int("replaced", result.Replaced).Msg("Backup merged")
	return result, nil
}

// MergePlans imports a week plan backup document keeping its ids.
func (a *App) MergePlans(ctx context.Context, data []byte) (reconcile.Result, error) {
	return reconcile.MergePlans(ctx, a.plans, data)
}

// RestoreLatest restores the newest recipe backup in the backup directory.
// It returns the file name it restored.
func (a *App) RestoreLatest(ctx context.Context) (string, reconcile.Result, error) {
	name, err := a.backups.Latest()
	if err != nil {
		return "", reconcile.Result{}, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	if name == "" {
		return "", reconcile.Result{}, fmt.Errorf("no backups in %s: %w", a.backups.Dir(), shared.ErrNotFound)
	}

	data, err := a.backups.Load(name)
	if err != nil {
		return name, reconcile.Result{}, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	result, err := a.Restore(ctx, data)
	return name, result, err
}

// Sync reconciles the store with the cloud copy.
func (a *App) Sync(ctx context.Context) (reconcile.SyncReport, error) {
	if a.syncer == nil {
		return reconcile.SyncReport{}, fmt.Errorf("cloud sync is not configured: %w", shared.ErrValidation)
	}
	return a.syncer.Sync(ctx)
}
