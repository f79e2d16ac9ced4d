package app

import (
	"context"
	"fmt"
	"strings"

	"bear-kitchen/internal/ghost"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/reconcile"
	"bear-kitchen/internal/shared"
)

// PublishRecipe posts a stored recipe to the Ghost blog.
func (a *App) PublishRecipe(ctx context.Context, id int64, publish bool) (*ghost.Post, error) {
	if a.ghost == nil {
		return nil, fmt.Errorf("ghost is not configured: %w", shared.ErrValidation)
	}

	rec, err := a.Recipe(ctx, id)
	if err != nil {
		return nil, err
	}
	post, err := ghost.PostFromRecipe(rec)
	if err != nil {
		return nil, err
	}

	created, err := a.ghost.CreatePost(ctx, post, publish)
	if err != nil {
		return nil, err
	}
	a.logger.Info().Int64("id", id).Str("post", created.ID).Bool("published", publish).Msg("Recipe sent to Ghost")
	return created, nil
}

// ImportGhost adds the blog's posts as new recipes. Posts whose title is
// already in the store are skipped.
func (a *App) ImportGhost(ctx context.Context) (reconcile.Result, int, error) {
	if a.ghost == nil {
		return reconcile.Result{}, 0, fmt.Errorf("ghost is not configured: %w", shared.ErrValidation)
	}

	posts, err := a.ghost.FetchRecipes(ctx)
	if err != nil {
		return reconcile.Result{}, 0, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}

	var (
		records []recipe.Recipe
		skipped int
	)
	now := a.now().UnixMilli()
	for _, post := range posts {
		existing, err := a.recipes.FindBy(ctx, "title", strings.TrimSpace(post.Title))
		if err != nil {
			return reconcile.Result{}, skipped, err
		}
		if len(existing) > 0 {
			skipped++
			continue
		}

		rec, err := ghost.RecipeFromPost(post)
		if err != nil {
			a.logger.Warn().Err(err).Str("post", post.ID).Msg("Skipping unreadable post")
			skipped++
			continue
		}
		rec.CreatedAt, rec.UpdatedAt = now, now
		records = append(records, rec)
	}

	res, err := a.recipes.BulkUpsert(ctx, records)
	result := reconcile.Result{Added: res.Inserted, Replaced: res.Replaced}
	if err != nil {
		return result, skipped, err
	}
	a.logger.Info().Int("added", result.Added).Int("skipped", skipped).Msg("Ghost import complete")
	return result, skipped, nil
}
