package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bear-kitchen/internal/llm"
	"bear-kitchen/internal/ocr"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"
)

// DefaultScanTitle names a scanned recipe the AI could not title.
const DefaultScanTitle = "Scanned Recipe"

// ErrNoText is returned when OCR finds nothing legible on a photo.
var ErrNoText = fmt.Errorf("could not find any clear text in the photo: %w", shared.ErrValidation)

// CreateRecipe validates and stores a new recipe.
func (a *App) CreateRecipe(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Title == "" {
		return recipe.Recipe{}, fmt.Errorf("please enter a title: %w", shared.ErrValidation)
	}

	now := a.now().UnixMilli()
	rec = rec.WithoutID()
	rec.Tags = recipe.NormalizeTags(rec.Tags)
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if _, err := a.recipes.Insert(ctx, &rec); err != nil {
		return recipe.Recipe{}, err
	}
	a.logger.Info().Int64("id", rec.IDValue()).Str("title", rec.Title).Msg("Recipe created")
	return rec, nil
}

// EditRecipe merges patch into a stored recipe and bumps its updatedAt.
func (a *App) EditRecipe(ctx context.Context, id int64, patch recipe.Patch) (recipe.Recipe, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return recipe.Recipe{}, fmt.Errorf("please enter a title: %w", shared.ErrValidation)
		}
		patch.Title = &title
	}
	if patch.Tags != nil {
		tags := recipe.NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}
	now := a.now().UnixMilli()
	patch.UpdatedAt = &now

	if err := a.recipes.Update(ctx, id, patch); err != nil {
		return recipe.Recipe{}, err
	}
	return a.Recipe(ctx, id)
}

// Recipe returns the stored recipe with id.
func (a *App) Recipe(ctx context.Context, id int64) (recipe.Recipe, error) {
	rec, err := a.recipes.Get(ctx, id)
	if err != nil {
		return recipe.Recipe{}, err
	}
	if rec == nil {
		return recipe.Recipe{}, fmt.Errorf("recipe %d: %w", id, shared.ErrNotFound)
	}
	return *rec, nil
}

// DeleteRecipe removes a recipe. Deleting a missing recipe succeeds.
// Week plans that reference it keep the id until they are edited.
func (a *App) DeleteRecipe(ctx context.Context, id int64) error {
	return a.recipes.Delete(ctx, id)
}

// SearchRecipes lists recipes, most recently updated first. tag narrows the
// list through the tag index; query matches title and tags.
func (a *App) SearchRecipes(ctx context.Context, query, tag string) ([]recipe.Recipe, error) {
	var (
		list []recipe.Recipe
		err  error
	)
	if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
		list, err = a.recipes.FindBy(ctx, "tags", tag)
	} else {
		list, err = a.recipes.List(ctx, recipe.ListOptions{OrderBy: "updatedAt", Desc: true})
	}
	if err != nil || strings.TrimSpace(query) == "" {
		return list, err
	}

	matches := list[:0]
	for _, r := range list {
		if r.Matches(query) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// ScanPhoto reads a recipe photo with the vision model. With a nil target
// it stores a new recipe carrying the photo; otherwise the draft is merged
// into the target recipe. Fields the model could not read are left alone.
func (a *App) ScanPhoto(ctx context.Context, img llm.ImageInput, target *int64) (recipe.Recipe, error) {
	result, err := a.extractor.FromPhoto(ctx, img)
	a.recordMeta(ctx, result.Meta)
	if err != nil {
		return recipe.Recipe{}, err
	}

	if target != nil {
		return a.applyDraft(ctx, *target, result.Draft)
	}

	rec := recipe.Recipe{Image: recipe.Images{{MimeType: img.MimeType, Data: img.Data}}}
	result.Draft.ApplyTo(&rec)
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = DefaultScanTitle
	}
	return a.CreateRecipe(ctx, rec)
}

// ScanText runs OCR on a photo. The text is appended to the target recipe's
// content, or becomes a new recipe. With cleanup set, the text model
// rewrites the text first.
func (a *App) ScanText(ctx context.Context, img llm.ImageInput, target *int64, cleanup bool) (recipe.Recipe, error) {
	if a.ocr == nil {
		return recipe.Recipe{}, fmt.Errorf("ocr is not configured: %w", shared.ErrValidation)
	}
	text, err := a.ocr.Recognize(ctx, img)
	if err != nil {
		return recipe.Recipe{}, err
	}
	if text == "" {
		return recipe.Recipe{}, ErrNoText
	}

	if cleanup {
		result, err := a.extractor.FromText(ctx, "", text)
		a.recordMeta(ctx, result.Meta)
		if err != nil {
			return recipe.Recipe{}, err
		}
		if target != nil {
			return a.applyDraft(ctx, *target, result.Draft)
		}
		rec := recipe.Recipe{Title: DefaultScanTitle, Content: text, Tags: []string{"scanned"}}
		result.Draft.ApplyTo(&rec)
		return a.CreateRecipe(ctx, rec)
	}

	if target == nil {
		return a.CreateRecipe(ctx, recipe.Recipe{Title: DefaultScanTitle, Content: text, Tags: []string{"scanned"}})
	}
	current, err := a.Recipe(ctx, *target)
	if err != nil {
		return recipe.Recipe{}, err
	}
	content := ocr.AppendScanned(current.Content, text)
	return a.EditRecipe(ctx, *target, recipe.Patch{Content: &content})
}

// ClipURL extracts a recipe from a web page and stores it.
func (a *App) ClipURL(ctx context.Context, url string) (recipe.Recipe, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return recipe.Recipe{}, fmt.Errorf("not a web address: %q: %w", url, shared.ErrValidation)
	}

	result, err := a.clipper.ClipURL(ctx, url)
	a.recordMeta(ctx, result.Meta)
	if err != nil {
		return recipe.Recipe{}, err
	}
	return a.CreateRecipe(ctx, result.Recipe)
}

func (a *App) applyDraft(ctx context.Context, id int64, d recipe.Draft) (recipe.Recipe, error) {
	var patch recipe.Patch
	if d.Title != nil && strings.TrimSpace(*d.Title) != "" {
		patch.Title = d.Title
	}
	patch.Content = d.Content
	patch.Tags = d.Tags

	rec, err := a.EditRecipe(ctx, id, patch)
	if errors.Is(err, shared.ErrNotFound) {
		return recipe.Recipe{}, fmt.Errorf("the recipe to scan into is gone: %w", err)
	}
	return rec, err
}
