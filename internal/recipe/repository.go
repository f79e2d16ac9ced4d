package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bear-kitchen/internal/database"
	"bear-kitchen/internal/shared"
)

const recipeColumns = "id, title, content, tags, image, created_at, updated_at, synced_at"

// ListOptions selects the ordering of List. OrderBy must be an indexed field.
type ListOptions struct {
	OrderBy string
	Desc    bool
}

// UpsertResult reports what BulkUpsert did, in input order.
type UpsertResult struct {
	IDs      []int64
	Inserted int
	Replaced int
}

// Repository is a database-backed repository for recipes.
type Repository struct {
	db       *sql.DB
	notifier database.Notifier
}

// NewRepository creates a new Repository. Every committed write is reported to notifier.
func NewRepository(d *sql.DB, notifier database.Notifier) *Repository {
	if notifier == nil {
		notifier = database.NopNotifier{}
	}
	return &Repository{db: d, notifier: notifier}
}

// Insert stores rec as a new record, ignoring any id it carries, and sets
// the assigned id on rec.
func (r *Repository) Insert(ctx context.Context, rec *Recipe) (int64, error) {
	normalizeTimestamps(rec)

	var id int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		id, err = insertRecipe(ctx, tx, *rec)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert recipe: %w", err)
	}

	rec.SetID(id)
	r.notifier.Notify(database.CollectionRecipes)
	return id, nil
}

// Update merges patch into the recipe with the given id.
func (r *Repository) Update(ctx context.Context, id int64, patch Patch) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getRecipe(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("recipe %d: %w", id, shared.ErrNotFound)
		}
		patch.Apply(current)
		normalizeTimestamps(current)
		return writeRecipe(ctx, tx, *current)
	})
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	r.notifier.Notify(database.CollectionRecipes)
	return nil
}

// Get retrieves a recipe by its ID. A missing recipe is (nil, nil).
func (r *Repository) Get(ctx context.Context, id int64) (*Recipe, error) {
	rec, err := getRecipe(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	return rec, nil
}

// GetByIDs retrieves the recipes that exist among ids, keyed by id.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Recipe, error) {
	out := make(map[int64]Recipe, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		rec, err := getRecipe(ctx, r.db, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get recipes by IDs: %w", err)
		}
		if rec != nil {
			out[id] = *rec
		}
	}
	return out, nil
}

// Delete removes the recipe. Deleting a missing id is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM recipe_tags WHERE recipe_id = ?", id); err != nil {
			return database.StorageErr(err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id)
		if err != nil {
			return database.StorageErr(err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	if removed > 0 {
		r.notifier.Notify(database.CollectionRecipes)
	}
	return nil
}

// List returns every recipe ordered by an indexed field, ties broken by id.
// The zero ListOptions orders by updatedAt ascending.
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]Recipe, error) {
	field := opts.OrderBy
	if field == "" {
		field = "updatedAt"
	}
	idx, ok := database.Indexed(database.CollectionRecipes, field)
	if !ok || idx.MultiValue {
		return nil, fmt.Errorf("cannot order recipes by %q: %w", field, shared.ErrValidation)
	}

	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM recipes ORDER BY %s %s, id %s", recipeColumns, idx.Column, dir, dir)

	recipes, err := queryRecipes(ctx, r.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// FindBy returns the recipes whose indexed field equals value, ordered by id.
// For tags, a recipe matches when any of its tags equals value.
func (r *Repository) FindBy(ctx context.Context, field string, value any) ([]Recipe, error) {
	idx, ok := database.Indexed(database.CollectionRecipes, field)
	if !ok {
		return nil, fmt.Errorf("recipes have no index on %q: %w", field, shared.ErrValidation)
	}

	var query string
	if idx.MultiValue {
		query = fmt.Sprintf(
			"SELECT %s FROM recipes WHERE id IN (SELECT recipe_id FROM recipe_tags WHERE %s = ?) ORDER BY id",
			recipeColumns, idx.Column)
	} else {
		query = fmt.Sprintf("SELECT %s FROM recipes WHERE %s = ? ORDER BY id", recipeColumns, idx.Column)
	}

	recipes, err := queryRecipes(ctx, r.db, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipes by %s: %w", field, err)
	}
	return recipes, nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recipes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", database.StorageErr(err))
	}
	return count, nil
}

// BulkUpsert writes records in order. A record whose id exists is replaced
// entirely; any other record with an id is stored under that id; a record
// without an id is inserted as new. Each record commits on its own, so a
// failure leaves the earlier records written.
func (r *Repository) BulkUpsert(ctx context.Context, records []Recipe) (UpsertResult, error) {
	var result UpsertResult
	for i, rec := range records {
		normalizeTimestamps(&rec)

		var (
			id       int64
			replaced bool
		)
		err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
			if rec.ID == nil {
				var err error
				id, err = insertRecipe(ctx, tx, rec)
				return err
			}

			id = *rec.ID
			existing, err := getRecipe(ctx, tx, id)
			if err != nil {
				return err
			}
			replaced = existing != nil
			return writeRecipe(ctx, tx, rec)
		})
		if err != nil {
			return result, fmt.Errorf("failed to upsert recipe %d of %d: %w", i+1, len(records), err)
		}

		result.IDs = append(result.IDs, id)
		if replaced {
			result.Replaced++
		} else {
			result.Inserted++
		}
		r.notifier.Notify(database.CollectionRecipes)
	}
	return result, nil
}

// MarkAllSynced stamps syncedAt on every recipe.
func (r *Repository) MarkAllSynced(ctx context.Context, at int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE recipes SET synced_at = ?", at); err != nil {
		return fmt.Errorf("failed to mark recipes synced: %w", database.StorageErr(err))
	}
	r.notifier.Notify(database.CollectionRecipes)
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getRecipe(ctx context.Context, q querier, id int64) (*Recipe, error) {
	row := q.QueryRowContext(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE id = ?", id)
	rec, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Recipe not found
		}
		return nil, err
	}
	return rec, nil
}

func queryRecipes(ctx context.Context, q querier, query string, args ...any) ([]Recipe, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StorageErr(err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageErr(err)
	}
	return recipes, nil
}

func scanRecipe(s rowScanner) (*Recipe, error) {
	var (
		rec      Recipe
		id       int64
		tags     string
		image    string
		syncedAt sql.NullInt64
	)
	err := s.Scan(&id, &rec.Title, &rec.Content, &tags, &image, &rec.CreatedAt, &rec.UpdatedAt, &syncedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, database.StorageErr(err)
	}

	rec.SetID(id)
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("recipe %d has unreadable tags: %w: %w", id, shared.ErrStorage, err)
	}
	if err := json.Unmarshal([]byte(image), &rec.Image); err != nil {
		return nil, fmt.Errorf("recipe %d has unreadable images: %w: %w", id, shared.ErrStorage, err)
	}
	if syncedAt.Valid {
		v := syncedAt.Int64
		rec.SyncedAt = &v
	}
	return &rec, nil
}

func insertRecipe(ctx context.Context, tx *sql.Tx, rec Recipe) (int64, error) {
	tags, image, err := encodeLists(rec)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO recipes (title, content, tags, image, created_at, updated_at, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Content, tags, image, rec.CreatedAt, rec.UpdatedAt, database.Nullable(rec.SyncedAt))
	if err != nil {
		return 0, database.StorageErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, database.StorageErr(err)
	}
	return id, writeTags(ctx, tx, id, rec.Tags)
}

// writeRecipe stores rec under its own id, replacing every field.
func writeRecipe(ctx context.Context, tx *sql.Tx, rec Recipe) error {
	tags, image, err := encodeLists(rec)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recipes (id, title, content, tags, image, created_at, updated_at, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			tags = excluded.tags,
			image = excluded.image,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at`,
		*rec.ID, rec.Title, rec.Content, tags, image, rec.CreatedAt, rec.UpdatedAt, database.Nullable(rec.SyncedAt))
	if err != nil {
		return database.StorageErr(err)
	}
	return writeTags(ctx, tx, *rec.ID, rec.Tags)
}

func writeTags(ctx context.Context, tx *sql.Tx, id int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM recipe_tags WHERE recipe_id = ?", id); err != nil {
		return database.StorageErr(err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, "INSERT INTO recipe_tags (recipe_id, tag) VALUES (?, ?)", id, tag); err != nil {
			return database.StorageErr(err)
		}
	}
	return nil
}

func encodeLists(rec Recipe) (string, string, error) {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal tags: %w: %w", shared.ErrStorage, err)
	}
	image, err := json.Marshal(rec.Image)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal images: %w: %w", shared.ErrStorage, err)
	}
	return string(tags), string(image), nil
}

// normalizeTimestamps fills a missing createdAt and keeps updatedAt >= createdAt.
func normalizeTimestamps(rec *Recipe) {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = shared.NowMillis()
	}
	if rec.UpdatedAt < rec.CreatedAt {
		rec.UpdatedAt = rec.CreatedAt
	}
}
