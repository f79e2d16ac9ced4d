package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bear-kitchen/internal/backup"
	"bear-kitchen/internal/database"
	"bear-kitchen/internal/planner"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) (*recipe.Repository, *planner.PlanRepository) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "reconcile.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return recipe.NewRepository(db.SQL, nil), planner.NewPlanRepository(db.SQL, nil)
}

func seed(t *testing.T, repo *recipe.Repository, titles ...string) []int64 {
	t.Helper()
	var ids []int64
	for _, title := range titles {
		id, err := repo.Insert(context.Background(), &recipe.Recipe{Title: title, Content: "..."})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func int64Ptr(v int64) *int64 { return &v }

func encodeRecipes(t *testing.T, records ...recipe.Recipe) []byte {
	t.Helper()
	doc, err := backup.EncodeRecipes(records)
	require.NoError(t, err)
	return doc
}

func TestRestoreFromFile_AddsEveryRecord(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestStores(t)
	ids := seed(t, repo, "Bigos", "Pierogi")

	doc := encodeRecipes(t,
		recipe.Recipe{ID: int64Ptr(ids[0]), Title: "Bigos (copy)", CreatedAt: 1, UpdatedAt: 2},
		recipe.Recipe{ID: int64Ptr(99), Title: "Zurek", CreatedAt: 1, UpdatedAt: 2},
		recipe.Recipe{Title: "Sernik", CreatedAt: 1, UpdatedAt: 2},
	)

	result, err := RestoreFromFile(ctx, repo, doc)
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 3}, result)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	original, err := repo.Get(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, original)
	assert.Equal(t, "Bigos", original.Title, "restore must not overwrite a local record")

	stray, err := repo.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, stray, "ids from the file must not be kept")
}

func TestRestoreFromFile_MalformedLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestStores(t)
	seed(t, repo, "Bigos")

	for name, doc := range map[string]string{
		"NotJSON":      "definitely not json",
		"Object":       `{"title": "Bigos"}`,
		"BadSecondRow": `[{"title": "ok"}, 42]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := RestoreFromFile(ctx, repo, []byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrParse), "expected ErrParse, got %v", err)

			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestMergeCloud_RemoteWins(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestStores(t)
	ids := seed(t, repo, "Local Bigos", "Pierogi")

	doc := encodeRecipes(t,
		recipe.Recipe{ID: int64Ptr(ids[0]), Title: "Remote Bigos", Tags: []string{"stew"}, CreatedAt: 1, UpdatedAt: 1},
		recipe.Recipe{ID: int64Ptr(40), Title: "Zurek", CreatedAt: 1, UpdatedAt: 1},
	)

	result, err := MergeCloud(ctx, repo, doc)
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 1, Replaced: 1}, result)
	assert.Equal(t, 2, result.Total())

	merged, err := repo.Get(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, "Remote Bigos", merged.Title)
	assert.Equal(t, []string{"stew"}, merged.Tags)
	assert.Equal(t, int64(1), merged.UpdatedAt, "an older remote copy still replaces the local one")

	added, err := repo.Get(ctx, 40)
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Equal(t, "Zurek", added.Title)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMergeCloud_RoundTripsStore(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestStores(t)

	records := []recipe.Recipe{
		{Title: "Gone", Content: "deleted below", Tags: []string{"tmp"}},
		{
			Title:   "Bigos",
			Content: "# Bigos\n\nstew",
			Tags:    []string{"polish", "stew"},
			Image:   recipe.Images{{MimeType: "image/png", Data: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}}},
		},
		{
			Title:   "Pierogi",
			Content: "dough, filling",
			Tags:    []string{"polish"},
			Image:   recipe.Images{{URL: "https://example.com/pierogi.jpg"}},
		},
	}
	for i := range records {
		_, err := source.Insert(ctx, &records[i])
		require.NoError(t, err)
	}
	require.NoError(t, source.Delete(ctx, *records[0].ID))

	before, err := source.List(ctx, recipe.ListOptions{OrderBy: "id"})
	require.NoError(t, err)
	require.Len(t, before, 2)

	doc, err := backup.EncodeRecipes(before)
	require.NoError(t, err)

	target, _ := newTestStores(t)
	result, err := MergeCloud(ctx, target, doc)
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 2}, result)

	after, err := target.List(ctx, recipe.ListOptions{OrderBy: "id"})
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("store changed across export and merge (-before +after):\n%s", diff)
	}

	next, err := target.Insert(ctx, &recipe.Recipe{Title: "Zurek"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next, "new ids must continue after the merged ones")

	restored, err := RestoreFromFile(ctx, source, doc)
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 2}, restored)
	count, err := source.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*len(before), count)
}

type failingStore struct {
	RecipeStore
	written int
}

func (s *failingStore) BulkUpsert(ctx context.Context, records []recipe.Recipe) (recipe.UpsertResult, error) {
	return recipe.UpsertResult{IDs: []int64{1}, Inserted: s.written},
		errors.Join(shared.ErrStorage, errors.New("disk full"))
}

func TestMergeCloud_PartialFailureReportsProgress(t *testing.T) {
	store := &failingStore{written: 1}
	doc := encodeRecipes(t, recipe.Recipe{Title: "a"}, recipe.Recipe{Title: "b"})

	result, err := MergeCloud(context.Background(), store, doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrStorage))
	assert.Equal(t, Result{Added: 1}, result)
}

func TestPlans_RestoreAndMerge(t *testing.T) {
	ctx := context.Background()
	_, plans := newTestStores(t)

	existing := planner.NewWeekPlan("2024-01-01")
	existing.Days.Add(planner.Monday, 1)
	existingID, err := plans.Insert(ctx, &existing)
	require.NoError(t, err)

	incoming := planner.WeekPlan{ID: int64Ptr(existingID), WeekStart: "2024-01-01", Name: func() *string { s := "Remote"; return &s }()}
	incoming.Days.Add(planner.Friday, 7)
	doc, err := backup.EncodePlans([]planner.WeekPlan{incoming})
	require.NoError(t, err)

	t.Run("Restore", func(t *testing.T) {
		result, err := RestorePlansFromFile(ctx, plans, doc)
		require.NoError(t, err)
		assert.Equal(t, Result{Added: 1}, result)

		count, err := plans.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Merge", func(t *testing.T) {
		result, err := MergePlans(ctx, plans, doc)
		require.NoError(t, err)
		assert.Equal(t, Result{Replaced: 1}, result)

		got, err := plans.Get(ctx, existingID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.Name)
		assert.Equal(t, "Remote", *got.Name)
		assert.Empty(t, got.Days.Get(planner.Monday))
		assert.Equal(t, []int64{7}, got.Days.Get(planner.Friday))
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := MergePlans(ctx, plans, []byte(`[{"weekStart": 5}]`))
		assert.True(t, errors.Is(err, shared.ErrParse))
	})
}
