package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bear-kitchen/internal/recipe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWatcher_ImportPending(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestStores(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "backup_2024-01-01.json")
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(good, encodeRecipes(t, recipe.Recipe{Title: "Bigos"}, recipe.Recipe{Title: "Zurek"}), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("{not a backup"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	w, err := NewWatcher(dir, repo, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, w.ImportPending(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.False(t, exists(good))
	assert.True(t, exists(good+ImportedSuffix))
	assert.True(t, exists(bad), "a malformed backup must stay where it was dropped")

	// Imported files are not picked up again.
	assert.Equal(t, 0, w.ImportPending(ctx))
}

func TestWatcher_RestoresDroppedBackup(t *testing.T) {
	repo, _ := newTestStores(t)
	seed(t, repo, "Pierogi")
	dir := filepath.Join(t.TempDir(), "drop")

	w, err := NewWatcher(dir, repo, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	tmp := filepath.Join(dir, "incoming.tmp")
	target := filepath.Join(dir, "backup_2024-02-02.json")
	require.NoError(t, os.WriteFile(tmp, encodeRecipes(t, recipe.Recipe{ID: int64Ptr(1), Title: "Bigos"}), 0644))
	require.NoError(t, os.Rename(tmp, target))

	require.Eventually(t, func() bool {
		return exists(target + ImportedSuffix)
	}, 5*time.Second, 20*time.Millisecond)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	first, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Pierogi", first.Title)
}
