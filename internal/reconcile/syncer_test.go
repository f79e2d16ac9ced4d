package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bear-kitchen/internal/backup"
	"bear-kitchen/internal/recipe"
	"bear-kitchen/internal/shared"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloud struct {
	mu          sync.Mutex
	doc         []byte
	downloadErr error
	uploads     int
	sawDeadline bool
}

func (c *fakeCloud) Download(ctx context.Context) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, c.sawDeadline = ctx.Deadline()
	if c.downloadErr != nil {
		return nil, false, c.downloadErr
	}
	return c.doc, c.doc != nil, nil
}

func (c *fakeCloud) Upload(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = append([]byte(nil), data...)
	c.uploads++
	return nil
}

func (c *fakeCloud) uploadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads
}

func TestSyncer_Sync(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestStores(t)
	seed(t, repo, "Bigos")

	cloud := &fakeCloud{doc: encodeRecipes(t, recipe.Recipe{ID: int64Ptr(50), Title: "Zurek", CreatedAt: 1, UpdatedAt: 1})}
	syncer := NewSyncer(repo, cloud, time.Second, zerolog.Nop())
	syncer.now = func() time.Time { return time.UnixMilli(1700000000000) }

	report, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 1}, report.Merged)
	assert.Equal(t, 2, report.Uploaded)
	assert.Equal(t, int64(1700000000000), report.SyncedAt)
	assert.True(t, cloud.sawDeadline, "cloud calls must run under a timeout")

	uploaded, err := backup.DecodeRecipes(cloud.doc)
	require.NoError(t, err)
	var titles []string
	for _, r := range uploaded {
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"Bigos", "Zurek"}, titles)

	all, err := repo.List(ctx, recipe.ListOptions{})
	require.NoError(t, err)
	for _, r := range all {
		require.NotNil(t, r.SyncedAt, "recipe %q was not stamped", r.Title)
		assert.Equal(t, report.SyncedAt, *r.SyncedAt)
	}

	// The uploaded copy now matches the store, so a second sync replaces in place.
	report, err = syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Replaced: 2}, report.Merged)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSyncer_FirstSyncUploadsWithoutMerge(t *testing.T) {
	repo, _ := newTestStores(t)
	seed(t, repo, "Bigos")

	cloud := &fakeCloud{}
	report, err := NewSyncer(repo, cloud, 0, zerolog.Nop()).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, report.Merged)
	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 1, cloud.uploadCount())
}

func TestSyncer_DownloadFailureStopsSync(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestStores(t)
	seed(t, repo, "Bigos")

	cloud := &fakeCloud{downloadErr: fmt.Errorf("drive: %w", shared.ErrNetwork)}
	_, err := NewSyncer(repo, cloud, time.Second, zerolog.Nop()).Sync(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNetwork))
	assert.Zero(t, cloud.uploadCount())

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.SyncedAt)
}

func TestSyncer_MalformedCloudCopy(t *testing.T) {
	repo, _ := newTestStores(t)
	cloud := &fakeCloud{doc: []byte("<html>quota exceeded</html>")}

	_, err := NewSyncer(repo, cloud, time.Second, zerolog.Nop()).Sync(context.Background())
	assert.True(t, errors.Is(err, shared.ErrParse))
	assert.Zero(t, cloud.uploadCount())
}

func TestSyncer_RunStopsWithContext(t *testing.T) {
	repo, _ := newTestStores(t)
	cloud := &fakeCloud{}
	syncer := NewSyncer(repo, cloud, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return cloud.uploadCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSyncer_RunDisabled(t *testing.T) {
	repo, _ := newTestStores(t)
	cloud := &fakeCloud{}

	err := NewSyncer(repo, cloud, time.Second, zerolog.Nop()).Run(context.Background(), 0)
	assert.NoError(t, err)
	assert.Zero(t, cloud.uploadCount())
}
