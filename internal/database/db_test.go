package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bear-kitchen/internal/shared"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kitchen.db")

	t.Run("MigratesFreshStore", func(t *testing.T) {
		db, err := NewDB(path, zerolog.Nop())
		require.NoError(t, err)
		defer db.Close()

		version, err := db.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, Latest().Number, version)
		assert.Equal(t, path, db.Path())
	})

	t.Run("ReopenIsNoop", func(t *testing.T) {
		db, err := NewDB(path, zerolog.Nop())
		require.NoError(t, err)
		defer db.Close()

		version, err := db.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, Latest().Number, version)
	})

	t.Run("DeclaredIndexesExist", func(t *testing.T) {
		db, err := NewDB(path, zerolog.Nop())
		require.NoError(t, err)
		defer db.Close()

		_, indexes := Schema(Latest().Number)
		for c, list := range indexes {
			for _, idx := range list {
				if idx.Name == "" {
					continue
				}
				var name string
				err := db.SQL.QueryRowContext(ctx,
					"SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", idx.Name).Scan(&name)
				assert.NoError(t, err, "collection %s index %s", c, idx.Name)
			}
		}
	})

	t.Run("LaterColumnsExist", func(t *testing.T) {
		db, err := NewDB(path, zerolog.Nop())
		require.NoError(t, err)
		defer db.Close()

		_, err = db.SQL.ExecContext(ctx, "SELECT synced_at FROM recipes LIMIT 0")
		assert.NoError(t, err)
		_, err = db.SQL.ExecContext(ctx, "SELECT name, shopping_list FROM plans LIMIT 0")
		assert.NoError(t, err)
	})
}

func TestNewDB_MalformedStorageIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	junk := strings.Repeat("this is definitely not a sqlite database file\n", 40)
	require.NoError(t, os.WriteFile(path, []byte(junk), 0644))

	db, err := NewDB(path, zerolog.Nop())
	if db != nil {
		db.Close()
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorage)
}
