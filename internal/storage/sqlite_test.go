package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(name, path string) *ModuleRecord {
	return &ModuleRecord{
		Name:      name,
		Path:      path,
		Hash:      "hash-" + name,
		Lines:     10,
		IndexedAt: time.Now().UTC(),
	}
}

func TestSaveAndGetModule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Round trip", func(t *testing.T) {
		in := record("pkg.mod", "pkg/mod.py")
		require.NoError(t, store.SaveModule(ctx, in))

		out, err := store.GetModule(ctx, "pkg.mod")
		require.NoError(t, err)
		assert.Equal(t, in.Name, out.Name)
		assert.Equal(t, in.Path, out.Path)
		assert.Equal(t, in.Hash, out.Hash)
		assert.Equal(t, in.Lines, out.Lines)
	})

	t.Run("Upsert replaces on conflict", func(t *testing.T) {
		updated := record("pkg.mod", "pkg/mod.py")
		updated.Hash = "hash-changed"
		updated.Lines = 99
		require.NoError(t, store.SaveModule(ctx, updated))

		out, err := store.GetModule(ctx, "pkg.mod")
		require.NoError(t, err)
		assert.Equal(t, "hash-changed", out.Hash)
		assert.Equal(t, 99, out.Lines)
	})

	t.Run("Missing module", func(t *testing.T) {
		_, err := store.GetModule(ctx, "no.such")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestSaveModulesBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	recs := []*ModuleRecord{
		record("zebra", "zebra.py"),
		record("alpha", "alpha.py"),
		record("pkg", "pkg/__init__.py"),
	}
	require.NoError(t, store.SaveModules(ctx, recs))

	t.Run("ListModules is ordered by name", func(t *testing.T) {
		out, err := store.ListModules(ctx)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, "alpha", out[0].Name)
		assert.Equal(t, "pkg", out[1].Name)
		assert.Equal(t, "zebra", out[2].Name)
	})

	t.Run("Empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.SaveModules(ctx, nil))
		out, err := store.ListModules(ctx)
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})
}

func TestDeleteByPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveModule(ctx, record("keep", "keep.py")))
	require.NoError(t, store.SaveModule(ctx, record("drop", "drop.py")))

	require.NoError(t, store.DeleteByPath(ctx, "drop.py"))

	out, err := store.ListModules(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].Name)

	// Deleting an unknown path is not an error.
	assert.NoError(t, store.DeleteByPath(ctx, "never.py"))
}
