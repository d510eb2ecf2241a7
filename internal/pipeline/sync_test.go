package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyscope/internal/crawler"
	"pyscope/internal/registry"
	"pyscope/internal/storage"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFullSync(t *testing.T) {
	root := writeProject(t, map[string]string{
		"pkg/__init__.py":     "",
		"pkg/mod.py":          "x = 1\ny = 2\n",
		"__init__.py":         "",
		"__pycache__/junk.py": "junk",
		"notes.txt":           "not python",
	})
	store := newTestStore(t)
	reg := registry.New()
	sync := NewSync(root, crawler.New(), store, reg)
	ctx := context.Background()

	res, err := sync.Full(ctx)
	require.NoError(t, err)

	t.Run("Counts", func(t *testing.T) {
		assert.Equal(t, 2, res.Indexed, "pkg and pkg.mod")
		assert.Equal(t, 1, res.Skipped, "the root __init__.py has no module name")
		assert.Equal(t, 0, res.Removed)
	})

	t.Run("Registry holds the parsed modules", func(t *testing.T) {
		assert.Equal(t, []string{"pkg", "pkg.mod"}, reg.Names())
	})

	t.Run("Records land in the store", func(t *testing.T) {
		rec, err := store.GetModule(ctx, "pkg.mod")
		require.NoError(t, err)
		assert.Equal(t, filepath.FromSlash("pkg/mod.py"), rec.Path)
		assert.Equal(t, 3, rec.Lines)
		assert.Len(t, rec.Hash, 64, "sha256 hex digest")
	})
}

func TestLoad(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py":    "value = 1\n",
		"helpers.py": "def helper(): ...\n",
	})
	store := newTestStore(t)
	ctx := context.Background()

	first := NewSync(root, crawler.New(), store, registry.New())
	_, err := first.Full(ctx)
	require.NoError(t, err)

	t.Run("Reloads indexed modules into a fresh registry", func(t *testing.T) {
		reg := registry.New()
		sync := NewSync(root, crawler.New(), store, reg)

		res, err := sync.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Indexed)
		assert.Equal(t, []string{"helpers", "main"}, reg.Names())
	})

	t.Run("Missing files are skipped, not fatal", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "helpers.py")))

		reg := registry.New()
		sync := NewSync(root, crawler.New(), store, reg)

		res, err := sync.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Indexed)
		assert.Equal(t, 1, res.Skipped)
		assert.Equal(t, []string{"main"}, reg.Names())
	})
}

func TestRegisterHashAndLines(t *testing.T) {
	root := writeProject(t, nil)
	store := newTestStore(t)
	sync := NewSync(root, crawler.New(), store, registry.New())

	t.Run("Line count is newline count plus one", func(t *testing.T) {
		rec, ok := sync.register(&crawler.File{Path: "m.py", Module: "m", Source: []byte("a = 1\nb = 2")})
		require.True(t, ok)
		assert.Equal(t, 2, rec.Lines)
	})

	t.Run("Identical sources hash identically", func(t *testing.T) {
		a, ok := sync.register(&crawler.File{Path: "a.py", Module: "a", Source: []byte("x = 1\n")})
		require.True(t, ok)
		b, ok := sync.register(&crawler.File{Path: "b.py", Module: "b", Source: []byte("x = 1\n")})
		require.True(t, ok)
		assert.Equal(t, a.Hash, b.Hash)
	})

	t.Run("Unnamed modules are rejected", func(t *testing.T) {
		_, ok := sync.register(&crawler.File{Path: "__init__.py", Module: "", Source: nil})
		assert.False(t, ok)
	})
}
