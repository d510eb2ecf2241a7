package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleName(t *testing.T) {
	cases := []struct {
		rel  string
		want string
	}{
		{"main.py", "main"},
		{"a/b/c.py", "a.b.c"},
		{"pkg/__init__.py", "pkg"},
		{"pkg/sub/__init__.py", "pkg.sub"},
		{"__init__.py", ""},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			assert.Equal(t, tc.want, ModuleName(filepath.FromSlash(tc.rel)))
		})
	}
}

func TestScanProject(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("main.py", "x = 1\n")
	write("pkg/__init__.py", "")
	write("pkg/mod.py", "y = 2\n")
	write("pkg/__pycache__/mod.cpython-312.pyc.py", "junk")
	write("venv/lib/site.py", "junk")
	write("README.md", "not python")

	t.Run("Finds python files and skips tool directories", func(t *testing.T) {
		found := map[string]string{}
		err := New().ScanProject(root, func(f *File) error {
			found[filepath.ToSlash(f.Path)] = f.Module
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"main.py":         "main",
			"pkg/__init__.py": "pkg",
			"pkg/mod.py":      "pkg.mod",
		}, found)
	})

	t.Run("Extra ignore names are honored", func(t *testing.T) {
		count := 0
		err := New("pkg").ScanProject(root, func(f *File) error {
			count++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count, "only main.py remains")
	})

	t.Run("Callback errors abort the walk", func(t *testing.T) {
		boom := assert.AnError
		err := New().ScanProject(root, func(f *File) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Source is read", func(t *testing.T) {
		var got []byte
		err := New("pkg").ScanProject(root, func(f *File) error {
			got = f.Source
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte("x = 1\n"), got)
	})
}
