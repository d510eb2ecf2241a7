package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, ".", cfg.Project.Root)
		assert.Equal(t, "pyscope.db", cfg.Index.DBPath)
		assert.Empty(t, cfg.Log.Level)
	})

	t.Run("Values load from YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pyscope.yaml")
		content := `
project:
  root: /srv/app
  exclude:
    - generated
index:
  db_path: /var/lib/pyscope.db
log:
  level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/app", cfg.Project.Root)
		assert.Equal(t, []string{"generated"}, cfg.Project.Exclude)
		assert.Equal(t, "/var/lib/pyscope.db", cfg.Index.DBPath)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pyscope.yaml")
		require.NoError(t, os.WriteFile(path, []byte("project:\n  root: /from/file\n"), 0o644))

		t.Setenv("PYSCOPE_ROOT", "/from/env")
		t.Setenv("PYSCOPE_DB_PATH", "env.db")
		t.Setenv("PYSCOPE_LOG_LEVEL", "warn")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.Project.Root)
		assert.Equal(t, "env.db", cfg.Index.DBPath)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("Malformed YAML fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pyscope.yaml")
		require.NoError(t, os.WriteFile(path, []byte("project: [unclosed"), 0o644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
