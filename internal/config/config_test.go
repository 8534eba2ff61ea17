package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://postgres@db.example.supabase.co:5432/postgres
  key: service-key
  driver: pq
  debug: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://postgres@db.example.supabase.co:5432/postgres", cfg.Database.URL)
	assert.Equal(t, "service-key", cfg.Database.Key)
	assert.Equal(t, "pq", cfg.Database.Driver)
	assert.True(t, cfg.Database.Debug)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://file-value
  key: file-key
`)

	t.Setenv("SUPABASE_URL", "postgres://env-value")
	t.Setenv("SUPABASE_SERVICE_KEY", "env-key")
	t.Setenv("DATABASE_DEBUG", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-value", cfg.Database.URL)
	assert.Equal(t, "env-key", cfg.Database.Key)
	assert.True(t, cfg.Database.Debug)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("SUPABASE_URL", "postgres://env-only")
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_DEBUG", "")

	// env-only deployments have no config file at all
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-only", cfg.Database.URL)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeConfig(t, "database: [not a mapping")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
