package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-sh/margin/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "https://backend.prod.researchhub.com/api", cfg.APIBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.FeedTTL)
	assert.Equal(t, 20, cfg.FeedPageSize)
	assert.Equal(t, 15, cfg.PageSize)
	assert.Equal(t, 10, cfg.ReplyPageSize)
	assert.Equal(t, 45*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 20, cfg.MonitorMax)

	assert.True(t, filepath.IsAbs(cfg.CacheDir))
	assert.Equal(t, filepath.Join(cfg.CacheDir, "cache.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "session.json"), cfg.SessionPath)
	assert.Equal(t, filepath.Join(cfg.CacheDir, "debug.log"), cfg.LogPath)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().APIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, config.Default().PageSize, cfg.PageSize)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "margin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url = "http://localhost:8000/api"
cache_dir = "`+dir+`"
log_level = "debug"
page_size = 30
monitor_interval = "90s"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.PageSize)
	assert.Equal(t, 90*time.Second, cfg.MonitorInterval)

	// Untouched keys remain at defaults.
	assert.Equal(t, 10, cfg.ReplyPageSize)
	assert.Equal(t, 20, cfg.MonitorMax)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "margin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir = "`+dir+`"
db_path = "state.db"
session_path = "auth/session.json"
log_path = "margin.log"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "state.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "auth", "session.json"), cfg.SessionPath)
	assert.Equal(t, filepath.Join(dir, "margin.log"), cfg.LogPath)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "margin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`page_size = `), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
