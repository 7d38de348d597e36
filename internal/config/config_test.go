package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "builtin", cfg.Torrent.Backend)
	assert.Equal(t, "./data/torrents", cfg.Torrent.DownloadPath)
	assert.Equal(t, 30, cfg.Torrent.MetadataTimeout)
	assert.Equal(t, 24, cfg.Torrent.CleanupMaxAge)
	assert.Equal(t, 100, cfg.Rooms.ChatHistory)
	assert.Equal(t, "./data/syncwatch.db", cfg.Database.Path)
	assert.Empty(t, cfg.Search.URL)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
app:
  port: 9090
  debug: true
torrent:
  backend: qbittorrent
  download_path: /srv/torrents
  metadata_timeout_seconds: 60
  qbittorrent:
    host: http://qb:8081
    username: admin
    password: hunter2
search:
  url: http://jackett:9117/api/v2.0/indexers/all/results/torznab
  api_key: abc123
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "qbittorrent", cfg.Torrent.Backend)
	assert.Equal(t, "/srv/torrents", cfg.Torrent.DownloadPath)
	assert.Equal(t, 60, cfg.Torrent.MetadataTimeout)
	assert.Equal(t, "http://qb:8081", cfg.Torrent.QBittorrent.Host)
	assert.Equal(t, "hunter2", cfg.Torrent.QBittorrent.Password)
	assert.Equal(t, "abc123", cfg.Search.APIKey)

	// Untouched values keep their defaults.
	assert.Equal(t, 24, cfg.Torrent.CleanupMaxAge)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SYNCWATCH_PORT", "7000")
	t.Setenv("SYNCWATCH_DOWNLOAD_PATH", "/mnt/media")
	t.Setenv("SYNCWATCH_SEARCH_URL", "http://prowlarr:9696/1/api")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.App.Port)
	assert.Equal(t, "/mnt/media", cfg.Torrent.DownloadPath)
	assert.Equal(t, "http://prowlarr:9696/1/api", cfg.Search.URL)
}

func TestEnvInvalidPortIgnored(t *testing.T) {
	t.Setenv("SYNCWATCH_PORT", "not-a-port")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}
