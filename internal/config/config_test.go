package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HF_API_KEY", "NEWSGRID_DB_PATH", "NEWSGRID_ADDR", "BUILD_REVISION"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultFeeds(), cfg.Feeds)
	assert.Equal(t, DefaultInferenceEndpoint, cfg.Inference.Endpoint)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, "dev", cfg.Revision)
	assert.Empty(t, cfg.Inference.APIKey)

	timeout, err := cfg.Inference.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, timeout)

	delay, err := cfg.Inference.GetRetryDelay()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, delay)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
database:
  path: /tmp/news.db
feeds:
  - url: https://example.com/rss
    name: Example
inference:
  endpoint: http://localhost:9999/model
  timeout: 5s
ingest:
  schedule: "*/30 * * * *"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/news.db", cfg.Database.Path)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Example", cfg.Feeds[0].Name)
	assert.Equal(t, "http://localhost:9999/model", cfg.Inference.Endpoint)
	assert.Equal(t, "15s", cfg.Inference.RetryDelay)
	assert.Equal(t, "*/30 * * * *", cfg.Ingest.Schedule)

	sources := cfg.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "https://example.com/rss", sources[0].URL)
	assert.Equal(t, "Example", sources[0].Source)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HF_API_KEY", "hf_secret")
	t.Setenv("NEWSGRID_DB_PATH", "/var/lib/newsgrid.db")
	t.Setenv("BUILD_REVISION", "abc123")

	path := writeConfig(t, "inference:\n  api_key: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hf_secret", cfg.Inference.APIKey)
	assert.Equal(t, "/var/lib/newsgrid.db", cfg.Database.Path)
	assert.Equal(t, "abc123", cfg.Revision)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := map[string]string{
		"bad yaml":          "feeds: [",
		"bad timeout":       "inference:\n  timeout: soon\n",
		"feed without name": "feeds:\n  - url: https://example.com/rss\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestValidate_RequiresFeeds(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Feeds = nil
	assert.EqualError(t, cfg.Validate(), "at least one feed is required")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Feeds, loaded.Feeds)
	assert.Equal(t, cfg.Database.Path, loaded.Database.Path)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data/news.db"), expandPath("~/data/news.db"))
	assert.Equal(t, "/abs/news.db", expandPath("/abs/news.db"))
}
