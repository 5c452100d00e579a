package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.unilove.app", cfg.BaseURL)
	assert.Equal(t, 120, cfg.QueueLimit)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval())
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)

	body := `base_url: https://staging.unilove.app
fallback_host: api.unilove.app
fallback_ip: 203.0.113.10
queue_limit: 50
refresh_interval_minutes: 5
connect_timeout_seconds: 10
request_timeout_seconds: 30
timezone: Africa/Accra
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.unilove.app", cfg.BaseURL)
	assert.Equal(t, "api.unilove.app", cfg.FallbackHost)
	assert.Equal(t, "203.0.113.10", cfg.FallbackIP)
	assert.Equal(t, 50, cfg.QueueLimit)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "Africa/Accra", cfg.Zone().String())
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	require.NoError(t, os.WriteFile(path, []byte("base_url: [broken"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv(EnvConfigPath, path)

	require.NoError(t, Save(&Config{BaseURL: "https://api.unilove.app", QueueLimit: 80}))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.QueueLimit)
}

func TestResolveDataDir_FollowsConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, filepath.Join(dir, "config.yaml"))

	cfg := &Config{}
	got, err := cfg.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestZone_BadNameFallsBack(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Zone())
}
