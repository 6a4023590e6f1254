package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8888", cfg.Service.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 3, cfg.Service.RetryMax)

	assert.Equal(t, 10*time.Second, cfg.Poll.RunningActive)
	assert.Equal(t, time.Minute, cfg.Poll.RunningStandby)
	assert.Equal(t, "never", cfg.Poll.Standby)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KERNEL_BASE_URL", "https://hub.example.com")
	t.Setenv("KERNEL_TOKEN", "s3cret")
	t.Setenv("POLL_RUNNING_ACTIVE", "2s")
	t.Setenv("POLL_STANDBY", "when-idle")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://hub.example.com", cfg.Service.BaseURL)
	assert.Equal(t, "s3cret", cfg.Service.Token)
	assert.Equal(t, 2*time.Second, cfg.Poll.RunningActive)
	assert.Equal(t, "when-idle", cfg.Poll.Standby)
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("KERNEL_BASE_URL", "http://from-env:8888")
	t.Setenv("LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "kernelmgr.yaml")
	body := `
service:
  base_url: http://from-file:9999
  token: file-token
poll:
  running_active: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// File wins where set.
	assert.Equal(t, "http://from-file:9999", cfg.Service.BaseURL)
	assert.Equal(t, "file-token", cfg.Service.Token)
	assert.Equal(t, 3*time.Second, cfg.Poll.RunningActive)

	// Absent file keys keep environment values.
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefaultNeverFails(t *testing.T) {
	cfg := LoadOrDefault()
	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.Service.BaseURL)
}
