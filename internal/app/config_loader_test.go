package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabortao/vfetch/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3, config.Download.MaxAttempts)
	assert.Equal(t, 5*time.Minute, config.Download.Timeout)
	assert.Equal(t, "yt-dlp", config.Engine.Binary)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
download:
  output_dir: /data/media
  max_attempts: 5
  retry_delay: 4s
engine:
  binary: /usr/local/bin/yt-dlp
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/media", config.Download.OutputDir)
	assert.Equal(t, 5, config.Download.MaxAttempts)
	assert.Equal(t, 4*time.Second, config.Download.RetryDelay)
	assert.Equal(t, "/usr/local/bin/yt-dlp", config.Engine.Binary)
	assert.Equal(t, "debug", config.Logging.Level)
	// Unspecified values keep their defaults.
	assert.Equal(t, 5*time.Minute, config.Download.Timeout)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
download:
  max_attempts: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max attempts")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "videos"), expandPath("~/videos"))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))

	t.Setenv("VFETCH_TEST_DIR", "/custom")
	assert.Equal(t, "/custom/media", expandPath("$VFETCH_TEST_DIR/media"))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	config := domain.DefaultConfig()
	config.Download.OutputDir = "/data/media"
	config.Download.MaxAttempts = 4

	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/media", loaded.Download.OutputDir)
	assert.Equal(t, 4, loaded.Download.MaxAttempts)
}
