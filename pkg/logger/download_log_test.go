package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadLogWritesRunMarkers(t *testing.T) {
	dir := t.TempDir()

	dl, err := NewDownloadLog(dir)
	require.NoError(t, err)

	dl.WriteHeader("yt-dlp -f best 'https://example.com/v'")
	dl.WriteLine("[download]  42.0% of 10MiB")
	dl.WriteFooter(true, "saved /tmp/video.mp4")
	require.NoError(t, dl.Close())

	path := filepath.Join(dir, "download-"+time.Now().Format("20060102")+".log")
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "$ yt-dlp -f best 'https://example.com/v'")
	assert.Contains(t, text, "[download]  42.0% of 10MiB")
	assert.Contains(t, text, "SUCCESS: saved /tmp/video.mp4")
	assert.Contains(t, text, "=== END ===")
}

func TestDownloadLogAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	first, err := NewDownloadLog(dir)
	require.NoError(t, err)
	first.WriteHeader("yt-dlp run-one")
	require.NoError(t, first.Close())

	second, err := NewDownloadLog(dir)
	require.NoError(t, err)
	second.WriteHeader("yt-dlp run-two")
	require.NoError(t, second.Close())

	path := filepath.Join(dir, "download-"+time.Now().Format("20060102")+".log")
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(content), "run-one")
	assert.Contains(t, string(content), "run-two")
}

func TestNewDownloadLogCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	dl, err := NewDownloadLog(dir)
	require.NoError(t, err)
	defer dl.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
