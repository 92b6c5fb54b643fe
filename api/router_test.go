package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/app"
	"github.com/tabortao/vfetch/internal/domain"
	"github.com/tabortao/vfetch/internal/infrastructure"
)

// instantEngine reports success without touching the filesystem.
type instantEngine struct{}

func (e *instantEngine) Run(ctx context.Context, args []string, outputDir string, onEvent domain.EventFunc) domain.Outcome {
	return domain.Success(filepath.Join(outputDir, "video.mp4"), 1024)
}

func setupTestServer(t *testing.T) (*httptest.Server, *app.QueueManager) {
	t.Helper()

	repo, err := infrastructure.NewSQLiteDownloadRepository(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	log := zap.NewNop()
	downloadCfg := &domain.DownloadConfig{
		OutputDir:       t.TempDir(),
		MaxAttempts:     3,
		RetryDelay:      time.Millisecond,
		Timeout:         time.Minute,
		ConcurrentLimit: 1,
	}
	builder := infrastructure.NewInvocationBuilder(&domain.EngineConfig{Binary: "yt-dlp"})
	coordinator := app.NewCoordinator(builder, &instantEngine{}, downloadCfg, log)
	notifier := infrastructure.NewNotificationService(&domain.NotificationConfig{Enabled: false}, log)
	downloadMgr := app.NewDownloadManager(repo, coordinator, notifier, downloadCfg, log)

	queueCfg := &domain.QueueConfig{
		CheckInterval: 10 * time.Millisecond,
		EmptyWaitTime: time.Minute,
	}
	queueMgr := app.NewQueueManager(repo, downloadMgr, queueCfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queueMgr.Start(ctx))
	t.Cleanup(func() {
		cancel()
		if queueMgr.IsRunning() {
			queueMgr.Stop()
		}
	})

	router := SetupRouter(queueMgr, downloadMgr, downloadCfg, log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, queueMgr
}

func TestAddDownloadEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	payload := map[string]interface{}{
		"url":     "https://example.com/watch?v=1",
		"quality": "720p",
	}
	data, _ := json.Marshal(payload)

	resp, err := http.Post(server.URL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Download
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.Quality720p, created.Quality)

	// The queue processor picks it up and completes it.
	require.Eventually(t, func() bool {
		r, err := http.Get(server.URL + "/api/v1/downloads/" + created.ID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var d domain.Download
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			return false
		}
		return d.Status == domain.StatusCompleted
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAddDownloadRejectsInvalidRequest(t *testing.T) {
	server, _ := setupTestServer(t)

	for _, payload := range []map[string]interface{}{
		{},
		{"url": "not-a-url"},
		{"url": "https://example.com/v", "quality": "8k"},
		{"url": "https://example.com/v", "format": "avi"},
	} {
		data, _ := json.Marshal(payload)
		resp, err := http.Post(server.URL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "payload %v", payload)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/downloads/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.DownloadStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(0), stats.Total)
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
