package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabortao/vfetch/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteDownloadRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteDownloadRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestDownload(t *testing.T) *domain.Download {
	t.Helper()
	req, err := domain.NewDownloadRequest("https://example.com/v1", domain.Quality720p, domain.FormatMP4, false, t.TempDir())
	require.NoError(t, err)
	return domain.NewDownload(req)
}

func TestSQLiteRepository_CreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)

	dl := newTestDownload(t)
	require.NoError(t, repo.Create(dl))

	found, err := repo.FindByID(dl.ID)
	require.NoError(t, err)
	assert.Equal(t, dl.ID, found.ID)
	assert.Equal(t, domain.Quality720p, found.Quality)
	assert.Equal(t, domain.StatusQueued, found.Status)
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := setupTestRepo(t)

	dl := newTestDownload(t)
	require.NoError(t, repo.Create(dl))

	dl.MarkCompleted(domain.Result{
		Outcome:  domain.Success("/out/video.mp4", 4096),
		Attempts: []domain.Attempt{{}},
	})
	require.NoError(t, repo.Update(dl))

	found, err := repo.FindByID(dl.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, found.Status)
	assert.Equal(t, "/out/video.mp4", found.FilePath)
	assert.Equal(t, int64(4096), found.FileSize)
	assert.Equal(t, 1, found.Attempts)
}

func TestSQLiteRepository_FindPendingOrder(t *testing.T) {
	repo := setupTestRepo(t)

	first := newTestDownload(t)
	require.NoError(t, repo.Create(first))

	second := newTestDownload(t)
	second.CreatedAt = first.CreatedAt.Add(1)
	require.NoError(t, repo.Create(second))

	done := newTestDownload(t)
	done.MarkCompleted(domain.Result{Outcome: domain.Success("/f.mp4", 1)})
	require.NoError(t, repo.Create(done))

	pending, err := repo.FindPending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestSQLiteRepository_FindRecentLimit(t *testing.T) {
	repo := setupTestRepo(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(newTestDownload(t)))
	}

	recent, err := repo.FindRecent(3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestSQLiteRepository_GetStats(t *testing.T) {
	repo := setupTestRepo(t)

	queued := newTestDownload(t)
	require.NoError(t, repo.Create(queued))

	failed := newTestDownload(t)
	failed.MarkFailed(domain.Result{
		Outcome:  domain.Recoverable(domain.KindRateLimited, "HTTP Error 412"),
		Attempts: []domain.Attempt{{}, {}, {}},
	})
	require.NoError(t, repo.Create(failed))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(1), stats.Failed)
}
