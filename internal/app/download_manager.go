package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/domain"
	"github.com/tabortao/vfetch/internal/infrastructure"
)

// DownloadManager manages download operations
type DownloadManager struct {
	repo        domain.DownloadRepository
	coordinator *Coordinator
	notifier    *infrastructure.NotificationService
	config      *domain.DownloadConfig
	logger      *zap.Logger
	sem         chan struct{}
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.DownloadRepository,
	coordinator *Coordinator,
	notifier *infrastructure.NotificationService,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadManager {
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}
	return &DownloadManager{
		repo:        repo,
		coordinator: coordinator,
		notifier:    notifier,
		config:      config,
		logger:      logger,
		sem:         make(chan struct{}, limit),
	}
}

// ProcessDownload runs one queued record through the coordinator and
// persists the terminal result
func (dm *DownloadManager) ProcessDownload(ctx context.Context, download *domain.Download) error {
	select {
	case dm.sem <- struct{}{}:
		defer func() { <-dm.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	dm.logger.Info("Processing download",
		zap.String("id", download.ID),
		zap.String("url", download.URL))

	req, err := download.Request()
	if err != nil {
		download.MarkFailed(domain.Result{
			Outcome: domain.Fatal(domain.KindUnknown, err.Error()),
		})
		if uerr := dm.repo.Update(download); uerr != nil {
			dm.logger.Error("Failed to update download status", zap.Error(uerr))
		}
		return fmt.Errorf("invalid download record: %w", err)
	}

	// Mark as processing
	download.MarkProcessing()
	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}

	result := dm.coordinator.Execute(ctx, req, nil)

	if result.Succeeded() {
		download.MarkCompleted(result)
		if err := dm.repo.Update(download); err != nil {
			dm.logger.Error("Failed to update download status", zap.Error(err))
		}

		dm.logger.Info("Download completed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.String("file", result.Outcome.FilePath),
			zap.Int("attempts", len(result.Attempts)))

		dm.notifier.NotifyCompleted(download.URL, result.Outcome.FilePath, result.Outcome.FileSize)
		return nil
	}

	download.MarkFailed(result)
	if err := dm.repo.Update(download); err != nil {
		dm.logger.Error("Failed to update download status", zap.Error(err))
	}

	dm.logger.Error("Download failed",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.String("kind", string(result.Outcome.Kind)),
		zap.Int("attempts", len(result.Attempts)))

	dm.notifier.NotifyFailed(download.URL, result.Outcome.Kind)
	return fmt.Errorf("download failed: %s", result.Outcome.Message)
}

// CancelDownload cancels a download that has not finished
func (dm *DownloadManager) CancelDownload(id string) error {
	download, err := dm.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("download not found: %w", err)
	}

	if download.IsTerminal() {
		return fmt.Errorf("download already in terminal state: %s", download.Status)
	}

	download.Status = domain.StatusCancelled
	download.UpdatedAt = time.Now()

	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	dm.logger.Info("Download cancelled", zap.String("id", id))
	return nil
}

// RetryDownload re-queues a failed download
func (dm *DownloadManager) RetryDownload(id string) error {
	download, err := dm.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("download not found: %w", err)
	}

	if download.Status != domain.StatusFailed {
		return fmt.Errorf("download is not in failed state: %s", download.Status)
	}

	// Reset download state
	download.Status = domain.StatusQueued
	download.Attempts = 0
	download.ErrorKind = ""
	download.ErrorMessage = ""
	download.UpdatedAt = time.Now()

	if err := dm.repo.Update(download); err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	dm.logger.Info("Download queued for retry", zap.String("id", id))
	return nil
}
