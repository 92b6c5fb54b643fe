package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/domain"
)

// QueueManager manages the download queue
type QueueManager struct {
	repo        domain.DownloadRepository
	downloadMgr *DownloadManager
	config      *domain.QueueConfig
	logger      *zap.Logger
	mu          sync.RWMutex
	running     bool
	inFlight    map[string]struct{}
	stopChan    chan struct{}
	exitChan    chan struct{}
	exitOnce    sync.Once
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.DownloadRepository,
	downloadMgr *DownloadManager,
	config *domain.QueueConfig,
	logger *zap.Logger,
) *QueueManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueManager{
		repo:        repo,
		downloadMgr: downloadMgr,
		config:      config,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
		stopChan:    make(chan struct{}),
		exitChan:    make(chan struct{}),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.mu.Unlock()

	qm.logger.Info("Queue processor started",
		zap.Duration("check_interval", qm.config.CheckInterval))

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor and waits for in-flight downloads
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.mu.Unlock()

	close(qm.stopChan)
	qm.workerWg.Wait()

	qm.logger.Info("Queue processor stopped")
	return nil
}

// WaitForExit returns a channel closed when the processor auto-exits
// after the queue stays empty past the configured wait time.
func (qm *QueueManager) WaitForExit() <-chan struct{} {
	return qm.exitChan
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddDownload validates the request and queues it for processing
func (qm *QueueManager) AddDownload(req domain.DownloadRequest) (*domain.Download, error) {
	download := domain.NewDownload(req)

	if err := qm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	qm.logger.Info("Download queued",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.String("quality", string(download.Quality)))

	return download, nil
}

// GetDownload retrieves a download by ID
func (qm *QueueManager) GetDownload(id string) (*domain.Download, error) {
	return qm.repo.FindByID(id)
}

// ListRecent lists the most recent downloads, newest first
func (qm *QueueManager) ListRecent(limit int) ([]*domain.Download, error) {
	return qm.repo.FindRecent(limit)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.DownloadStats, error) {
	return qm.repo.GetStats()
}

// processQueue polls for pending downloads and dispatches them
func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	ticker := time.NewTicker(qm.config.CheckInterval)
	defer ticker.Stop()

	emptyStartTime := time.Time{}

	for {
		select {
		case <-ctx.Done():
			qm.logger.Info("Queue processor exiting", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.logger.Info("Queue processor exiting", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
			pending, err := qm.repo.FindPending()
			if err != nil {
				qm.logger.Error("Failed to fetch pending downloads", zap.Error(err))
				continue
			}

			if len(pending) == 0 && qm.idle() {
				if emptyStartTime.IsZero() {
					emptyStartTime = time.Now()
				} else if qm.config.AutoExitOnEmpty && time.Since(emptyStartTime) > qm.config.EmptyWaitTime {
					qm.logger.Info("Queue empty, auto-exiting")
					qm.exitOnce.Do(func() { close(qm.exitChan) })
					return
				}
				continue
			}

			// Reset empty timer
			emptyStartTime = time.Time{}

			for _, download := range pending {
				if !qm.claim(download.ID) {
					// Already dispatched on a previous tick
					continue
				}

				// The semaphore in DownloadManager controls actual concurrency
				qm.workerWg.Add(1)
				go func(download *domain.Download) {
					defer qm.workerWg.Done()
					defer qm.release(download.ID)

					if err := qm.downloadMgr.ProcessDownload(ctx, download); err != nil {
						qm.logger.Error("Failed to process download",
							zap.String("id", download.ID),
							zap.Error(err))
						return
					}

					qm.logger.Info("Download finished",
						zap.String("id", download.ID),
						zap.String("status", string(download.Status)),
						zap.String("file_path", download.FilePath))
				}(download)
			}
		}
	}
}

func (qm *QueueManager) claim(id string) bool {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	if _, ok := qm.inFlight[id]; ok {
		return false
	}
	qm.inFlight[id] = struct{}{}
	return true
}

func (qm *QueueManager) release(id string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	delete(qm.inFlight, id)
}

func (qm *QueueManager) idle() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return len(qm.inFlight) == 0
}
