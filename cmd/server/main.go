package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tabortao/vfetch/api"
	"github.com/tabortao/vfetch/internal/app"
	"github.com/tabortao/vfetch/internal/infrastructure"
	"github.com/tabortao/vfetch/pkg/logger"
)

var configPath = flag.String("config", "", "Config file path")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting vfetch server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("engine", config.Engine.Binary))

	if err := os.MkdirAll(config.Download.OutputDir, 0755); err != nil {
		log.Fatal("Failed to create output directory", zap.Error(err))
	}

	// The engine must be runnable before accepting work.
	probe := infrastructure.NewEngineProbe(&config.Engine)
	version, err := probe.Version(context.Background())
	if err != nil {
		log.Fatal("Engine check failed", zap.Error(err))
	}
	log.Info("Engine available", zap.String("version", version))

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	downloadLog, err := logger.NewDownloadLog(config.Download.LogsDir)
	if err != nil {
		log.Warn("Download log unavailable", zap.Error(err))
	} else {
		defer downloadLog.Close()
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	builder := infrastructure.NewInvocationBuilder(&config.Engine)
	runner := infrastructure.NewProcessRunner(config.Engine.Binary, config.Download.Timeout, downloadLog, log)
	coordinator := app.NewCoordinator(builder, runner, &config.Download, log)
	downloadMgr := app.NewDownloadManager(repo, coordinator, notifier, &config.Download, log)
	queueMgr := app.NewQueueManager(repo, downloadMgr, &config.Queue, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queueMgr.Start(ctx); err != nil {
		log.Fatal("Failed to start queue manager", zap.Error(err))
	}

	router := api.SetupRouter(queueMgr, downloadMgr, &config.Download, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case <-queueMgr.WaitForExit():
		log.Info("Queue empty, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if queueMgr.IsRunning() {
		if err := queueMgr.Stop(); err != nil {
			log.Error("Error stopping queue manager", zap.Error(err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
