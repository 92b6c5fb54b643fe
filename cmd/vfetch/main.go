package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/app"
	"github.com/tabortao/vfetch/internal/domain"
	"github.com/tabortao/vfetch/internal/infrastructure"
	"github.com/tabortao/vfetch/pkg/logger"
)

var (
	configPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "vfetch",
		Short: "vfetch - resilient media downloader",
		Long:  `A command-line wrapper around yt-dlp that retries blocked or throttled downloads with adjusted parameters.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show engine output lines")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

func loadConfig() *domain.Config {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return config
}

func newLogger(config *domain.Config) *zap.Logger {
	level := config.Logging.Level
	if !verbose && level == "info" {
		// Keep the console quiet unless asked; progress has its own line.
		level = "warn"
	}
	log, err := logger.New(logger.Config{
		Level:      level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()
	return ctx, cancel
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a video",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		log := newLogger(config)
		defer log.Sync()

		quality, _ := cmd.Flags().GetString("quality")
		format, _ := cmd.Flags().GetString("format")
		audioOnly, _ := cmd.Flags().GetBool("audio-only")
		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = config.Download.OutputDir
		}

		req, err := domain.NewDownloadRequest(args[0],
			domain.Quality(quality), domain.Format(format), audioOnly, outputDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		probe := infrastructure.NewEngineProbe(&config.Engine)
		ctx, cancel := signalContext()
		defer cancel()

		if _, err := probe.Version(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if info, err := probe.FetchInfo(ctx, req.URL); err == nil {
			fmt.Printf("Title:    %s\n", info.Title)
			if info.Duration > 0 {
				fmt.Printf("Duration: %s\n", infrastructure.FormatDuration(info.Duration))
			}
		}

		downloadLog, err := logger.NewDownloadLog(config.Download.LogsDir)
		if err != nil {
			log.Warn("Download log unavailable", zap.Error(err))
		} else {
			defer downloadLog.Close()
		}

		builder := infrastructure.NewInvocationBuilder(&config.Engine)
		runner := infrastructure.NewProcessRunner(config.Engine.Binary, config.Download.Timeout, downloadLog, log)
		coordinator := app.NewCoordinator(builder, runner, &config.Download, log)

		started := time.Now()
		result := coordinator.Execute(ctx, req, printProgress)
		fmt.Println()

		recordHistory(config, log, req, result)

		if !result.Succeeded() {
			fmt.Fprint(os.Stderr, result.Diagnostic())
			os.Exit(1)
		}

		fmt.Printf("Saved %s (%s) in %s\n",
			result.Outcome.FilePath,
			infrastructure.HumanSize(result.Outcome.FileSize),
			time.Since(started).Round(time.Second))
		if len(result.Attempts) > 1 {
			fmt.Printf("Succeeded on attempt %d of %d\n", len(result.Attempts), config.Download.MaxAttempts)
		}
	},
}

// printProgress renders progress events on a single rewritten line.
func printProgress(ev domain.RunEvent) {
	switch ev.Type {
	case domain.EventProgress:
		line := fmt.Sprintf("\rProgress: %5.1f%%", ev.Percent)
		if ev.Speed != "" {
			line += " at " + ev.Speed
		}
		if ev.ETA != "" {
			line += " ETA " + ev.ETA
		}
		fmt.Print(line)
	case domain.EventLog:
		if verbose {
			fmt.Println(ev.Line)
		}
	}
}

// recordHistory persists the terminal result so `history` and `stats`
// cover one-shot CLI downloads too. Persistence failures are logged,
// never fatal: the file is already on disk.
func recordHistory(config *domain.Config, log *zap.Logger, req domain.DownloadRequest, result domain.Result) {
	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
	if err != nil {
		log.Warn("History unavailable", zap.Error(err))
		return
	}
	defer repo.Close()

	download := domain.NewDownload(req)
	download.MarkProcessing()
	if result.Succeeded() {
		download.MarkCompleted(result)
	} else {
		download.MarkFailed(result)
	}
	if err := repo.Create(download); err != nil {
		log.Warn("Failed to record download history", zap.Error(err))
	}
}

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "Show video metadata without downloading",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		probe := infrastructure.NewEngineProbe(&config.Engine)

		ctx, cancel := signalContext()
		defer cancel()

		info, err := probe.FetchInfo(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("ID:       %s\n", info.ID)
		fmt.Printf("Title:    %s\n", info.Title)
		fmt.Printf("Uploader: %s\n", info.Uploader)
		if info.Duration > 0 {
			fmt.Printf("Duration: %s\n", infrastructure.FormatDuration(info.Duration))
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the download engine is installed",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		probe := infrastructure.NewEngineProbe(&config.Engine)

		ctx, cancel := signalContext()
		defer cancel()

		version, err := probe.Version(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s %s\n", config.Engine.Binary, version)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent downloads",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		limit, _ := cmd.Flags().GetInt("limit")

		repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer repo.Close()

		downloads, err := repo.FindRecent(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tSTATUS\tATTEMPTS\tSIZE\tCREATED")
		for _, d := range downloads {
			size := ""
			if d.FileSize > 0 {
				size = infrastructure.HumanSize(d.FileSize)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				truncate(d.ID, 8),
				truncate(d.URL, 48),
				d.Status,
				d.Attempts,
				size,
				d.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()

		repo, err := infrastructure.NewSQLiteDownloadRepository(config.Queue.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer repo.Close()

		stats, err := repo.GetStats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Queued:     %d\n", stats.Queued)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
	},
}

func init() {
	getCmd.Flags().StringP("quality", "q", "best", "Quality tier (best, 1080p, 720p, 480p, 360p, worst)")
	getCmd.Flags().StringP("format", "f", "mp4", "Container format (mp4, webm, mkv)")
	getCmd.Flags().BoolP("audio-only", "a", false, "Extract audio as mp3")
	getCmd.Flags().StringP("output", "o", "", "Output directory (defaults to configured dir)")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum entries to show")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
