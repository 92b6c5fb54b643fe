package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var mediaExts = map[string]bool{
	".mp4": true, ".mkv": true, ".webm": true, ".m4v": true,
	".mov": true, ".avi": true, ".mp3": true, ".m4a": true,
	".opus": true, ".flac": true,
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// isMediaFile checks if a path looks like a downloaded media file.
// Partial and metadata files are excluded.
func isMediaFile(path string) bool {
	if strings.HasSuffix(path, ".part") || strings.HasSuffix(path, ".info.json") {
		return false
	}
	return mediaExts[strings.ToLower(filepath.Ext(path))]
}

// FindNewMedia returns the media file written to dir since the given
// time. The size is read from the filesystem, not from the engine's
// self-reported value. When several files qualify, the largest wins
// (merged output over intermediate streams).
func FindNewMedia(dir string, since time.Time) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	var bestPath string
	var bestSize int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isMediaFile(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(since) {
			continue
		}
		if info.Size() > bestSize {
			bestPath = path
			bestSize = info.Size()
		}
	}

	if bestPath == "" {
		return "", 0, fmt.Errorf("no media file found in %s", dir)
	}
	return bestPath, bestSize, nil
}

// CleanupPartials removes the engine's partial download leftovers so a
// failed attempt never leaves something that looks like valid output.
func CleanupPartials(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			os.Remove(filepath.Join(dir, name))
		}
	}
}

// HumanSize formats a byte count the way download tools report sizes.
func HumanSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
