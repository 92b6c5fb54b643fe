package domain

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Quality represents a video quality tier
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
	Quality360p  Quality = "360p"
	QualityWorst Quality = "worst"
)

// qualityOrder lists tiers from highest to lowest, used for downgrades
var qualityOrder = []Quality{
	QualityBest, Quality1080p, Quality720p, Quality480p, Quality360p, QualityWorst,
}

// Format represents the output container format
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatMKV  Format = "mkv"
)

// DownloadRequest describes a single download. It is validated at
// construction and never mutated afterwards.
type DownloadRequest struct {
	URL       string
	Quality   Quality
	Format    Format
	AudioOnly bool
	OutputDir string
}

// NewDownloadRequest validates the inputs and returns an immutable request.
// The output directory is created if it does not exist.
func NewDownloadRequest(rawURL string, quality Quality, format Format, audioOnly bool, outputDir string) (DownloadRequest, error) {
	if rawURL == "" {
		return DownloadRequest{}, fmt.Errorf("url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return DownloadRequest{}, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return DownloadRequest{}, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return DownloadRequest{}, fmt.Errorf("url %q has no host", rawURL)
	}

	if !ValidateQuality(quality) {
		return DownloadRequest{}, fmt.Errorf("invalid quality: %s", quality)
	}
	if !ValidateFormat(format) {
		return DownloadRequest{}, fmt.Errorf("invalid format: %s", format)
	}

	if outputDir == "" {
		outputDir = "."
	}
	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return DownloadRequest{}, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return DownloadRequest{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	return DownloadRequest{
		URL:       rawURL,
		Quality:   quality,
		Format:    format,
		AudioOnly: audioOnly,
		OutputDir: absDir,
	}, nil
}

// Host returns the lower-cased host of the request URL.
func (r DownloadRequest) Host() string {
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// Downgraded returns a copy of the request with quality lowered by n tiers.
// Already at the lowest tier, the request is returned unchanged.
func (r DownloadRequest) Downgraded(n int) DownloadRequest {
	idx := 0
	for i, q := range qualityOrder {
		if q == r.Quality {
			idx = i
			break
		}
	}
	idx += n
	if idx >= len(qualityOrder) {
		idx = len(qualityOrder) - 1
	}
	r.Quality = qualityOrder[idx]
	return r
}

// ValidateQuality checks if a quality tier is valid
func ValidateQuality(q Quality) bool {
	for _, known := range qualityOrder {
		if q == known {
			return true
		}
	}
	return false
}

// ValidateFormat checks if a container format is valid
func ValidateFormat(f Format) bool {
	return f == FormatMP4 || f == FormatWebM || f == FormatMKV
}
