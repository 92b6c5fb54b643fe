package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tabortao/vfetch/internal/domain"
)

// EngineProbe answers questions about the engine binary without
// performing a download.
type EngineProbe struct {
	binary  string
	timeout time.Duration
}

// NewEngineProbe creates a probe for the configured engine binary.
func NewEngineProbe(config *domain.EngineConfig) *EngineProbe {
	timeout := config.ProbeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EngineProbe{binary: config.Binary, timeout: timeout}
}

// Version runs the engine with --version and returns the reported
// version string. A failure means the binary is missing or broken.
func (p *EngineProbe) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s not found or not runnable (install it with: pip install %s): %w",
			p.binary, p.binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// FetchInfo probes video metadata without downloading. Probe failures
// are not fatal to a download; callers may proceed without metadata.
func (p *EngineProbe) FetchInfo(ctx context.Context, url string) (*domain.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.binary, "--dump-json", "--no-playlist", url).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video info: %w", err)
	}

	var info domain.VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to parse video info: %w", err)
	}
	return &info, nil
}

// FormatDuration renders a duration in seconds as M:SS or H:MM:SS.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
