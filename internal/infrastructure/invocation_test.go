package infrastructure

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabortao/vfetch/internal/domain"
)

func newTestBuilder() *InvocationBuilder {
	return NewInvocationBuilder(&domain.EngineConfig{Binary: "yt-dlp"})
}

func buildRequest(t *testing.T, url string, quality domain.Quality, format domain.Format, audioOnly bool) domain.DownloadRequest {
	t.Helper()
	req, err := domain.NewDownloadRequest(url, quality, format, audioOnly, t.TempDir())
	require.NoError(t, err)
	return req
}

func TestBuild_VideoSelectors(t *testing.T) {
	builder := newTestBuilder()

	tests := []struct {
		quality  domain.Quality
		selector string
	}{
		{domain.QualityBest, "bestvideo+bestaudio/best"},
		{domain.QualityWorst, "worstvideo+worstaudio/worst"},
		{domain.Quality1080p, "bestvideo[height<=1080]+bestaudio/best[height<=1080]"},
		{domain.Quality720p, "bestvideo[height<=720]+bestaudio/best[height<=720]"},
		{domain.Quality360p, "bestvideo[height<=360]+bestaudio/best[height<=360]"},
	}

	for _, tt := range tests {
		t.Run(string(tt.quality), func(t *testing.T) {
			req := buildRequest(t, "https://example.com/v1", tt.quality, domain.FormatMP4, false)
			args, err := builder.Build(req, Overrides{})
			require.NoError(t, err)

			assert.Contains(t, args, "-f")
			assert.Contains(t, args, tt.selector)
			assert.Contains(t, args, "--merge-output-format")
			assert.Contains(t, args, "mp4")
			assert.Contains(t, args, "--no-playlist")
			assert.Equal(t, "https://example.com/v1", args[len(args)-1])
		})
	}
}

func TestBuild_AudioOnly(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://example.com/v1", domain.QualityBest, domain.FormatMP4, true)

	args, err := builder.Build(req, Overrides{})
	require.NoError(t, err)

	assert.Contains(t, args, "-x")
	assert.Contains(t, args, "--audio-format")
	assert.Contains(t, args, "mp3")
	assert.NotContains(t, args, "--merge-output-format")
}

func TestBuild_AudioOnlyRejectsNonDefaultContainer(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://example.com/v1", domain.QualityBest, domain.FormatWebM, true)

	_, err := builder.Build(req, Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedCombination))
}

func TestBuild_Deterministic(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://www.bilibili.com/video/BV1x", domain.Quality720p, domain.FormatMP4, false)

	first, err := builder.Build(req, Overrides{AttemptIndex: 1})
	require.NoError(t, err)
	second, err := builder.Build(req, Overrides{AttemptIndex: 1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_BilibiliPolicy(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://www.bilibili.com/video/BV1x?spm_id_from=333&p=2", domain.QualityBest, domain.FormatMP4, false)

	args, err := builder.Build(req, Overrides{})
	require.NoError(t, err)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "Referer:https://www.bilibili.com/")
	assert.Contains(t, joined, "User-Agent:")
	assert.Contains(t, joined, "bilibili:videomode=html5")

	// tracking params dropped, part number kept
	assert.Equal(t, "https://www.bilibili.com/video/BV1x?p=2", args[len(args)-1])
}

func TestBuild_BilibiliRetryUsesAlternateExtractor(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://www.bilibili.com/video/BV1x", domain.QualityBest, domain.FormatMP4, false)

	first, err := builder.Build(req, Overrides{AttemptIndex: 0})
	require.NoError(t, err)
	second, err := builder.Build(req, Overrides{AttemptIndex: 1})
	require.NoError(t, err)

	assert.Contains(t, strings.Join(first, " "), "bilibili:videomode=html5")
	assert.Contains(t, strings.Join(second, " "), "bilibili:force_api=1")
	assert.NotEqual(t, first, second)
}

func TestBuild_RetryRotatesUserAgent(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://example.com/v1", domain.QualityBest, domain.FormatMP4, false)

	first, err := builder.Build(req, Overrides{AttemptIndex: 0})
	require.NoError(t, err)
	second, err := builder.Build(req, Overrides{AttemptIndex: 1})
	require.NoError(t, err)
	third, err := builder.Build(req, Overrides{AttemptIndex: 2})
	require.NoError(t, err)

	// no header on the first attempt for unlisted platforms
	assert.NotContains(t, strings.Join(first, " "), "User-Agent:")
	assert.Contains(t, strings.Join(second, " "), "User-Agent:")
	assert.NotEqual(t, second, third)
}

func TestBuild_QualityDowngrade(t *testing.T) {
	builder := newTestBuilder()
	req := buildRequest(t, "https://example.com/v1", domain.Quality1080p, domain.FormatMP4, false)

	args, err := builder.Build(req, Overrides{QualityDowngrade: 1})
	require.NoError(t, err)
	assert.Contains(t, args, "bestvideo[height<=720]+bestaudio/best[height<=720]")
}

func TestBuild_CookieFile(t *testing.T) {
	t.Run("existing cookie file is passed", func(t *testing.T) {
		cookiePath := filepath.Join(t.TempDir(), "cookies.txt")
		require.NoError(t, os.WriteFile(cookiePath, []byte("# cookies"), 0644))

		builder := NewInvocationBuilder(&domain.EngineConfig{Binary: "yt-dlp", CookieFile: cookiePath})
		req := buildRequest(t, "https://example.com/v1", domain.QualityBest, domain.FormatMP4, false)

		args, err := builder.Build(req, Overrides{})
		require.NoError(t, err)
		assert.Contains(t, args, "--cookies")
		assert.Contains(t, args, cookiePath)
	})

	t.Run("missing cookie file is skipped", func(t *testing.T) {
		builder := NewInvocationBuilder(&domain.EngineConfig{Binary: "yt-dlp", CookieFile: "/nonexistent/cookies.txt"})
		req := buildRequest(t, "https://example.com/v1", domain.QualityBest, domain.FormatMP4, false)

		args, err := builder.Build(req, Overrides{})
		require.NoError(t, err)
		assert.NotContains(t, args, "--cookies")
	})
}

func TestCleanBilibiliURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.bilibili.com/video/BV1x/?spm_id_from=333", "https://www.bilibili.com/video/BV1x"},
		{"https://www.bilibili.com/video/BV1x?p=3&t=120", "https://www.bilibili.com/video/BV1x?p=3"},
		{"https://www.bilibili.com/video/BV1x", "https://www.bilibili.com/video/BV1x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanBilibiliURL(tt.in))
	}
}
