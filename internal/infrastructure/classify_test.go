package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabortao/vfetch/internal/domain"
)

func TestParseProgress(t *testing.T) {
	ev, ok := ParseProgress("[download]  45.3% of 27.18MiB at 1.23MiB/s ETA 00:12")
	require.True(t, ok)
	assert.Equal(t, domain.EventProgress, ev.Type)
	assert.InDelta(t, 45.3, ev.Percent, 0.001)
	assert.Equal(t, "1.23MiB/s", ev.Speed)
	assert.Equal(t, "00:12", ev.ETA)
}

func TestParseProgress_PercentOnly(t *testing.T) {
	ev, ok := ParseProgress("[download] 100.0%")
	require.True(t, ok)
	assert.InDelta(t, 100.0, ev.Percent, 0.001)
	assert.Empty(t, ev.Speed)
	assert.Empty(t, ev.ETA)
}

func TestParseProgress_NonProgressLines(t *testing.T) {
	lines := []string{
		"[info] Downloading video",
		"ERROR: HTTP Error 403: Forbidden",
		"45.3% is not a progress marker without the download tag",
		"",
	}
	for _, line := range lines {
		_, ok := ParseProgress(line)
		assert.False(t, ok, line)
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		kind domain.ErrorKind
	}{
		{"ERROR: unable to download video data: HTTP Error 412: Precondition Failed", domain.KindRateLimited},
		{"ERROR: HTTP Error 429: Too Many Requests", domain.KindRateLimited},
		{"ERROR: HTTP Error 403: Forbidden", domain.KindAccessDenied},
		{"ERROR: HTTP Error 404: Not Found", domain.KindNotFound},
		{"ERROR: Video unavailable", domain.KindNotFound},
		{"ERROR: requested format is not available", domain.KindUnsupportedFormat},
		{"ERROR: Unable to connect to proxy", domain.KindNetworkUnreachable},
		{"ERROR: Temporary failure in name resolution", domain.KindNetworkUnreachable},
		{"some ordinary log line", ""},
		{"[info] Writing video metadata", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.kind, ClassifyLine(tt.line))
		})
	}
}

func TestClassifyLine_FirstMatchWins(t *testing.T) {
	// A line mentioning both 412 and 403 classifies by the earlier marker.
	kind := ClassifyLine("HTTP Error 412 after HTTP Error 403")
	assert.Equal(t, domain.KindRateLimited, kind)
}
