package infrastructure

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tabortao/vfetch/internal/domain"
)

// progressRegex matches the engine's per-line progress output, e.g.
// "[download]  45.3% of 27.18MiB at 1.23MiB/s ETA 00:12"
var progressRegex = regexp.MustCompile(`\[download\]\s+([\d.]+)%(?:.*?at\s+(\S+))?(?:.*?ETA\s+(\S+))?`)

// errorMarker ties a recognized output substring to an error kind.
// Markers are checked in order; the first match wins.
type errorMarker struct {
	substrings []string
	kind       domain.ErrorKind
}

var errorMarkers = []errorMarker{
	{[]string{"http error 412", "error 412", "precondition failed"}, domain.KindRateLimited},
	{[]string{"http error 429", "error 429", "too many requests"}, domain.KindRateLimited},
	{[]string{"http error 403", "error 403", "forbidden", "access denied"}, domain.KindAccessDenied},
	{[]string{"http error 404", "error 404", "not found", "video unavailable", "has been removed"}, domain.KindNotFound},
	{[]string{"requested format is not available", "no video formats", "unsupported url"}, domain.KindUnsupportedFormat},
	{[]string{"unable to connect", "connection refused", "connection reset", "network is unreachable",
		"name or service not known", "temporary failure in name resolution", "unable to download webpage"}, domain.KindNetworkUnreachable},
}

// ParseProgress extracts a progress event from an output line.
// Returns false if the line is not a progress marker.
func ParseProgress(line string) (domain.RunEvent, bool) {
	match := progressRegex.FindStringSubmatch(line)
	if match == nil {
		return domain.RunEvent{}, false
	}

	ev := domain.RunEvent{Type: domain.EventProgress, Line: line}
	ev.Percent = parsePercent(match[1])
	if len(match) > 2 {
		ev.Speed = match[2]
	}
	if len(match) > 3 {
		ev.ETA = match[3]
	}
	return ev, true
}

// ClassifyLine matches an output line against the recognized error
// markers. Returns the empty kind when nothing matches.
func ClassifyLine(line string) domain.ErrorKind {
	lower := strings.ToLower(line)
	for _, marker := range errorMarkers {
		for _, sub := range marker.substrings {
			if strings.Contains(lower, sub) {
				return marker.kind
			}
		}
	}
	return ""
}

func parsePercent(s string) float64 {
	percent, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return percent
}
