package infrastructure

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tabortao/vfetch/internal/domain"
)

// userAgents is the fixed cycle of alternate user agents used across
// retries. The attempt index selects one; index 0 is the default.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// platformPolicy describes fixed anti-blocking handling for a known
// video-hosting domain. The table is read-only after initialization.
type platformPolicy struct {
	Referer string
	// ExtractorArgs per attempt index; the last entry repeats once the
	// index runs past it.
	ExtractorArgs []string
	// CleanURL strips tracking parameters from the request URL.
	CleanURL func(string) string
}

// platformPolicies is keyed by registrable domain suffix. Subdomains
// match the parent entry.
var platformPolicies = map[string]platformPolicy{
	"bilibili.com": {
		Referer: "https://www.bilibili.com/",
		ExtractorArgs: []string{
			"bilibili:videomode=html5",
			"bilibili:force_api=1",
		},
		CleanURL: cleanBilibiliURL,
	},
}

// Overrides adjusts a single attempt without touching the request
// itself. AttemptIndex selects the user agent and extractor args;
// QualityDowngrade lowers the quality by that many tiers.
type Overrides struct {
	AttemptIndex     int
	QualityDowngrade int
}

// InvocationBuilder translates a validated request plus per-attempt
// overrides into a concrete engine argument list. Build is pure: the
// same inputs always produce the same argument list.
type InvocationBuilder struct {
	config *domain.EngineConfig
}

// NewInvocationBuilder creates an invocation builder
func NewInvocationBuilder(config *domain.EngineConfig) *InvocationBuilder {
	return &InvocationBuilder{config: config}
}

// Build produces the engine argument list for one attempt.
func (b *InvocationBuilder) Build(req domain.DownloadRequest, ov Overrides) ([]string, error) {
	if ov.QualityDowngrade > 0 {
		req = req.Downgraded(ov.QualityDowngrade)
	}

	var args []string

	policy, hasPolicy := lookupPolicy(req.Host())
	targetURL := req.URL
	if hasPolicy {
		if policy.CleanURL != nil {
			targetURL = policy.CleanURL(targetURL)
		}
		args = append(args,
			"--add-header", "Referer:"+policy.Referer,
			"--add-header", "User-Agent:"+userAgents[ov.AttemptIndex%len(userAgents)],
		)
		args = append(args, "--extractor-args", extractorArgsFor(policy, ov.AttemptIndex))
	} else if ov.AttemptIndex > 0 {
		// Alternate user agent on retries even without a platform policy.
		args = append(args,
			"--add-header", "User-Agent:"+userAgents[ov.AttemptIndex%len(userAgents)],
		)
	}

	if req.AudioOnly {
		if req.Format != domain.FormatMP4 {
			return nil, fmt.Errorf("%w: audio is extracted as mp3, container %s cannot be honored",
				ErrUnsupportedCombination, req.Format)
		}
		args = append(args,
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "0",
		)
	} else {
		args = append(args,
			"-f", formatSelector(req.Quality),
			"--merge-output-format", string(req.Format),
		)
	}

	args = append(args,
		"-o", req.OutputDir+"/%(title)s.%(ext)s",
		"--no-playlist",
		"--newline",
	)

	if b.config.CookieFile != "" && fileExists(b.config.CookieFile) {
		args = append(args, "--cookies", b.config.CookieFile)
	}
	if b.config.ExtraArgs != "" {
		args = append(args, strings.Fields(b.config.ExtraArgs)...)
	}

	args = append(args, targetURL)
	return args, nil
}

// ErrUnsupportedCombination marks a format/quality combination the
// engine's selector syntax cannot express. Check with errors.Is.
var ErrUnsupportedCombination = errors.New("unsupported format combination")

// formatSelector maps a quality tier to the engine's selector syntax.
func formatSelector(q domain.Quality) string {
	switch q {
	case domain.QualityBest:
		return "bestvideo+bestaudio/best"
	case domain.QualityWorst:
		return "worstvideo+worstaudio/worst"
	default:
		height := strings.TrimSuffix(string(q), "p")
		return fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best[height<=%s]", height, height)
	}
}

// HasPlatformPolicy reports whether a host has fixed anti-blocking
// handling. Such hosts get one alternate-header retry even for error
// kinds that are otherwise not retryable.
func HasPlatformPolicy(host string) bool {
	_, ok := lookupPolicy(host)
	return ok
}

// lookupPolicy matches a host against the platform policy table.
// Subdomains match their parent domain entry.
func lookupPolicy(host string) (platformPolicy, bool) {
	host = strings.ToLower(host)
	for domainSuffix, policy := range platformPolicies {
		if host == domainSuffix || strings.HasSuffix(host, "."+domainSuffix) {
			return policy, true
		}
	}
	return platformPolicy{}, false
}

func extractorArgsFor(policy platformPolicy, attemptIndex int) string {
	if attemptIndex >= len(policy.ExtractorArgs) {
		return policy.ExtractorArgs[len(policy.ExtractorArgs)-1]
	}
	return policy.ExtractorArgs[attemptIndex]
}

// cleanBilibiliURL strips tracking query parameters, keeping only the
// part number.
func cleanBilibiliURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	cleaned := parsed.Scheme + "://" + parsed.Host + strings.TrimSuffix(parsed.Path, "/")
	if p := parsed.Query().Get("p"); p != "" {
		cleaned += "?p=" + p
	}
	return cleaned
}
