package domain

// ErrorKind classifies a failed attempt. The set is closed: every
// failure maps to exactly one kind, defaulting to KindUnknown.
type ErrorKind string

const (
	KindNetworkUnreachable ErrorKind = "network_unreachable"
	KindAccessDenied       ErrorKind = "access_denied"     // HTTP 403-class
	KindRateLimited        ErrorKind = "rate_limited"      // HTTP 412/429-class
	KindNotFound           ErrorKind = "not_found"         // HTTP 404-class
	KindUnsupportedFormat  ErrorKind = "unsupported_format"
	KindTimeout            ErrorKind = "timeout"
	KindUnknown            ErrorKind = "unknown"
)

// Retryable reports whether an attempt failing with this kind is worth
// repeating with adjusted parameters. AccessDenied, NotFound and
// UnsupportedFormat are not retryable in general, but the coordinator
// grants them one alternate-header retry on platforms with a header
// policy (see app.Coordinator).
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetworkUnreachable, KindRateLimited, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// Hint returns a human remediation hint for this error kind.
func (k ErrorKind) Hint() string {
	switch k {
	case KindNetworkUnreachable:
		return "check your internet connection and try again"
	case KindAccessDenied:
		return "access forbidden: the video may be restricted; try cookies or a lower quality setting"
	case KindRateLimited:
		return "the platform is throttling requests; wait a few minutes before retrying, or sign in with cookies"
	case KindNotFound:
		return "video not found: check that the URL is correct and the video is still available"
	case KindUnsupportedFormat:
		return "the requested quality/format combination is not available; try a different quality tier"
	case KindTimeout:
		return "the download did not finish in time; try a lower quality tier or check your connection"
	default:
		return "check the URL, try a different quality setting, or use cookies for restricted videos"
	}
}
