package domain

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeState is the terminal classification of one attempt
type OutcomeState string

const (
	OutcomeSuccess     OutcomeState = "success"
	OutcomeRecoverable OutcomeState = "recoverable"
	OutcomeFatal       OutcomeState = "fatal"
)

// Outcome is the single terminal result of one engine run.
type Outcome struct {
	State    OutcomeState
	Kind     ErrorKind // set for recoverable/fatal outcomes
	Message  string    // raw diagnostic text from the engine
	FilePath string    // set on success
	FileSize int64     // set on success, read from the filesystem
}

// Success builds a successful outcome for a downloaded file.
func Success(filePath string, fileSize int64) Outcome {
	return Outcome{State: OutcomeSuccess, FilePath: filePath, FileSize: fileSize}
}

// Recoverable builds an outcome worth retrying with adjusted parameters.
func Recoverable(kind ErrorKind, message string) Outcome {
	return Outcome{State: OutcomeRecoverable, Kind: kind, Message: message}
}

// Fatal builds an outcome for a request that cannot succeed.
func Fatal(kind ErrorKind, message string) Outcome {
	return Outcome{State: OutcomeFatal, Kind: kind, Message: message}
}

// IsSuccess reports whether the outcome is a success.
func (o Outcome) IsSuccess() bool {
	return o.State == OutcomeSuccess
}

// Attempt is one bounded execution of the extraction engine. It is
// appended to the attempt history once its outcome is resolved and
// never mutated afterwards.
type Attempt struct {
	Request   DownloadRequest
	Args      []string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
}

// RunEventType distinguishes streamed engine events
type RunEventType string

const (
	EventProgress RunEventType = "progress"
	EventLog      RunEventType = "log"
)

// RunEvent is one streamed event from a running engine process.
// Progress events carry percent/eta/speed; log events carry the raw line.
type RunEvent struct {
	Type    RunEventType
	Percent float64
	ETA     string
	Speed   string
	Line    string
}

// EventFunc consumes streamed run events. Callbacks are invoked
// synchronously from the run loop.
type EventFunc func(RunEvent)

// Result is the terminal outcome of a coordinated download, bundling the
// full attempt history for diagnostics.
type Result struct {
	Outcome  Outcome
	Attempts []Attempt
}

// Succeeded reports whether the download finished with a file on disk.
func (r Result) Succeeded() bool {
	return r.Outcome.IsSuccess()
}

// Diagnostic renders the attempt history with per-kind remediation
// hints, for display on stderr when a download is given up.
func (r Result) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "download failed after %d attempt(s): %s\n", len(r.Attempts), r.Outcome.Message)
	for i, a := range r.Attempts {
		fmt.Fprintf(&b, "  attempt %d: quality=%s state=%s", i+1, a.Request.Quality, a.Outcome.State)
		if a.Outcome.Kind != "" {
			fmt.Fprintf(&b, " kind=%s", a.Outcome.Kind)
		}
		if a.Outcome.Message != "" {
			fmt.Fprintf(&b, " (%s)", firstLine(a.Outcome.Message))
		}
		b.WriteString("\n")
	}
	if r.Outcome.Kind != "" {
		fmt.Fprintf(&b, "hint: %s\n", r.Outcome.Kind.Hint())
	}
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
