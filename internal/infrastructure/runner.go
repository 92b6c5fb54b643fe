package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/domain"
	"github.com/tabortao/vfetch/pkg/logger"
)

// tailLines is how many trailing output lines are kept for diagnostics
// when no recognized error marker matched.
const tailLines = 10

// ProcessRunner launches the extraction engine as a child process and
// streams its line-oriented output. Each Run call creates a fresh
// process; the sequence of events is finite and not restartable.
type ProcessRunner struct {
	binary      string
	timeout     time.Duration
	downloadLog *logger.DownloadLog
	log         *zap.Logger
}

// NewProcessRunner creates a process runner for the configured engine
// binary. downloadLog may be nil to skip raw output logging.
func NewProcessRunner(binary string, timeout time.Duration, downloadLog *logger.DownloadLog, log *zap.Logger) *ProcessRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProcessRunner{
		binary:      binary,
		timeout:     timeout,
		downloadLog: downloadLog,
		log:         log,
	}
}

// Run executes the engine once and returns exactly one Outcome. The
// process is killed if the timeout elapses first. Events are forwarded
// synchronously through onEvent as output lines arrive.
func (r *ProcessRunner) Run(ctx context.Context, args []string, outputDir string, onEvent domain.EventFunc) domain.Outcome {
	if onEvent == nil {
		onEvent = func(domain.RunEvent) {}
	}

	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.Fatal(domain.KindUnknown, fmt.Sprintf("failed to open stdout pipe: %v", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return domain.Fatal(domain.KindUnknown, fmt.Sprintf("failed to open stderr pipe: %v", err))
	}

	if r.downloadLog != nil {
		r.downloadLog.WriteHeader(ShellEscapeCommand(r.binary, args...))
	}

	if err := cmd.Start(); err != nil {
		// The engine binary itself is unusable; retrying cannot help.
		return domain.Fatal(domain.KindUnknown, fmt.Sprintf("failed to start %s: %v", r.binary, err))
	}

	// Both streams feed one classification loop so ordering decisions
	// stay in a single place.
	lines := make(chan string, 64)
	var wg sync.WaitGroup
	scan := func(rd io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(rd)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	go func() {
		wg.Wait()
		close(lines)
	}()

	var lastKind domain.ErrorKind
	var lastMatched string
	var tail []string

	for line := range lines {
		if r.downloadLog != nil {
			r.downloadLog.WriteLine(line)
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if ev, ok := ParseProgress(trimmed); ok {
			onEvent(ev)
			continue
		}

		if kind := ClassifyLine(trimmed); kind != "" {
			lastKind = kind
			lastMatched = trimmed
		}
		tail = append(tail, trimmed)
		if len(tail) > tailLines {
			tail = tail[1:]
		}

		onEvent(domain.RunEvent{Type: domain.EventLog, Line: trimmed})
	}

	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded {
		CleanupPartials(outputDir)
		msg := fmt.Sprintf("download timed out after %s", r.timeout)
		r.finishLog(false, msg)
		return domain.Recoverable(domain.KindTimeout, msg)
	}

	if waitErr == nil {
		// Allow one second of slack for filesystems with coarse mtime
		// resolution.
		path, size, err := FindNewMedia(outputDir, started.Add(-time.Second))
		if err != nil {
			msg := fmt.Sprintf("engine exited cleanly but produced no output: %v", err)
			r.finishLog(false, msg)
			return domain.Recoverable(domain.KindUnknown, msg)
		}
		r.finishLog(true, fmt.Sprintf("downloaded %s (%s)", path, HumanSize(size)))
		return domain.Success(path, size)
	}

	CleanupPartials(outputDir)

	message := lastMatched
	if message == "" {
		message = strings.Join(tail, "\n")
	}
	if message == "" {
		message = waitErr.Error()
	}

	kind := lastKind
	if kind == "" {
		// No pattern matched: favor retry over silent failure.
		kind = domain.KindUnknown
	}

	r.finishLog(false, message)
	r.log.Debug("engine attempt failed",
		zap.String("kind", string(kind)),
		zap.String("message", message))
	return domain.Recoverable(kind, message)
}

func (r *ProcessRunner) finishLog(success bool, message string) {
	if r.downloadLog != nil {
		r.downloadLog.WriteFooter(success, message)
	}
}
