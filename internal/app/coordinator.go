package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabortao/vfetch/internal/domain"
	"github.com/tabortao/vfetch/internal/infrastructure"
)

// Coordinator drives the retry state machine for one download request:
// it regenerates the argument list between attempts, applies backoff,
// and bundles the attempt history into the terminal result. Each
// Execute call is independent; no state crosses request boundaries.
type Coordinator struct {
	builder *infrastructure.InvocationBuilder
	engine  domain.Engine
	config  *domain.DownloadConfig
	logger  *zap.Logger
}

// NewCoordinator creates a retry coordinator
func NewCoordinator(builder *infrastructure.InvocationBuilder, engine domain.Engine, config *domain.DownloadConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		builder: builder,
		engine:  engine,
		config:  config,
		logger:  logger,
	}
}

// Execute runs attempts strictly sequentially until one succeeds, a
// fatal outcome is produced, or the attempt ceiling is reached.
// Exhausted retries surface as a fatal outcome carrying the last error
// kind, never silently.
func (c *Coordinator) Execute(ctx context.Context, req domain.DownloadRequest, onEvent domain.EventFunc) domain.Result {
	maxAttempts := c.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	hasPolicy := infrastructure.HasPlatformPolicy(req.Host())

	var attempts []domain.Attempt
	var last domain.Outcome
	downgrade := 0

	for i := 0; i < maxAttempts; i++ {
		attemptReq := req.Downgraded(downgrade)
		args, err := c.builder.Build(attemptReq, infrastructure.Overrides{
			AttemptIndex: i,
		})
		if err != nil {
			// Nothing was executed; the request itself is unbuildable.
			kind := domain.KindUnknown
			if errors.Is(err, infrastructure.ErrUnsupportedCombination) {
				kind = domain.KindUnsupportedFormat
			}
			return domain.Result{
				Outcome:  domain.Fatal(kind, err.Error()),
				Attempts: attempts,
			}
		}

		c.logger.Info("starting attempt",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxAttempts),
			zap.String("url", req.URL),
			zap.String("quality", string(req.Quality)))

		started := time.Now()
		outcome := c.engine.Run(ctx, args, req.OutputDir, onEvent)
		attempts = append(attempts, domain.Attempt{
			Request:   attemptReq,
			Args:      args,
			StartedAt: started,
			Duration:  time.Since(started),
			Outcome:   outcome,
		})
		last = outcome

		switch outcome.State {
		case domain.OutcomeSuccess:
			return domain.Result{Outcome: outcome, Attempts: attempts}

		case domain.OutcomeFatal:
			return domain.Result{Outcome: outcome, Attempts: attempts}
		}

		if !c.shouldRetry(outcome.Kind, i, hasPolicy) || i+1 >= maxAttempts {
			break
		}

		// UnsupportedFormat worth one more try at a lower quality tier.
		if outcome.Kind == domain.KindUnsupportedFormat {
			downgrade++
		}

		if err := c.waitBeforeRetry(ctx, outcome.Kind, i); err != nil {
			last = domain.Recoverable(outcome.Kind, outcome.Message+" (cancelled while waiting to retry)")
			break
		}

		c.logger.Warn("attempt failed, retrying",
			zap.Int("attempt", i+1),
			zap.String("kind", string(outcome.Kind)),
			zap.String("message", firstLineOf(outcome.Message)))
	}

	// Exhausted: promote the last recoverable error to a terminal
	// failure so callers never see a retryable state.
	return domain.Result{
		Outcome:  domain.Fatal(last.Kind, last.Message),
		Attempts: attempts,
	}
}

// shouldRetry applies the per-kind retry policy. Kinds that are not
// retryable in general still get one alternate-header attempt on hosts
// with a platform policy.
func (c *Coordinator) shouldRetry(kind domain.ErrorKind, attemptIndex int, hasPolicy bool) bool {
	if kind.Retryable() {
		return true
	}
	return hasPolicy && attemptIndex == 0
}

// waitBeforeRetry sleeps between attempts. RateLimited failures back
// off linearly with the attempt number to respect remote throttling.
func (c *Coordinator) waitBeforeRetry(ctx context.Context, kind domain.ErrorKind, attemptIndex int) error {
	delay := c.config.RetryDelay
	if delay <= 0 {
		return nil
	}
	if kind == domain.KindRateLimited {
		delay = delay * time.Duration(attemptIndex+1)
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func firstLineOf(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
