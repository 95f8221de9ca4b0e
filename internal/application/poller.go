package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	"golang.org/x/time/rate"
)

type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{MaxAttempts: 30, Interval: time.Second}
}

// waitForRun polls run until it reaches a terminal status. Only a completed
// run returns nil; exhausting the budget returns domain.ErrPollTimeout.
func waitForRun(ctx context.Context, assistant ports.Assistant, run domain.RunHandle, policy PollPolicy) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	limit := rate.Inf
	if policy.Interval > 0 {
		limit = rate.Every(policy.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// The next poll would land past the caller's deadline.
			return fmt.Errorf("wait for run %s: %w", run.ID, domain.ErrPollTimeout)
		}

		status, err := assistant.PollRun(ctx, run)
		if err != nil {
			return fmt.Errorf("poll run %s: %w", run.ID, err)
		}
		if !status.Terminal() {
			continue
		}
		if status == domain.RunStatusCompleted {
			return nil
		}

		return fmt.Errorf("%w: run %s ended with status %s", domain.ErrServiceUnavailable, run.ID, status)
	}

	return fmt.Errorf("run %s still pending after %d polls: %w", run.ID, attempts, domain.ErrPollTimeout)
}
