package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"spendchat/internal/logger"
)

const (
	baseDelay   = 1 * time.Second
	maxDelay    = 60 * time.Second
	callTimeout = 60 * time.Second
)

// Operation is a single call to the model endpoint.
type Operation func(ctx context.Context) (string, error)

// Invoker executes model operations with a per-call timeout, exponential
// backoff on rate-limit errors, and at most one call in flight at a time (the
// endpoint enforces single concurrency).
type Invoker struct {
	sem         *semaphore.Weighted
	maxAttempts int

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an invoker that gives each operation up to maxAttempts
// tries.
func NewInvoker(maxAttempts int) *Invoker {
	return &Invoker{
		sem:         semaphore.NewWeighted(1),
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
}

// Do runs op, retrying on rate-limit errors with delay min(base*2^attempt, cap)
// where base is 1s and cap is 60s. Any other error propagates immediately. A
// timed-out call is only retried if the provider also reported rate limiting.
// When all attempts fail the last error is surfaced as ErrRateLimitExceeded.
func (inv *Invoker) Do(ctx context.Context, op Operation) (string, error) {
	if err := inv.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("Do: acquire: %w", err)
	}
	defer inv.sem.Release(1)

	log := logger.FromContext(ctx)

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= inv.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		out, err := op(callCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		if !IsRateLimited(err) {
			return "", err
		}

		lastErr = err
		if attempt == inv.maxAttempts {
			break
		}

		log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", inv.maxAttempts).
			Dur("delay", delay).
			Msg("Model rate limited, backing off")

		if err := inv.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("Do: interrupted during backoff: %w", err)
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrRateLimitExceeded, inv.maxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
