package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func rateLimitErr() error {
	return fmt.Errorf("call failed: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})
}

// newTestInvoker returns an invoker whose sleeps are recorded instead of slept.
func newTestInvoker(maxAttempts int) (*Invoker, *[]time.Duration) {
	inv := NewInvoker(maxAttempts)
	var delays []time.Duration
	inv.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return inv, &delays
}

func TestDoSucceedsAfterRateLimits(t *testing.T) {
	inv, delays := newTestInvoker(5)

	calls := 0
	out, err := inv.Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", rateLimitErr()
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)

	// Two sleeps, strictly increasing, each within the cap.
	require.Len(t, *delays, 2)
	assert.Equal(t, 1*time.Second, (*delays)[0])
	assert.Equal(t, 2*time.Second, (*delays)[1])
	for _, d := range *delays {
		assert.LessOrEqual(t, d, 60*time.Second)
	}
}

func TestDoDelaysAreCapped(t *testing.T) {
	inv, delays := newTestInvoker(10)

	_, err := inv.Do(context.Background(), func(ctx context.Context) (string, error) {
		return "", rateLimitErr()
	})

	require.ErrorIs(t, err, ErrRateLimitExceeded)
	require.Len(t, *delays, 9)
	var prev time.Duration
	for i, d := range *delays {
		assert.LessOrEqual(t, d, 60*time.Second, "delay %d over cap", i)
		if prev < 60*time.Second {
			assert.Greater(t, d, prev, "delay %d not increasing", i)
		}
		prev = d
	}
	assert.Equal(t, 60*time.Second, (*delays)[8])
}

func TestDoNonRetryableErrorPropagates(t *testing.T) {
	inv, delays := newTestInvoker(5)

	boom := errors.New("schema mismatch")
	calls := 0
	_, err := inv.Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 1, calls, "non-retryable errors must not be retried")
	assert.Empty(t, *delays)
}

func TestDoExhaustionSurfacesLastError(t *testing.T) {
	inv, _ := newTestInvoker(3)

	calls := 0
	_, err := inv.Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", rateLimitErr()
	})

	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 3, calls)
}

func TestDoAppliesPerCallTimeout(t *testing.T) {
	inv, _ := newTestInvoker(2)

	_, err := inv.Do(context.Background(), func(ctx context.Context) (string, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return "", errors.New("no deadline set")
		}
		if time.Until(deadline) > 60*time.Second {
			return "", errors.New("deadline too far out")
		}
		return "ok", nil
	})
	assert.NoError(t, err)
}

func TestDoSerializesCalls(t *testing.T) {
	inv, _ := newTestInvoker(1)

	inFlight := 0
	maxInFlight := 0
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = inv.Do(context.Background(), func(ctx context.Context) (string, error) {
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				time.Sleep(5 * time.Millisecond)
				inFlight--
				return "ok", nil
			})
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	// The unsynchronized counters are safe exactly because the invoker never
	// lets two operations overlap.
	assert.Equal(t, 1, maxInFlight)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(genai.APIError{Code: 429}))
	assert.True(t, IsRateLimited(genai.APIError{Status: "RESOURCE_EXHAUSTED"}))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", genai.APIError{Code: 429})))
	assert.False(t, IsRateLimited(genai.APIError{Code: 500, Status: "INTERNAL"}))
	assert.False(t, IsRateLimited(errors.New("rate limit mentioned in text only")))
	assert.False(t, IsRateLimited(context.DeadlineExceeded))
}
