// Package retry runs an operation under a bounded exponential backoff policy.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
)

// minJitterDelay keeps full jitter from collapsing into a busy loop
const minJitterDelay = 100 * time.Millisecond

// Policy describes how many times an operation is attempted and how long
// to wait between attempts. The zero value is not useful; start from Default.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter picks a random delay in [0, computed] (full jitter)
	Jitter bool
	// Sleep waits between attempts; tests replace it to avoid real delays
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is three attempts starting at 500ms and doubling up to 8s.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    8 * time.Second,
		Jitter:      true,
	}
}

// Delay returns the wait before the attempt that follows attempt n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if !p.Jitter {
		return time.Duration(d)
	}

	jittered := time.Duration(rand.Float64() * d)
	if jittered < minJitterDelay && time.Duration(d) >= minJitterDelay {
		jittered = minJitterDelay
	}
	return jittered
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempt
// budget runs out, or ctx ends. It reports how many attempts were made and
// the last error seen.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !errors.IsRetryable(lastErr) || attempt == maxAttempts {
			return attempt, lastErr
		}

		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return attempt, lastErr
		}
	}
	return maxAttempts, lastErr
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
