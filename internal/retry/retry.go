// Package retry runs a single-attempt operation under a bounded exponential
// backoff policy.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Hinted is implemented by errors that carry a server-provided minimum delay
// (for example a Retry-After header).
type Hinted interface {
	RetryDelay() time.Duration
}

// Policy configures Do. The zero value performs a single attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter spreads each delay by +/- 20%.
	Jitter bool
	// Retryable classifies failures; nil retries every error.
	Retryable func(error) bool
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default returns 5 attempts with 1s, 2s, 4s, 8s waits capped at 16s.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    16 * time.Second,
		Multiplier:  2,
		Jitter:      true,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx is done. It returns the number of attempts made and the
// last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				err = cerr
			}
			return attempt - 1, err
		}
		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt == maxAttempts || (p.Retryable != nil && !p.Retryable(err)) {
			return attempt, err
		}
		d := p.Delay(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, d, err)
		}
		if serr := p.sleep(ctx, d); serr != nil {
			return attempt, err
		}
	}
	return maxAttempts, err
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int, err error) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
			break
		}
	}
	out := time.Duration(d)
	if p.Jitter {
		out = withJitter(out)
	}
	var h Hinted
	if err != nil && errors.As(err, &h) {
		if ra := h.RetryDelay(); ra > out {
			out = ra
		}
	}
	if p.MaxDelay > 0 && out > p.MaxDelay {
		out = p.MaxDelay
	}
	return out
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
