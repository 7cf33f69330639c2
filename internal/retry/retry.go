package retry

import (
	"context"
	"math/rand"
	"time"
)

const jitterCeiling = 100 * time.Millisecond

// Observer is notified after each failed attempt, before the backoff sleep.
// Panics raised by an observer are swallowed so instrumentation can never
// break the retried operation.
type Observer func(attempt int, err error)

// Policy controls how an operation is retried. MaxRetries is the number of
// retries after the initial attempt, so an always-failing operation runs
// MaxRetries+1 times in total.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Observer   Observer

	// Sleeper overrides how backoff waits are performed (tests).
	Sleeper func(context.Context, time.Duration) error
	// Jitter overrides the random jitter source (tests).
	Jitter func() time.Duration
}

// Do runs op under the policy. Attempt 1 runs immediately; attempt k waits
// BaseDelay*2^(k-2) plus up to 100ms of jitter. The last error is returned
// once the attempt ceiling is reached.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.delay(attempt)); err != nil {
				return err
			}
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		p.observe(attempt, lastErr)
	}
	return lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	backoff := base << (attempt - 2)
	return backoff + p.jitter()
}

func (p Policy) jitter() time.Duration {
	if p.Jitter != nil {
		return p.Jitter()
	}
	return time.Duration(rand.Int63n(int64(jitterCeiling)))
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleeper != nil {
		return p.Sleeper(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p Policy) observe(attempt int, err error) {
	if p.Observer == nil {
		return
	}
	defer func() { _ = recover() }()
	p.Observer(attempt, err)
}
