// Package ratelimit spaces out page loads against a single retailer.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a requests-per-minute ceiling and a jittered minimum gap
// between consecutive page loads.
type Limiter struct {
	bucket   *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration

	mu         sync.Mutex
	lastAction time.Time
	jitter     func(n int64) int64
	now        func() time.Time
}

// New returns a limiter. perMinute <= 0 disables the ceiling.
func New(perMinute int, minDelay, maxDelay time.Duration) *Limiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}

	return &Limiter{
		bucket:   rate.NewLimiter(limit, 1),
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   rand.Int64N,
		now:      time.Now,
	}
}

func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	if !l.lastAction.IsZero() {
		if gap := l.delay() - l.now().Sub(l.lastAction); gap > 0 {
			timer := time.NewTimer(gap)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.lastAction = l.now()
	return nil
}

func (l *Limiter) delay() time.Duration {
	spread := l.maxDelay - l.minDelay
	if spread <= 0 {
		return l.minDelay
	}
	return l.minDelay + time.Duration(l.jitter(int64(spread)))
}
