// Package ratelimit paces outbound DNS-over-HTTPS requests and SMTP probes.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// spread widens or narrows each wait by up to 20% so concurrent probes do
// not reach an exchanger in lockstep.
const spread = 0.20

// Limiter is a token bucket with jittered waits. A nil *Limiter never waits.
type Limiter struct {
	bucket *rate.Limiter
	// unit returns a value in [0, 1).
	unit func() float64
}

// New allows rps events per second with the given burst (at least 1).
// It returns nil, meaning unlimited, when rps <= 0.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(rps), max(burst, 1)),
		unit:   rand.Float64, //nolint:gosec // jitter does not need crypto randomness
	}
}

// Wait blocks until the next event may start or ctx is done. A token is
// returned to the bucket when ctx ends the wait.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	res := l.bucket.Reserve()
	if !res.OK() {
		return ctx.Err()
	}
	delay := jitter(res.Delay(), l.unit())
	if delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jitter scales d by a factor in [1-spread, 1+spread) chosen by u in [0, 1).
func jitter(d time.Duration, u float64) time.Duration {
	if d <= 0 {
		return 0
	}
	return max(0, time.Duration(float64(d)*(1+spread*(2*u-1))))
}
