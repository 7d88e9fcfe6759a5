package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/imroc/req/v3"

	"github.com/tbckr/mailprobe/internal/ratelimit"
)

// Retry policy for resolver requests.
const (
	maxRetries       = 3
	defaultBackoff   = 5 * time.Second
	maxBackoff       = 60 * time.Second
	transportBackoff = time.Second
)

// Pace gates every request on limiter (nil means unlimited) and retries
// throttled responses and transport failures up to maxRetries times.
// Cancelled or expired contexts are never retried.
func Pace(client *req.Client, limiter *ratelimit.Limiter) {
	client.OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
		return limiter.Wait(r.Context())
	})
	client.SetCommonRetryCount(maxRetries).
		SetCommonRetryCondition(shouldRetry).
		SetCommonRetryInterval(func(resp *req.Response, _ int) time.Duration {
			if !throttled(resp) {
				return transportBackoff
			}
			return backoff(resp.Header.Get("Retry-After"), time.Now())
		})
}

// throttled reports a 429 or 503 answer, the two statuses public resolvers
// use to shed load.
func throttled(resp *req.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable
}

func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return throttled(resp)
}

// backoff turns a Retry-After value (delay-seconds or HTTP-date) into a
// wait no longer than maxBackoff.
func backoff(retryAfter string, now time.Time) time.Duration {
	if retryAfter == "" {
		return defaultBackoff
	}
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, maxBackoff)
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		return min(max(at.Sub(now), 0), maxBackoff)
	}
	return defaultBackoff
}
