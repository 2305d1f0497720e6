// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP helper used for every
// E-utilities call.
package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the base backoff used when a Policy leaves BaseDelay
// unset. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxDelay = 10 * time.Second

// Policy bounds the retry loop.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay starts the backoff; each retry doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// OnRetry, when set, is called before each backoff sleep. status is 0
	// when the attempt failed at the transport level.
	OnRetry func(attempt int, status int, delay time.Duration, err error)
}

// Retryable reports whether an HTTP status is worth retrying: 429 and
// any 5xx.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes req and retries transport errors, timeouts, HTTP 429
// and 5xx responses with exponential backoff. The delay starts at
// BaseDelay and doubles each attempt, capped at MaxDelay; a Retry-After
// header in seconds overrides the computed delay (still capped).
//
// Non-retryable responses are returned immediately. After exhausting
// retries the last retryable response is returned so the caller can
// inspect it, or the last transport error if there was no response. If the
// context is cancelled the function returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	base := p.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if maxDelay < base {
		maxDelay = base
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if attempt >= p.MaxRetries {
				return nil, err
			}
		} else {
			if !Retryable(resp.StatusCode) || attempt >= p.MaxRetries {
				return resp, nil
			}
		}

		delay := backoff(base, maxDelay, attempt)
		status := 0
		if resp != nil {
			status = resp.StatusCode
			if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
				delay = min(ra, maxDelay)
			}
			// Drain and close the body before retrying.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, status, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff returns base * 2^attempt, capped at maxDelay.
func backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// retryAfter parses a Retry-After header holding delta-seconds or an
// HTTP-date. A date in the past means retry now.
func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return max(time.Until(at), 0), true
}

// IsTimeout reports whether err is a network timeout or deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
