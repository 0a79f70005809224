// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the API clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

// RetryMaxDelay caps any single backoff wait, including server-requested
// Retry-After values.
var RetryMaxDelay = 160 * time.Second

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests). A parseable Retry-After header on the 429 sets the wait;
// otherwise the delay starts at RetryBaseDelay (10 s) and doubles each
// attempt: 10 s, 20 s, 40 s, 80 s, 160 s. Either way the wait never
// exceeds RetryMaxDelay.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Exhausted retries — return the 429 response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		backoff := retryDelay(resp, attempt)

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryDelay picks the wait before the next attempt. A server-provided
// Retry-After (delay-seconds form) takes precedence over the exponential
// schedule; both are capped at RetryMaxDelay.
func retryDelay(resp *http.Response, attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			delay = time.Duration(secs) * time.Second
		}
	}
	if delay > RetryMaxDelay {
		delay = RetryMaxDelay
	}
	return delay
}
