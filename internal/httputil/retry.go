// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for talking to the remote library.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff when the
// server does not say how long to wait. Tests override this to avoid real sleeps.
var RetryBaseDelay = 5 * time.Second

// MaxServerDelay caps a server-requested wait so a misbehaving header cannot
// stall a run indefinitely.
var MaxServerDelay = 5 * time.Minute

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries when the server asks the
// client to slow down: HTTP 429 (Too Many Requests) and HTTP 503 (Service
// Unavailable). The wait honours a Retry-After header (seconds) when present
// and otherwise doubles from RetryBaseDelay each attempt.
//
// When maxRetries is 0 the default (5) is used. If the context is cancelled
// during a wait the function returns ctx.Err(). After exhausting retries the
// last response is returned so the caller can inspect it.
//
// A successful response carrying a Backoff header delays the return by the
// requested number of seconds, so the next request from the caller already
// respects it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) {
			if wait, ok := headerSeconds(resp.Header, "Backoff"); ok {
				slog.Debug("server requested backoff", "url", req.URL.String(), "wait", wait)
				if err := sleep(ctx, wait); err != nil {
					resp.Body.Close()
					return nil, err
				}
			}
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		wait, ok := headerSeconds(resp.Header, "Retry-After")
		if !ok {
			wait = (1 << attempt) * RetryBaseDelay
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		slog.Info("rate limited, retrying",
			"status", resp.StatusCode, "wait", wait, "attempt", attempt+1, "max", maxRetries)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// headerSeconds parses a header holding a whole number of seconds.
func headerSeconds(h http.Header, name string) (time.Duration, bool) {
	v := h.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	d := time.Duration(n) * time.Second
	if d > MaxServerDelay {
		d = MaxServerDelay
	}
	return d, true
}

func sleep(ctx context.Context, d time.Duration) error {
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
