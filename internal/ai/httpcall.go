package ai

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lingora/backend/internal/config"
)

// httpCaller is the shared HTTP plumbing for raw-HTTP drivers. The
// client (and its connection pool) is owned by the Registry; the caller
// only adds the per-driver timeout and retry policy.
type httpCaller struct {
	client  *http.Client
	timeout time.Duration
	retry   config.RetryConfig
}

type rawResponse struct {
	status  int
	headers map[string]string
	body    []byte
}

func retryableStatus(status int, retry config.RetryConfig) bool {
	if status >= 500 {
		return true
	}
	if status == http.StatusTooManyRequests {
		return retry.On429
	}
	return false
}

// do executes the request produced by build, retrying transient
// failures per policy. build is invoked once per attempt because a
// request body reader cannot be replayed.
func (c *httpCaller) do(ctx context.Context, build func() (*http.Request, error)) (rawResponse, error) {
	var lastResp rawResponse
	var lastErr error

	for attempt := 0; attempt <= c.retry.Times; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return rawResponse{}, ctx.Err()
			case <-time.After(c.retry.Sleep * time.Duration(attempt)):
			}
		}

		req, err := build()
		if err != nil {
			return rawResponse{}, err
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		req = req.WithContext(callCtx)

		resp, err := c.client.Do(req)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		lastResp = rawResponse{
			status:  resp.StatusCode,
			headers: flattenHeaders(resp.Header),
			body:    body,
		}
		lastErr = nil

		if !retryableStatus(resp.StatusCode, c.retry) {
			return lastResp, nil
		}
	}

	if lastErr != nil {
		return rawResponse{}, lastErr
	}
	return lastResp, nil
}

// toResult folds a raw response (or transport error) into the canonical
// envelope. Transport failures never escape the driver boundary.
func toResult(resp rawResponse, err error, extract func([]byte) *Payload) Result {
	if err != nil {
		return failureResult(0, nil, err.Error())
	}
	if resp.status < 200 || resp.status >= 300 {
		return failureResult(resp.status, resp.headers, string(resp.body))
	}
	return successResult(resp.status, resp.headers, extract(resp.body))
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
