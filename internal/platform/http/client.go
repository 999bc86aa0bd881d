// Package http provides the rate-limited HTTP client used for sidecar
// traffic.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Client wraps an http.Client with request-rate limiting and an optional
// bounded retry window. Exactly one layer should own retries: callers that
// already sit behind a retrying wrapper leave RetryBudget unset so a failed
// request surfaces after a single attempt instead of compounding backoff.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryBudget time.Duration
}

// ClientOptions holds options for creating a new Client. A zero RetryBudget
// means one attempt per request.
type ClientOptions struct {
	Timeout        time.Duration
	RequestsPerSec int
	RetryBudget    time.Duration
}

// NewClient creates a new rate-limited HTTP client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}

	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		retryBudget: opts.RetryBudget,
	}
}

// DoRequest performs a request once the rate limiter admits it. Non-200
// responses count as failures. With a retry budget configured, failures are
// retried under exponential backoff until the budget elapses.
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.retryBudget <= 0 {
		return c.attempt(req)
	}

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.attempt(req)
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.retryBudget

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) attempt(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// HTTPStatusError represents an error due to a non-200 HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}
