// Package graphql implements the HTTP transport used to talk to the store's
// Admin GraphQL endpoint.
//
// The client is small:
//
//   - One POST per query with a JSON {query, variables} body.
//   - GraphQL-level errors are returned as *TransportError, never partial data.
//   - Retries are opt-in (MaxRetries defaults to 0) and only cover 429/5xx;
//     every retry is logged.
//   - Context cancellation is respected during requests and backoff waits.
package graphql

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Config configures the GraphQL client.
//
// Zero values are given defaults:
//   - Timeout:        30s
//   - MaxRetries:     0 (a failed call is returned to the caller)
//   - InitialBackoff: 500ms
//   - MaxBackoff:     5s
type Config struct {
	// Endpoint is the full GraphQL URL,
	// e.g. https://shop.myshopify.com/admin/api/2024-10/graphql.json.
	Endpoint string

	// AccessToken is sent as X-Shopify-Access-Token when non-empty.
	AccessToken string

	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request
	// for throttled (429) or 5xx responses.
	MaxRetries int

	// InitialBackoff is the base backoff for the first retry; each later
	// retry doubles it up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// BaseHeaders are added to every request.
	BaseHeaders http.Header

	// Transport is an optional custom RoundTripper. When nil, a default
	// *http.Transport is built from the TLS settings.
	Transport http.RoundTripper
}

// AccessTokenHeader carries the Admin API credential.
const AccessTokenHeader = "X-Shopify-Access-Token"

// Client posts GraphQL documents to a single endpoint.
type Client struct {
	endpoint       string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	headers        http.Header

	// sleep is injectable to make tests fast and deterministic.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Client from cfg, applying defaults for zero values.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("graphql: endpoint must not be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	hdr := http.Header{}
	for k, vs := range cfg.BaseHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}
	hdr.Set("Content-Type", "application/json")
	hdr.Set("Accept", "application/json")
	if cfg.AccessToken != "" {
		hdr.Set(AccessTokenHeader, cfg.AccessToken)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		headers:        hdr,
		sleep:          sleepWithContext,
	}, nil
}

// post sends body to the endpoint, retrying throttled and 5xx responses up
// to maxRetries times. The caller must close the returned response body.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, vs := range c.headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			if !isRetryableStatus(resp.StatusCode) {
				return resp, nil
			}
			_ = resp.Body.Close()
			lastErr = &statusError{code: resp.StatusCode}
		}

		if attempt+1 >= attempts {
			return nil, lastErr
		}

		backoff := backoffDuration(c.initialBackoff, attempt, c.maxBackoff)
		log.Printf("graphql: attempt %d/%d failed (%v); retrying in %s", attempt+1, attempts, lastErr, backoff)
		if err := c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d", e.code)
}

// isRetryableStatus reports whether a status is transient: 429 and 5xx.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns initial * 2^attempt clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		if initial > max {
			return max
		}
		return initial
	}
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits for d, returning early with ctx.Err() on cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
