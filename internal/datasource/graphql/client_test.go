// These tests exercise the GraphQL transport, focusing on:
//   - Default configuration and headers.
//   - Opt-in retry and backoff on throttled/5xx responses.
//   - GraphQL errors surfacing as *TransportError instead of partial data.
//   - Variables being sent separately from the document text.

package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()

	c, err := NewClient(Config{
		Endpoint:       url,
		AccessToken:    "shpat_test",
		MaxRetries:     retries,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}

	c, err := NewClient(Config{Endpoint: "http://example.invalid/graphql.json", InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s", c.httpClient.Timeout)
	}
	if c.maxRetries != 0 {
		t.Fatalf("maxRetries = %d, want 0 (no silent retries)", c.maxRetries)
	}
	tp, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tp.TLSClientConfig == nil || !tp.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected default transport with InsecureSkipVerify=true, got %T", c.httpClient.Transport)
	}
	if got := c.headers.Get(AccessTokenHeader); got != "" {
		t.Fatalf("access token header should be unset, got %q", got)
	}
}

func TestQuery_SendsVariablesAndDecodesData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get(AccessTokenHeader); got != "shpat_test" {
			t.Errorf("token header = %q", got)
		}
		var req request
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Variables["id"] != `gid://shopify/Page/1"}` {
			t.Errorf("variables[id] = %v", req.Variables["id"])
		}
		_, _ = io.WriteString(w, `{"data":{"page":{"handle":"about"}}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	var out struct {
		Page *struct {
			Handle string `json:"handle"`
		} `json:"page"`
	}
	// A quote in the id must travel as a variable, not break the document.
	err := c.Query(context.Background(), `query($id: ID!) { page(id: $id) { handle } }`,
		map[string]any{"id": `gid://shopify/Page/1"}`}, &out)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if out.Page == nil || out.Page.Handle != "about" {
		t.Fatalf("decoded = %+v", out.Page)
	}
}

func TestQuery_GraphQLErrorsAreTransportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"page":null},"errors":[{"message":"Access denied for page field.","extensions":{"code":"ACCESS_DENIED"}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)

	var out map[string]any
	err := c.Query(context.Background(), `query { shop { name } }`, nil, &out)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T (%v)", err, err)
	}
	if te.Op != "graphql" || len(te.Messages) != 1 {
		t.Fatalf("unexpected error shape: %+v", te)
	}
	if !IsAccessDenied(err) {
		t.Fatalf("expected IsAccessDenied to be true for %v", err)
	}
	if out != nil {
		t.Fatalf("partial data must not be decoded, got %v", out)
	}
}

func TestQuery_StatusAndDecodeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		wantOp string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"errors":"[API] Invalid API key"}`, wantOp: "status"},
		{name: "malformed", status: http.StatusOK, body: `{"data":`, wantOp: "decode"},
		{name: "no data", status: http.StatusOK, body: `{"data":null}`, wantOp: "decode"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, 0)
			var out map[string]any
			err := c.Query(context.Background(), `query { shop { name } }`, nil, &out)
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TransportError, got %v", err)
			}
			if te.Op != tc.wantOp {
				t.Fatalf("Op = %q, want %q (%v)", te.Op, tc.wantOp, err)
			}
		})
	}
}

func TestQuery_NoRetryByDefault(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	err := c.Query(context.Background(), `query { shop { name } }`, nil, nil)
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected status TransportError, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestQuery_RetriesThrottledWhenConfigured(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"shop":{"name":"x"}}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	var out struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	if err := c.Query(context.Background(), `query { shop { name } }`, nil, &out); err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if out.Shop.Name != "x" {
		t.Fatalf("decoded name = %q", out.Shop.Name)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
	if len(sleeps) != 2 {
		t.Fatalf("backoff sleeps = %d, want 2", len(sleeps))
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{100 * time.Millisecond, 0, time.Second, 100 * time.Millisecond},
		{100 * time.Millisecond, 1, time.Second, 200 * time.Millisecond},
		{100 * time.Millisecond, 2, time.Second, 400 * time.Millisecond},
		{600 * time.Millisecond, 1, time.Second, time.Second},
		{2 * time.Second, 0, time.Second, time.Second},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.initial.String()+"/attempt="+strconv.Itoa(tt.attempt), func(t *testing.T) {
			t.Parallel()
			if got := backoffDuration(tt.initial, tt.attempt, tt.max); got != tt.want {
				t.Fatalf("backoffDuration(%v, %d, %v) = %v, want %v", tt.initial, tt.attempt, tt.max, got, tt.want)
			}
		})
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
