package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// TransportError reports a query that failed as a whole: network failure,
// non-2xx status, malformed body, or a response carrying GraphQL errors.
type TransportError struct {
	// Op names the failing stage: "post", "status", "decode" or "graphql".
	Op string

	// Status is the HTTP status code, when a response was received.
	Status int

	// Messages holds the GraphQL error messages for Op == "graphql".
	Messages []string

	// Codes holds extensions.code values, e.g. ACCESS_DENIED or THROTTLED.
	Codes []string

	Err error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("graphql ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// HasCode reports whether any GraphQL error carried the given extensions code.
func (e *TransportError) HasCode(code string) bool {
	for _, c := range e.Codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// IsAccessDenied reports whether err is a GraphQL access-scope failure.
func IsAccessDenied(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.Status == http.StatusForbidden || te.HasCode("ACCESS_DENIED")
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// Query posts the document with its variables and decodes the data object
// into out. out may be nil when the caller only needs the call to succeed.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("graphql: encode request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return &TransportError{Op: "status", Status: se.code, Err: err}
		}
		return &TransportError{Op: "post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{
			Op:     "status",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return &TransportError{Op: "decode", Status: resp.StatusCode, Err: err}
	}

	if len(r.Errors) > 0 {
		te := &TransportError{Op: "graphql", Status: resp.StatusCode}
		for _, e := range r.Errors {
			te.Messages = append(te.Messages, e.Message)
			if e.Extensions.Code != "" {
				te.Codes = append(te.Codes, e.Extensions.Code)
			}
		}
		return te
	}

	if out == nil {
		return nil
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return &TransportError{Op: "decode", Status: resp.StatusCode, Err: errors.New("response has no data")}
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return &TransportError{Op: "decode", Status: resp.StatusCode, Err: err}
	}
	return nil
}
