// Package api is the client of the remote workflow REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rendis/flowedit/internal/auth"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/pkg/schema"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// Error is a failed API call. ServerMessage holds the "message" field of the
// response body when the server sent one.
type Error struct {
	Method        string
	Path          string
	StatusCode    int
	ServerMessage string
	Cause         error
}

func (e *Error) Error() string {
	switch {
	case e.ServerMessage != "":
		return fmt.Sprintf("api: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.ServerMessage)
	case e.Cause != nil:
		return fmt.Sprintf("api: %s %s: %v", e.Method, e.Path, e.Cause)
	default:
		return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Message returns the human-readable text for a failed action: the server's
// message when present, fallback otherwise.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.ServerMessage != "" {
		return apiErr.ServerMessage
	}
	return fallback
}

// StatusCode returns the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client issues one-shot JSON requests. It never retries and sets no
// timeout of its own; callers bound requests through the context.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *auth.Credentials
	logger  *slog.Logger
}

// New creates a client for baseURL authenticating with creds.
func New(baseURL string, creds *auth.Credentials, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if creds == nil {
		creds = auth.New("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		creds:   creds,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the client's credentials context.
func (c *Client) Credentials() *auth.Credentials { return c.creds }

// request describes one call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	public bool
}

// do performs req and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	start := time.Now()
	fail := func(status int, msg string, cause error) error {
		return &Error{Method: req.method, Path: req.path, StatusCode: status, ServerMessage: msg, Cause: cause}
	}

	var token string
	if !req.public {
		t, ok := c.creds.Token()
		if !ok {
			c.creds.Invalidate(auth.ReasonMissing)
			return fail(http.StatusUnauthorized, "", schema.NewError(schema.ErrCodeUnauthorized, "not authenticated"))
		}
		token = t
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fail(0, "", fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fail(0, "", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		logging.LogWith(ctx, c.logger).DebugContext(ctx, "api request failed",
			"method", req.method, "path", req.path, "error", err)
		return fail(0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	c.logger.DebugContext(ctx, "api request",
		"method", req.method, "path", req.path,
		"status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized && !req.public {
		c.creds.Invalidate(auth.ReasonUnauthorized)
		return fail(resp.StatusCode, serverMessage(raw),
			schema.NewError(schema.ErrCodeUnauthorized, "session rejected by server"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, serverMessage(raw), statusCause(resp.StatusCode))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func statusCause(status int) error {
	switch status {
	case http.StatusNotFound:
		return schema.NewError(schema.ErrCodeNotFound, http.StatusText(status))
	case http.StatusConflict:
		return schema.NewError(schema.ErrCodeConflict, http.StatusText(status))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return schema.NewError(schema.ErrCodeValidation, http.StatusText(status))
	default:
		return schema.NewError(schema.ErrCodeAPI, http.StatusText(status))
	}
}

// serverMessage extracts {"message": ...} (or {"error": ...}) from a body.
func serverMessage(raw []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &env) != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}
