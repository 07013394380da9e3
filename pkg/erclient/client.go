// Package erclient is the HTTP client for the ER backend API. Every call
// attaches Basic authentication derived from the caller's credentials and
// normalizes responses into either decoded JSON or a single *Error.
package erclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the backend origin used when none is configured.
const DefaultBaseURL = "http://localhost:8080"

// RequestIDHeader is sent on every outgoing request.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID returns a context whose outgoing backend calls carry id as
// their X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for per-request debug events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client issues GET/POST/PATCH requests against a fixed base origin.
// It holds no per-session state and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Client for baseURL, which must be an absolute http or https
// URL. A trailing slash is ignored.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET to path and decodes the JSON response into out.
// out may be nil, or a *json.RawMessage to receive the body unchanged.
func (c *Client) Get(ctx context.Context, path string, creds *Credentials, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, false, creds, out)
}

// Post issues a POST to path with body serialized as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, creds *Credentials, out any) error {
	return c.do(ctx, http.MethodPost, path, body, true, creds, out)
}

// Patch issues a PATCH to path without a body.
func (c *Client) Patch(ctx context.Context, path string, creds *Credentials, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, false, creds, out)
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) do(ctx context.Context, method, path string, body any, hasBody bool, creds *Credentials, out any) error {
	var reader io.Reader
	if hasBody {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	for k, vs := range BuildAuthHeader(creds) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	rid := RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	req.Header.Set(RequestIDHeader, rid)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("request_id", rid).
			Str("method", method).
			Str("path", path).
			Dur("latency", time.Since(start)).
			Msg("backend request failed")
		return newTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)

	c.logger.Debug().
		Str("request_id", rid).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Bool("authenticated", creds.Complete()).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if err != nil {
		return newTransportError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewResponseError(resp.StatusCode, statusText(resp), data)
	}

	if !json.Valid(data) {
		return newDecodeError(resp.StatusCode, statusText(resp), fmt.Errorf("response body is not valid JSON"))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newDecodeError(resp.StatusCode, statusText(resp), err)
	}
	return nil
}
