// Package api is the HTTP client for the analytics backend. Every request is rate
// limited and retried on 429, 5xx and timeouts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/model"
)

// Client defaults.
const (
	DefaultBaseURL           = "http://127.0.0.1:8000"
	DefaultWorkspace         = "default"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerMinute = 120
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	Workspace         string
	Timeout           time.Duration
	RequestsPerMinute int
	Retry             common.RetryOptions
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client calls the backend's /db endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	baseURL    string
	workspace  string
	retry      common.RetryOptions
}

// NewClient validates cfg and creates a client. Close releases idle connections.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: api base url %q", common.ErrInvalidConfig, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	workspace := strings.TrimSpace(cfg.Workspace)
	if workspace == "" {
		workspace = DefaultWorkspace
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = common.DefaultRetryOptions()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		limiter:    newRateLimiter(cfg.RequestsPerMinute),
		logger:     logger,
		baseURL:    base,
		workspace:  workspace,
		retry:      retry,
	}, nil
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Workspace is the workspace used when a query leaves it empty.
func (c *Client) Workspace() string {
	return c.workspace
}

// Params are query parameters. Nil and empty string values are omitted.
type Params map[string]any

// Values encodes p, dropping nil and empty values.
func (p Params) Values() url.Values {
	q := url.Values{}
	for k, v := range p {
		if v == nil {
			continue
		}
		s := model.ToText(v)
		if s == "" {
			continue
		}
		q.Set(k, s)
	}
	return q
}

// APIError is a non-2xx backend response.
type APIError struct {
	kind    error
	Message string
	Path    string
	Status  int
	// RetryAfter is the wait the backend asked for on a 429 or 503.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Path, e.Status, e.Message)
}

// Unwrap exposes common.ErrAPI and, for 429 and 5xx, the retryable cause.
func (e *APIError) Unwrap() []error {
	if e.kind == nil {
		return []error{common.ErrAPI}
	}
	return []error{common.ErrAPI, e.kind}
}

// RetryDelay implements common.RetryDelayer.
func (e *APIError) RetryDelay() time.Duration {
	return e.RetryAfter
}

func newAPIError(path string, status int, header http.Header, body []byte) *APIError {
	e := &APIError{
		Path:       path,
		Status:     status,
		Message:    errorMessage(status, body),
		RetryAfter: parseRetryAfter(header.Get("Retry-After")),
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.kind = common.ErrRateLimit
	case status >= 500:
		e.kind = common.ErrServerError
	}
	return e
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP dates are
// ignored and fall back to the client's own backoff.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// errorMessage extracts a FastAPI error: a string detail, a list of validation
// errors joined by " | ", a message field, or else the raw body.
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("Request failed: %d", status)

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
		if list, ok := payload["detail"].([]any); ok {
			msgs := make([]string, 0, len(list))
			for _, d := range list {
				if m, ok := d.(map[string]any); ok {
					if msg, ok := m["msg"].(string); ok && msg != "" {
						msgs = append(msgs, msg)
						continue
					}
				}
				raw, _ := json.Marshal(d)
				msgs = append(msgs, string(raw))
			}
			if len(msgs) == 0 {
				return fallback
			}
			return strings.Join(msgs, " | ")
		}
		for _, key := range []string{"detail", "message"} {
			if v, ok := payload[key]; ok && v != nil {
				if s := model.ToText(v); s != "" {
					return s
				}
			}
		}
	}

	if raw := strings.TrimSpace(string(body)); raw != "" {
		return raw
	}
	return fallback
}

// get issues a GET for path and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params Params, out any) error {
	endpoint := c.baseURL + path
	if q := params.Values().Encode(); q != "" {
		endpoint += "?" + q
	}

	start := time.Now()
	err := common.WithRetry(ctx, func() error {
		if err := c.waitTurn(ctx); err != nil {
			return err
		}
		return c.do(ctx, path, endpoint, out)
	}, c.retry)

	c.logger.Debug("Backend request",
		"path", path,
		"duration", time.Since(start),
		"error", err)

	return err
}

func (c *Client) do(ctx context.Context, path, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(path, resp.StatusCode, resp.Header, body)
		if apiErr.kind == nil {
			return &common.RetryableError{Err: apiErr, Retryable: false}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &common.RetryableError{Err: fmt.Errorf("failed to parse %s response: %w", path, err), Retryable: false}
	}
	return nil
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
