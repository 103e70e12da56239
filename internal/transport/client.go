// Package transport is the HTTP client shared by every backend call. It keeps
// a cookie jar for the web session cookie and attaches credential headers to
// each request.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// HeaderSource provides the credential headers for a request
type HeaderSource interface {
	Headers(ctx context.Context) (http.Header, error)
}

// Config holds configuration for the client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

// Client is an HTTP client for the backend API
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
	headers    HeaderSource
	logger     *slog.Logger
}

// New creates a new API client with its own cookie jar
func New(cfg Config, headers HeaderSource, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		jar:     jar,
		headers: headers,
		logger:  logger,
	}, nil
}

// BaseURL returns the backend origin
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar holding the session and platform cookies
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Cookie returns the value of a named cookie for the backend origin
func (c *Client) Cookie(name string) (string, bool) {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

type errorEnvelope struct {
	Error  json.RawMessage `json:"error"`
	Detail string          `json:"detail"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Do performs an HTTP request. The credential headers are built first; if
// they cannot be built the request is not sent.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	op := method + " " + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.headers != nil {
		header, err := c.headers.Headers(ctx)
		if err != nil {
			return fmt.Errorf("failed to build credentials: %w", err)
		}
		for name, values := range header {
			for _, v := range values {
				req.Header.Add(name, v)
			}
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Debug("request failed", slog.String("op", op), slog.String("error", err.Error()))
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("request completed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return decodeHTTPError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func decodeHTTPError(status int, body []byte) error {
	he := &HTTPError{StatusCode: status, Body: string(body)}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return he
	}
	he.Message = env.Detail
	if len(env.Error) == 0 {
		return he
	}

	var structured errorBody
	if err := json.Unmarshal(env.Error, &structured); err == nil {
		he.Code = structured.Code
		if structured.Message != "" {
			he.Message = structured.Message
		}
		return he
	}
	var code string
	if err := json.Unmarshal(env.Error, &code); err == nil {
		he.Code = code
	}
	return he
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values, result any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, result)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, result)
}

// IsCanceled reports whether err came from context cancellation
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
