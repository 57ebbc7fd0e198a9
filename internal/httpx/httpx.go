// Package httpx is the shared HTTP layer for every outbound API client. Each
// call is made once: failures are classified and returned, never retried.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevinmichaelchen/repoboard/internal/cache"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures, timeouts and unexpected statuses.
	ErrNetwork = errors.New("network error")

	// ErrRateLimited is returned for 403 and 429 responses.
	ErrRateLimited = errors.New("rate limited")
)

const maxBody = 8 << 20

// Client wraps http.Client with default headers and an optional response cache.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	headers map[string]string
}

type Option func(*Client)

// WithCache stores successful GET bodies in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// NewClient creates a Client whose requests time out after timeout. headers
// are applied to every request.
func NewClient(timeout time.Duration, headers map[string]string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		cache:   cache.Null{},
		headers: headers,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get performs a GET and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs a GET with extra headers merged over the defaults.
// Bodies are served from and written to the cache when one is configured.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.getBytes(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrNetwork, url, err)
	}
	return nil
}

// GetText performs a GET and returns the body as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.getBytes(ctx, url, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostJSON sends payload as JSON and returns the raw response body. POST
// responses are never cached.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) getBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if b, ok, err := c.cache.Get(ctx, url); err == nil && ok {
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, err := c.do(req, headers)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, url, body, c.ttl)
	return body, nil
}

func (c *Client) do(req *http.Request, headers map[string]string) ([]byte, error) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}
	return body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, code)
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
