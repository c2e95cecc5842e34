package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"requirement-analyzer/internal/metrics"
)

// TokenStore holds the bearer token pair between requests
type TokenStore interface {
	Tokens(ctx context.Context) (access, refresh string)
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}

// Client talks JSON over HTTP to the Requirement Analyzer backend
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	metrics metrics.Recorder
	debugf  func(format string, args ...interface{})

	refreshMu sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRecorder records request durations
func WithRecorder(rec metrics.Recorder) Option {
	return func(c *Client) { c.metrics = rec }
}

// WithDebug logs every round trip through fn
func WithDebug(fn func(format string, args ...interface{})) Option {
	return func(c *Client) { c.debugf = fn }
}

// NewClient creates a backend client
func NewClient(baseURL string, timeout time.Duration, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		metrics: metrics.Nop{},
		debugf:  func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one backend call. route is the path template used as
// the metrics label.
type request struct {
	method      string
	path        string
	route       string
	query       url.Values
	body        []byte
	contentType string
	public      bool
}

func jsonRequest(method, path, route string, payload interface{}) (request, error) {
	req := request{method: method, path: path, route: route}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = data
		req.contentType = "application/json"
	}
	return req, nil
}

// do sends req, refreshing the access token once on 401, and returns the
// raw response body of a 2xx response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	access, _ := c.tokens.Tokens(ctx)

	resp, err := c.send(ctx, req, access)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && !req.public {
		if !c.refresh(ctx, access) {
			return nil, c.expire(ctx)
		}
		access, _ = c.tokens.Tokens(ctx)
		resp, err = c.send(ctx, req, access)
		if err != nil {
			return nil, err
		}
		if resp.status == http.StatusUnauthorized {
			return nil, c.expire(ctx)
		}
	}

	if resp.status < 200 || resp.status >= 300 {
		return nil, newAPIError(resp.status, resp.body, resp.requestID)
	}
	return resp.body, nil
}

// doJSON sends req and decodes a JSON response into out
func (c *Client) doJSON(ctx context.Context, req request, out interface{}) error {
	body, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type response struct {
	status    int
	body      []byte
	requestID string
}

func (c *Client) send(ctx context.Context, req request, access string) (response, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if access != "" && !req.public {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.method, req.route, 0, time.Since(start))
		c.debugf("%s %s [%s] failed: %v", req.method, req.path, requestID, err)
		return response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(req.method, req.route, resp.StatusCode, time.Since(start))
	if err != nil {
		return response{}, fmt.Errorf("failed to read response: %w", err)
	}

	c.debugf("%s %s [%s] -> %d (%s)", req.method, req.path, requestID, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		c.debugf("[%s] response body: %s", requestID, truncateBody(data))
	}
	return response{status: resp.StatusCode, body: data, requestID: requestID}, nil
}

// refresh exchanges the refresh token for a new pair. When another caller
// already rotated the token since stale was sent, it reports success
// without a second exchange.
func (c *Client) refresh(ctx context.Context, stale string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	access, refreshToken := c.tokens.Tokens(ctx)
	if access != "" && access != stale {
		return true
	}
	if refreshToken == "" {
		return false
	}

	req, err := jsonRequest(http.MethodPost, "/auth/refresh", "/auth/refresh",
		map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return false
	}
	req.public = true

	resp, err := c.send(ctx, req, "")
	if err != nil || resp.status != http.StatusOK {
		return false
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(resp.body, &tokens); err != nil || tokens.AccessToken == "" {
		return false
	}
	return c.tokens.SetTokens(ctx, tokens.AccessToken, tokens.RefreshToken) == nil
}

func (c *Client) expire(ctx context.Context) error {
	if err := c.tokens.ClearTokens(ctx); err != nil {
		return fmt.Errorf("%w (failed to clear tokens: %v)", ErrSessionExpired, err)
	}
	return ErrSessionExpired
}

func truncateBody(data []byte) string {
	const limit = 512
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
