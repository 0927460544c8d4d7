// Package analyzer talks to the remote terms analysis service.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"esecure/internal/logging"

	"github.com/google/uuid"
)

// AnalyzePath is appended to the configured base URL.
const AnalyzePath = "/analyze_terms"

// AccessTokenHeader carries the static client token.
const AccessTokenHeader = "X-Access-Token"

// Config holds client settings.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration // zero means wait indefinitely
}

// Client posts analysis requests. It never retries.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given config.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	logging.APIDebug("analyzer client for %s (timeout %s)", c.Endpoint(), c.httpClient.Timeout)
	return c
}

// Endpoint returns the full analysis URL.
func (c *Client) Endpoint() string {
	return c.baseURL + AnalyzePath
}

// Analyze sends one request and interprets the answer.
//
// A 2xx response always yields a Result, falling back to DefaultFeedback
// when the body has no feedback or cannot be decoded. Any other status
// yields a *RemoteError. A *NetworkError means no response was obtained.
func (c *Client) Analyze(ctx context.Context, req Request) (Result, error) {
	reqID := uuid.NewString()
	log := logging.Get(logging.CategoryAPI).With("request_id", reqID)

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		log.Error("failed to create request: %v", err)
		return Result{}, &NetworkError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(AccessTokenHeader, c.accessToken)

	log.Info("POST %s (%s, %d bytes)", c.Endpoint(), req.Kind(), len(body))
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("request failed after %s: %v", time.Since(start), err)
		return Result{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("failed to read response body: %v", err)
		return Result{}, &NetworkError{Err: err}
	}

	ct := resp.Header.Get("Content-Type")
	log.Info("status %d, content-type %q, %d bytes in %s", resp.StatusCode, ct, len(raw), time.Since(start))

	p, decodeErr := decodeBody(resp.StatusCode, ct, raw)
	if decodeErr != nil {
		log.Warn("%v: %s", decodeErr, summarizeBody(ct, string(raw)))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return p.result(), nil
	}

	rerr := p.remoteError(resp.StatusCode, decodeErr)
	log.Warn("remote error: %s", rerr.Message)
	return Result{}, rerr
}
