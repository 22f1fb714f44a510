// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the chat-completions client.
const (
	// DefaultTimeout is the default per-request deadline.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps the response body read. A misbehaving endpoint
	// must not exhaust memory.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors for common failure classes.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates an invalid or expired API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the endpoint rejected the request rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyCompletion indicates a well-formed response with no content.
	// An empty draft must never silently become a customer reply.
	ErrEmptyCompletion = errors.New("completion contained no content")
)

// APIError is a structured error from the endpoint.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one OpenAI-compatible chat-completions endpoint.
// It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the attempt budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxRetries = n
		}
	}
}

// WithRequestsPerMinute sets the client-side rate limit.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the given endpoint. An empty API key is
// accepted; Chat then fails with ErrNotConfigured at call time.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(1), 60),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends a non-streaming chat completion request and returns the
// parsed response. Transient failures (connect errors, 5xx, 429) are
// retried with exponential backoff up to the configured budget; all other
// failures surface immediately.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		resp, err := c.doRequest(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !c.isRetryable(err) {
			return nil, err
		}
		log.Printf("llm: attempt %d/%d failed, retrying: %v", attempt+1, c.maxRetries, err)
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Complete is a convenience wrapper: one system prompt, one user message,
// returns the completion text. jsonMode requests a JSON object response.
func (c *Client) Complete(ctx context.Context, model, systemPrompt, userContent string, jsonMode bool) (string, error) {
	req := ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			NewSystemMessage(systemPrompt),
			NewUserMessage(userContent),
		},
	}
	if jsonMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	content := resp.GetContent()
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) doRequest(ctx context.Context, body []byte) (*ChatResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "riskgate/0.1.0")

	// Log method and path only - never headers or bodies.
	log.Printf("llm: POST %s", httpReq.URL.Path)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("llm: %d %s (%v)", resp.StatusCode, resp.Status, time.Since(start).Round(time.Millisecond))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &chatResp, nil
}

func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	message := ""
	code := ""
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message = apiErr.Error.Message
		code = apiErr.Error.Code
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	}
	return &APIError{Code: code, Message: message, Status: statusCode}
}

// isRetryable reports whether an error is transient: connect failures,
// rate limiting, and 5xx responses. Auth failures and malformed responses
// are permanent.
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	// Network-level failure.
	return strings.Contains(err.Error(), "request failed")
}

// backoff returns the delay before the given retry attempt: 500ms, 1s,
// 2s, ... capped at retryMaxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}
