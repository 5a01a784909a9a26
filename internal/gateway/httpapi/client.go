package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/carehub/internal/gateway"
)

// TokenFunc returns the bearer token for the current session.
type TokenFunc func(ctx context.Context) (string, error)

// errorResponse is the error body the backend returns.
type errorResponse struct {
	Error string `json:"error"`
}

// Client is a thin HTTP client for the notification REST API.
// It handles Bearer token authentication, JSON marshaling, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      TokenFunc
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the retry budget and the first backoff step for 429s.
func WithRetry(maxRetries int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// NewClient creates a new API client. The baseURL should be the root URL
// of the backend (e.g., http://localhost:8080).
func NewClient(baseURL string, token TokenFunc, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Put performs an HTTP PUT request with an optional JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// do builds the request, attaches the session token, retries on 429,
// and maps 401 and 404 onto the gateway's error values.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	token, err := c.token(ctx)
	if err != nil {
		return &gateway.AuthError{Message: err.Error()}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			if attempt == c.maxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &gateway.AuthError{
				Message: fmt.Sprintf("%s rejected the session token", c.baseURL),
			}
		}

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, gateway.ErrNotFound)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var apiErr errorResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
				return fmt.Errorf(
					"api error (%d) on %s %s: %s",
					resp.StatusCode, method, path, apiErr.Error,
				)
			}
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody),
			)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func (c *Client) retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := c.baseDelay << uint(attempt)
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
