// Package https provides the HTTP client used for result uploads, with bearer
// auth, status checking and debug logging in one place.
package https

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evalkit/relevancy-go/logger"
)

// HTTPError represents an HTTP error response with status code.
type HTTPError struct {
	StatusCode int
	Body       string
	err        error
}

func (e *HTTPError) Error() string {
	return e.err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.err
}

// Client sends JSON requests to a single base URL.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a client for baseURL. An empty apiKey sends no
// Authorization header.
func NewClient(apiKey, baseURL string, log logger.Logger) *Client {
	return NewWrappedClient(apiKey, baseURL, &http.Client{Timeout: 30 * time.Second}, log)
}

// NewWrappedClient creates a client that sends requests with httpClient.
// This is useful for tests that need to wrap the HTTP client (e.g., with VCR).
func NewWrappedClient(apiKey, baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log,
	}
}

// POST makes a POST request with a JSON body.
// The path is appended to the base URL (e.g., "/v1/evaluations").
func (c *Client) POST(ctx context.Context, path string, body any) (*http.Response, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("failed to join URL: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)

		c.logger.Debug("http request body", "body", string(jsonData))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.doRequest(req)
}

// doRequest executes the HTTP request with auth, error checking, and logging.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	c.logger.Debug("http request",
		"method", req.Method,
		"url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("http request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"error", err,
			"duration", time.Since(start))
		return nil, fmt.Errorf("error making request: %w", err)
	}

	c.logger.Debug("http response",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			err:        fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body)),
		}
	}

	return resp, nil
}
