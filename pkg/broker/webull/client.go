package webull

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/syncx"

	"wbjapi/pkg/broker"
)

const (
	defaultBaseURL = "https://api.webull.co.jp/openapi"

	defaultHTTPTimeout  = 30 * time.Second
	defaultRetryBackoff = 200 * time.Millisecond
	defaultMaxAttempts  = 3
)

// Client coordinates signed requests against the Webull Japan OpenAPI.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     *log.Logger
	clock      func() time.Time

	maxAttempts  int
	retryBackoff time.Duration

	sessionMu     sync.RWMutex
	session       *Session
	sessionFlight syncx.SingleFlight
}

// ClientOption customises the Webull client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL points the client at a different API host, e.g. a sandbox.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
		}
	}
}

// WithLogger attaches a custom logger (defaults to log.Default()).
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source (primarily for testing).
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMaxRetries bounds transient-failure retries per request.
func WithMaxRetries(attempts int) ClientOption {
	return func(c *Client) {
		if attempts >= 1 {
			c.maxAttempts = attempts
		}
	}
}

// WithRetryBackoff sets the initial backoff between transient retries.
func WithRetryBackoff(backoff time.Duration) ClientOption {
	return func(c *Client) {
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// NewClient constructs a Webull Japan client using the provided credentials.
func NewClient(creds Credentials, opts ...ClientOption) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	client := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		creds:         creds,
		logger:        log.Default(),
		clock:         time.Now,
		maxAttempts:   defaultMaxAttempts,
		retryBackoff:  defaultRetryBackoff,
		sessionFlight: syncx.NewSingleFlight(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.logger == nil {
		client.logger = log.Default()
	}
	if client.clock == nil {
		client.clock = time.Now
	}
	return client, nil
}

// BaseURL returns the configured API host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest executes an authenticated endpoint call. An expired session is
// refreshed transparently and the original request replayed exactly once;
// a second authentication failure surfaces as *broker.AuthError.
func (c *Client) doRequest(ctx context.Context, name string, params map[string]string, body, result interface{}) error {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	err = c.send(ctx, name, body, params, result, token)
	if !broker.IsAuthError(err) {
		return err
	}

	c.logf("webull: session rejected on %s, refreshing and replaying once", name)
	c.InvalidateSession()
	token, refreshErr := c.refreshSession(ctx)
	if refreshErr != nil {
		return refreshErr
	}
	return c.send(ctx, name, body, params, result, token)
}

// send performs a single logical request with bounded transient retries.
// Authentication failures are returned immediately; the caller decides
// whether a refresh-and-replay is appropriate.
func (c *Client) send(ctx context.Context, name string, body interface{}, params map[string]string, result interface{}, token string) error {
	method, path, query, err := resolveEndpoint(name, params)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("webull: encode %s request: %w", name, err)
		}
	}

	backoff := c.retryBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := c.buildRequest(ctx, method, path, query, payload, token)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("webull: read %s response: %w", name, readErr)
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return &broker.AuthError{
					Endpoint: name,
					Err:      fmt.Errorf("webull: http status %d: %s", resp.StatusCode, apiMessage(respBody)),
				}
			case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("webull: http status %d: %s", resp.StatusCode, apiMessage(respBody))
			case resp.StatusCode < http.StatusOK || resp.StatusCode >= 300:
				// Remaining 4xx statuses are not retryable.
				return fmt.Errorf("webull: %s failed with status %d: %s", name, resp.StatusCode, apiMessage(respBody))
			default:
				if result == nil {
					return nil
				}
				if err := json.Unmarshal(respBody, result); err != nil {
					return fmt.Errorf("webull: decode %s response: %w", name, err)
				}
				return nil
			}
		}

		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return &broker.TransportError{Endpoint: name, Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) buildRequest(ctx context.Context, method, path string, query map[string]string, payload []byte, token string) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			values.Set(key, value)
		}
		target += "?" + values.Encode()
	}

	var reader io.Reader
	if len(payload) > 0 {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("webull: build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(headerAccessToken, token)
	}
	c.signRequest(req, payload, newNonce(), c.clock())
	return req, nil
}

func apiMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return apiErr.Msg
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
