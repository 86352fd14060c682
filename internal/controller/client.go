package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
)

// DefaultTimeout bounds every request to the controller
const DefaultTimeout = 10 * time.Second

// ErrEmptyResult is returned when the controller answers with no records
var ErrEmptyResult = errors.New("controller returned no records")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("controller error (status %d): %s", e.StatusCode, e.Body)
}

// Client reads telemetry from the brewing controller HTTP API
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a controller client for baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse controller URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("controller URL must be absolute: %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: newTransport(c.timeout),
		}
	}

	return c, nil
}

// WithTimeout sets a custom timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout <= 0 {
			return
		}
		c.timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// BaseURL returns the controller root URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LatestRecords fetches up to limit records, newest first.
// An empty result is reported as ErrEmptyResult.
func (c *Client) LatestRecords(ctx context.Context, limit int) ([]models.ControllerRecord, error) {
	if limit < 1 {
		limit = 1
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/data?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []models.ControllerRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrEmptyResult
	}

	return records, nil
}

// doRequest performs an HTTP request and rejects non-2xx responses
func (c *Client) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}
