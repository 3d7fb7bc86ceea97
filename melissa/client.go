package melissa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-kit/log"
)

const (
	DefaultTimeout          = 3 * time.Minute
	DefaultMaxResponseBytes = 1 << 20 // 1MiB
)

// Config holds the credentials and limits of a Client. It is copied by New.
type Config struct {
	LicenseKey string
	UserID     string
	Timeout    time.Duration
	Logging    LogConfig
}

// Client talks to the Melissa web services. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	licenseKey       string
	userID           string
	timeout          time.Duration
	baseURL          string
	maxResponseBytes int64
	httpClient       HTTPClient
	logger           log.Logger
	logConfig        LogConfig
	metrics          *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-request log lines.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the default *http.Client. The configured timeout
// is not applied to a replaced client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL sends requests to base instead of https://{host}. The service
// path suffix is kept.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithMetrics records every request on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithMaxResponseBytes caps how much of a response body is read. A 2xx body
// over the cap fails with ErrResponseTooLarge.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		c.maxResponseBytes = n
	}
}

// New returns a Client for cfg. A zero timeout means DefaultTimeout.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, &ConfigurationError{Field: "timeout", Value: cfg.Timeout.String(), Err: ErrInvalidTimeout}
	}
	c := &Client{
		licenseKey:       cfg.LicenseKey,
		userID:           cfg.UserID,
		timeout:          cfg.Timeout,
		maxResponseBytes: DefaultMaxResponseBytes,
		logConfig:        cfg.Logging,
	}
	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxResponseBytes < 0 {
		return nil, &ConfigurationError{Field: "max response bytes", Value: strconv.FormatInt(c.maxResponseBytes, 10), Err: ErrInvalidMaxResponse}
	}
	if c.maxResponseBytes == 0 {
		c.maxResponseBytes = DefaultMaxResponseBytes
	}
	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ConfigurationError{Field: "base URL", Value: c.baseURL, Err: ErrInvalidBaseURL}
		}
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeout)
	}
	if c.logger == nil {
		c.logger = log.NewNopLogger()
	}
	return c, nil
}

// Timeout returns the request timeout applied to the default HTTP client.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Request describes a single call. Token, when set, takes precedence over
// the configured license key and user id.
type Request struct {
	Method   string
	Service  ServiceName
	Endpoint string
	Query    url.Values
	Body     interface{}
	Token    string
}

// Get issues a GET and decodes a 2xx JSON body into dst.
func (c *Client) Get(ctx context.Context, service ServiceName, endpoint string, query url.Values, token string, dst interface{}) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Service: service, Endpoint: endpoint, Query: query, Token: token}, dst)
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, service ServiceName, endpoint string, query url.Values, body interface{}, token string, dst interface{}) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Service: service, Endpoint: endpoint, Query: query, Body: body, Token: token}, dst)
}

// Put issues a PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, service ServiceName, endpoint string, query url.Values, body interface{}, token string, dst interface{}) error {
	return c.Do(ctx, &Request{Method: http.MethodPut, Service: service, Endpoint: endpoint, Query: query, Body: body, Token: token}, dst)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, service ServiceName, endpoint string, query url.Values, token string, dst interface{}) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Service: service, Endpoint: endpoint, Query: query, Token: token}, dst)
}

// Do sends r and classifies the answer. A 2xx body is decoded into dst
// (skipped when dst is nil or the body is empty). Any other status yields an
// *APIError; failures before a response yield a *TransportError.
func (c *Client) Do(ctx context.Context, r *Request, dst interface{}) error {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return &ConfigurationError{Field: "method", Value: r.Method, Err: ErrUnsupportedMethod}
	}

	rawURL, err := buildURLWithBase(c.baseURL, r.Service, r.Endpoint)
	if err != nil {
		return err
	}

	query := make(url.Values, len(r.Query)+1)
	for k, v := range r.Query {
		query[k] = append([]string(nil), v...)
	}
	query.Set("id", selectIdentifier(r.Token, c.licenseKey, c.userID))

	var reqBody []byte
	var body io.Reader
	if r.Body != nil {
		reqBody, err = json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, rawURL+"?"+query.Encode(), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	entry := requestLog{method: r.Method, service: r.Service, url: rawURL, query: query, reqBody: reqBody}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportFailure(entry, start, err)
	}
	defer resp.Body.Close()

	entry.status = resp.StatusCode
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return c.transportFailure(entry, start, err)
	}
	truncated := int64(len(data)) > c.maxResponseBytes
	if truncated {
		data = data[:c.maxResponseBytes]
	}

	entry.duration = time.Since(start)
	entry.respBody = data
	logRequest(c.logger, c.logConfig, entry)
	c.metrics.RecordRequest(r.Service, r.Method, resp.StatusCode, entry.duration)

	if !isSuccess(resp.StatusCode) {
		return &APIError{StatusCode: resp.StatusCode, Meta: data, MetaTruncated: truncated, URL: rawURL}
	}
	if truncated {
		return fmt.Errorf("%d - %s: %w (limit %d bytes)", resp.StatusCode, rawURL, ErrResponseTooLarge, c.maxResponseBytes)
	}
	if dst == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) transportFailure(entry requestLog, start time.Time, err error) error {
	entry.duration = time.Since(start)
	entry.err = err
	logRequest(c.logger, c.logConfig, entry)
	c.metrics.RecordRequest(entry.service, entry.method, entry.status, entry.duration)
	return &TransportError{Method: entry.method, URL: entry.url, StatusCode: entry.status, Err: err}
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
