// Package httpclient is the outbound HTTP layer shared by every provider
// adapter: bounded retries with geometric backoff, a per-call timeout and a
// default User-Agent.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vietddude/marketetl/internal/core/domain"
	"github.com/vietddude/marketetl/internal/etl/metrics"
)

const maxBodyBytes = 32 << 20

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds client-wide settings.
type Config struct {
	Retry     RetryConfig
	Timeout   time.Duration
	UserAgent string
}

// Client makes provider calls with retry and timeout policy applied.
type Client struct {
	doer      Doer
	cfg       Config
	retryable map[int]bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// New creates a client. Zero values in cfg fall back to defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if cfg.Retry.BackoffFactor < 1 {
		cfg.Retry.BackoffFactor = DefaultRetryConfig.BackoffFactor
	}
	if cfg.Retry.RetryStatuses == nil {
		cfg.Retry.RetryStatuses = DefaultRetryConfig.RetryStatuses
	}

	c := &Client{
		doer: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		cfg:       cfg,
		retryable: make(map[int]bool, len(cfg.Retry.RetryStatuses)),
		sleep:     Sleep,
	}
	for _, s := range cfg.Retry.RetryStatuses {
		c.retryable[s] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type callOptions struct {
	headers http.Header
	timeout time.Duration
}

// CallOption customizes a single call.
type CallOption func(*callOptions)

// WithHeader sets a request header. A User-Agent set here replaces the default.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		o.headers.Set(key, value)
	}
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// GetJSON performs a GET and returns the parsed JSON body. A 2xx body that is
// not JSON is reported as domain.ErrProviderInvalidResponse.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, opts ...CallOption) (gjson.Result, error) {
	body, err := c.Call(ctx, http.MethodGet, rawURL, params, opts...)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("decode %s: %w", rawURL, domain.ErrProviderInvalidResponse)
	}
	return gjson.ParseBytes(body), nil
}

// GetBytes performs a GET and returns the raw body.
func (c *Client) GetBytes(ctx context.Context, rawURL string, params url.Values, opts ...CallOption) ([]byte, error) {
	return c.Call(ctx, http.MethodGet, rawURL, params, opts...)
}

// Call sends method to rawURL with params merged into its query string.
// Idempotent methods are retried on connection failures and on the
// configured statuses; the caller only sees the final outcome.
func (c *Client) Call(ctx context.Context, method, rawURL string, params url.Values, opts ...CallOption) ([]byte, error) {
	o := callOptions{headers: make(http.Header), timeout: c.cfg.Timeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.headers.Get("User-Agent") == "" {
		o.headers.Set("User-Agent", c.cfg.UserAgent)
	}

	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, &domain.TransportError{Method: method, URL: rawURL, Err: err}
	}

	maxAttempts := 1
	if idempotent(method) {
		maxAttempts += c.cfg.Retry.MaxRetries
	}

	start := time.Now()
	defer func() {
		metrics.HTTPLatency.WithLabelValues(target.Host).Observe(time.Since(start).Seconds())
	}()

	for attempt := 1; ; attempt++ {
		body, status, retryAfter, err := c.attempt(ctx, method, target, o)
		if err == nil && status >= 200 && status < 300 {
			metrics.HTTPAttemptsTotal.WithLabelValues(target.Host, "success").Inc()
			return body, nil
		}

		terr := &domain.TransportError{Method: method, URL: target.String(), Attempts: attempt}
		retry := false
		switch {
		case ctx.Err() != nil:
			terr.Err = ctx.Err()
			metrics.HTTPAttemptsTotal.WithLabelValues(target.Host, "canceled").Inc()
			return nil, terr
		case err != nil:
			// Connection-level failure, including a per-attempt timeout.
			terr.Err = err
			retry = true
			metrics.HTTPAttemptsTotal.WithLabelValues(target.Host, "error").Inc()
		default:
			terr.StatusCode = status
			terr.Err = fmt.Errorf("unexpected status %d: %s", status, snippet(body))
			retry = c.retryable[status]
			metrics.HTTPAttemptsTotal.WithLabelValues(target.Host, strconvStatus(status)).Inc()
		}

		if !retry || attempt >= maxAttempts {
			return nil, terr
		}

		delay := c.cfg.Retry.backoff(attempt)
		if retryAfter > delay {
			delay = retryAfter
			if c.cfg.Retry.MaxDelay > 0 && delay > c.cfg.Retry.MaxDelay {
				delay = c.cfg.Retry.MaxDelay
			}
		}
		if err := c.sleep(ctx, delay); err != nil {
			terr.Err = err
			return nil, terr
		}
	}
}

func (c *Client) attempt(
	ctx context.Context,
	method string,
	target *url.URL,
	o callOptions,
) ([]byte, int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range o.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func withParams(rawURL string, params url.Values) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("url must be absolute")
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

func strconvStatus(status int) string {
	return fmt.Sprintf("http_%d", status)
}
