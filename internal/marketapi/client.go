// Package marketapi is the HTTP client for the insurance statistics backend.
package marketapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/insurance-market/dashboard/internal/market"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 2048

// APIError is returned for non-2xx backend responses.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketapi: %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// MetricsCollector records backend call outcomes.
type MetricsCollector interface {
	ObserveUpstream(endpoint string, status int, duration time.Duration)
	UpstreamError(endpoint string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveUpstream(string, int, time.Duration) {}
func (noopMetrics) UpstreamError(string)                       {}

// RetryConfig bounds the exponential backoff applied to transient failures.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries twice, starting at 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second}
}

// Client talks to the backend API rooted at baseURL (for example
// "http://backend:8000/api").
type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
	limiter    *rate.Limiter
	metrics    MetricsCollector
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetry sets the retry policy. MaxRetries of zero disables retries.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithRateLimit caps outgoing requests per second; zero or less disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics wires a metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a Client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		retry:      DefaultRetryConfig(),
		metrics:    noopMetrics{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (market.Health, error) {
	var out market.Health
	err := c.get(ctx, "/health", nil, &out)
	return out, err
}

// Filters returns the available years, quarters and ramos.
func (c *Client) Filters(ctx context.Context) (market.FilterOptions, error) {
	var out market.FilterOptions
	err := c.get(ctx, "/filters", nil, &out)
	return out, err
}

// KPIs returns the market totals for q.
func (c *Client) KPIs(ctx context.Context, q market.Query) (market.KPIs, error) {
	var out market.KPIs
	err := c.get(ctx, "/data/kpis", queryValues(q, false), &out)
	return out, err
}

// CompanyRanking returns per company and category production for the top
// q.TopN companies.
func (c *Client) CompanyRanking(ctx context.Context, q market.Query) (market.CompanyRanking, error) {
	var out market.CompanyRanking
	err := c.get(ctx, "/data/companies/ranking", queryValues(q, true), &out)
	return out, err
}

// Distribution returns the market split by ramo or, with g BySubramo, by
// subramo.
func (c *Client) Distribution(ctx context.Context, q market.Query, g market.Granularity) (market.Distribution, error) {
	path := "/data/distribution/ramos"
	if g == market.BySubramo {
		path = "/data/distribution/subramos"
	}
	var out market.Distribution
	err := c.get(ctx, path, queryValues(q, false), &out)
	return out, err
}

func queryValues(q market.Query, withTopN bool) url.Values {
	v := url.Values{}
	if q.Year != "" {
		v.Set("year", q.Year)
	}
	if q.Quarter != "" {
		v.Set("quarter", q.Quarter)
	}
	if q.Ramo != "" {
		v.Set("ramo", q.Ramo)
	}
	if q.ViewMode != "" {
		v.Set("view_mode", string(q.ViewMode))
	}
	if withTopN && q.TopN > 0 {
		v.Set("top_n", strconv.Itoa(q.TopN))
	}
	return v
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	start := time.Now()
	status := 0
	attempt := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("marketapi: build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			apiErr := &APIError{StatusCode: resp.StatusCode, Method: http.MethodGet, URL: endpoint, Body: strings.TrimSpace(string(body))}
			if apiErr.Temporary() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return backoff.Permanent(fmt.Errorf("marketapi: decode %s: %w", path, err))
		}
		return nil
	}

	var err error
	if c.retry.MaxRetries > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.retry.InitialInterval
		b.MaxInterval = c.retry.MaxInterval
		notify := func(err error, wait time.Duration) {
			c.logger.Warn("backend request retry",
				slog.String("path", path),
				slog.String("request_id", requestID),
				slog.Duration("wait", wait),
				slog.Any("error", err))
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retry.MaxRetries)), ctx)
		err = backoff.RetryNotify(attempt, policy, notify)
	} else {
		err = attempt()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}

	c.metrics.ObserveUpstream(path, status, time.Since(start))
	if err != nil {
		c.metrics.UpstreamError(path)
		return fmt.Errorf("marketapi: GET %s: %w", path, err)
	}
	return nil
}
