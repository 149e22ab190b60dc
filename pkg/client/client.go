// Package client provides the resilient request layer of the Substack
// client: bounded retry with exponential backoff and jitter, server-directed
// delays, error classification, and optional response caching.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/substackapi/substack-go/pkg/cache"
	"github.com/substackapi/substack-go/pkg/transport"
)

// Prometheus metrics for request operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "substack_requests_total",
		Help: "Total Substack requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "substack_request_duration_seconds",
		Help:    "Substack request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "substack_errors_total",
		Help: "Total Substack request errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "substack_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "substack_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "substack_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Client executes logical GETs against the platform. Each call is
// self-contained: retry and backoff state live on the stack, so a single
// Client is safe for concurrent use.
type Client struct {
	transport *transport.Client
	cache     *cache.Manager
	retry     RetryConfig
	logger    zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Transport performs the actual HTTP calls. Required.
	Transport *transport.Client

	// Cache is an optional redis-backed response cache. Fresh cached
	// responses are served without a network call.
	Cache *cache.Manager

	// Retry configures backoff behavior. Zero fields use defaults.
	Retry RetryConfig
}

// New creates a new resilient client.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	return &Client{
		transport: cfg.Transport,
		cache:     cfg.Cache,
		retry:     cfg.Retry.withDefaults(),
		logger:    log.With().Str("component", "substack-client").Logger(),
	}, nil
}

// Transport exposes the underlying transport (identity probes use it
// indirectly via Get, auth state checks use it directly).
func (c *Client) Transport() *transport.Client {
	return c.transport
}

// Get performs one logical GET with bounded retry. It returns the response
// only for 2xx statuses; retryable failures (429, 500, 502, 503, 504,
// transport errors) are retried with backoff until the budget is exhausted,
// and every other outcome fails immediately with a typed *APIError.
func (c *Client) Get(ctx context.Context, rawURL string, params []transport.Param) (*transport.Response, error) {
	endpoint := endpointLabel(rawURL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var cacheKey cache.Key
	if c.cache != nil {
		cacheKey = cache.Key{URL: rawURL, Query: transport.EncodeParams(params)}
		if entry, err := c.cache.Get(ctx, cacheKey); err == nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Msg("Serving response from cache")
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return entry.ToResponse(), nil
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	var lastErr error
	var lastClass ErrorClass

	for attempt := 0; ; attempt++ {
		resp, err := c.transport.Get(ctx, rawURL, params)

		var serverDelay time.Duration
		var hasServerDelay bool

		switch {
		case err != nil:
			lastErr = err
			lastClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(err).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Transport error")

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			c.storeInCache(ctx, cacheKey, resp, endpoint)
			return resp, nil

		case retryableStatus(resp.StatusCode):
			lastClass = classifyStatus(resp.StatusCode)
			lastErr = &APIError{
				StatusCode: resp.StatusCode,
				Class:      lastClass,
				URL:        rawURL,
				Message:    fmt.Sprintf("retryable status %d", resp.StatusCode),
			}
			errorsTotal.WithLabelValues(string(lastClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
			serverDelay, hasServerDelay = resp.RetryAfter()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(lastClass)).
				Int("attempt", attempt).
				Msg("Retryable request failure")

		default:
			class := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(class)).Inc()
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("Fatal request failure")
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Class:      class,
				URL:        rawURL,
				Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			}
		}

		if attempt >= c.retry.MaxRetries {
			break
		}

		retriesTotal.WithLabelValues(string(lastClass)).Inc()
		delay := c.retry.backoffDelay(attempt, serverDelay, hasServerDelay)
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(delay.Seconds())

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Bool("server_directed", hasServerDelay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Str("error_class", string(lastClass)).
		Int("max_retries", c.retry.MaxRetries).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, c.retry.MaxRetries+1, lastErr)
}

// GetJSON performs a resilient GET and decodes the response body into v.
// A malformed body on a successful status is fatal, never retried.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params []transport.Param, v any) error {
	resp, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return err
	}
	if err := resp.JSON(v); err != nil {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}
	return nil
}

// storeInCache writes a successful response into the response cache.
func (c *Client) storeInCache(ctx context.Context, key cache.Key, resp *transport.Response, endpoint string) {
	if c.cache == nil || resp.StatusCode != 200 {
		return
	}
	entry := cache.NewEntry(resp)
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
	} else {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Dur("ttl", entry.TTL()).
			Msg("Cached response")
	}
}

// endpointLabel extracts a low-cardinality metrics label from a URL.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return rawURL
	}
	return u.Path
}
