// Package client provides a REST client that retries single requests with
// backoff and builds per-verb request operations over a configured session.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/rest-client/pkg/logging"
	"github.com/Sternrassler/rest-client/pkg/metrics"
)

// factory registers this package's metrics with metrics.Registry.
var factory = promauto.With(metrics.Registry)

// Prometheus metrics for transport calls.
var (
	requestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_total",
		Help: "Total REST requests by method and status",
	}, []string{"method", "status"})

	requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rest_request_duration_seconds",
		Help:    "REST request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_errors_total",
		Help: "Total failed attempts by error class",
	}, []string{"class"})
)

// Client is a REST client bound to one base URL.
type Client struct {
	mu     sync.RWMutex
	config Config
	logger zerolog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new client. The configuration is copied; later changes to the
// caller's maps are not observed.
func New(cfg Config) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	cfg.BaseParams = copyMap(cfg.BaseParams)
	cfg.BaseHeaders = copyMap(cfg.BaseHeaders)
	cfg.Proxies = copyMap(cfg.Proxies)

	return &Client{
		config: cfg,
		logger: logging.NewLogger("rest-client"),
		sleep:  sleepContext,
	}, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg := c.config
	cfg.BaseParams = copyMap(c.config.BaseParams)
	cfg.BaseHeaders = copyMap(c.config.BaseHeaders)
	cfg.Proxies = copyMap(c.config.Proxies)
	return cfg
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.BaseURL
}

// SetBaseURL replaces the base URL. Operations built earlier read the new
// value the next time they run.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.BaseURL = baseURL
}

// SetLogger replaces the client logger. Calls already inside Execute keep
// the logger they started with.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Logger returns the client logger.
func (c *Client) Logger() zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
