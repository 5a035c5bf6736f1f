package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rest_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// ExecuteOption overrides a retry setting for a single Execute call.
type ExecuteOption func(*executeSettings)

type executeSettings struct {
	retryCount int
	retryDelay time.Duration
}

// WithRetryCount sets the number of attempts. Values below 1 keep the
// client's RetryCount.
func WithRetryCount(n int) ExecuteOption {
	return func(s *executeSettings) {
		if n >= 1 {
			s.retryCount = n
		}
	}
}

// WithRetryDelay sets the base backoff delay. Negative values keep the
// client's RetryDelay.
func WithRetryDelay(d time.Duration) ExecuteOption {
	return func(s *executeSettings) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// Execute runs op until it succeeds or the attempts are used up. A response
// with status >= 400 counts as a failure. Between attempts the calling
// goroutine sleeps according to the configured backoff; no sleep follows the
// last attempt. Configuration errors are returned without retrying.
func (c *Client) Execute(ctx context.Context, op Operation, opts ...ExecuteOption) (*Response, error) {
	cfg := c.Config()
	logger := c.Logger()
	settings := executeSettings{
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	var lastErr error
	var errClass ErrorClass

	for attempt := 0; attempt < settings.retryCount; attempt++ {
		resp, err := op(ctx)
		if err == nil {
			err = checkStatus(resp)
		}
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Str("error_class", string(errClass)).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		lastErr = err
		errClass = ClassifyError(err)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		if !shouldRetry(errClass, !cfg.NoRetryClientErrors) {
			return nil, err
		}

		if attempt == settings.retryCount-1 {
			break
		}

		delay := backoffDelay(cfg.Backoff, settings.retryDelay, attempt, cfg.MaxBackoff)
		retriesTotal.WithLabelValues(string(errClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errClass)).Observe(delay.Seconds())

		logger.Debug().
			Err(err).
			Str("error_class", string(errClass)).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		if err := c.sleep(ctx, delay); err != nil {
			logger.Warn().
				Str("error_class", string(errClass)).
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry backoff")
			return nil, fmt.Errorf("%w: %w (last error: %v)", ErrContextCancelled, err, lastErr)
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
	logger.Warn().
		Err(lastErr).
		Str("error_class", string(errClass)).
		Int("max_attempts", settings.retryCount).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, settings.retryCount, lastErr)
}

// checkStatus turns a failing status code into an *HTTPStatusError.
func checkStatus(resp *Response) error {
	if resp == nil || resp.StatusCode < 400 {
		return nil
	}

	statusErr := &HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       resp.Body,
	}
	if resp.Request != nil {
		statusErr.Method = resp.Request.Method
		statusErr.URL = resp.Request.URL
	}
	return statusErr
}

// backoffDelay returns the wait after the given zero-based attempt.
func backoffDelay(kind BackoffKind, base time.Duration, attempt int, maxBackoff time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	switch kind {
	case BackoffExponential:
		backoff := base << uint(attempt)
		if backoff <= 0 || (maxBackoff > 0 && backoff > maxBackoff) {
			backoff = maxBackoff
		}
		// ±20% jitter
		return time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
	default:
		return base * time.Duration(attempt+1)
	}
}
