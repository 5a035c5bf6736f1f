// Package fanout runs independent request operations concurrently under a
// bounded number of workers and returns their outcomes in submission order.
package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/rest-client/pkg/client"
	"github.com/Sternrassler/rest-client/pkg/logging"
	"github.com/Sternrassler/rest-client/pkg/metrics"
)

// Defaults for fan-out execution.
const (
	DefaultMaxConcurrency = 25
	DefaultRetryCount     = 3
)

var factory = promauto.With(metrics.Registry)

var (
	inFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "rest_fanout_in_flight",
		Help: "Operations currently executing inside fan-out pools",
	})

	operationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_fanout_operations_total",
		Help: "Fan-out operations by outcome",
	}, []string{"outcome"})
)

// Config holds pool configuration.
type Config struct {
	// MaxConcurrency is the maximum number of operations running at once.
	MaxConcurrency int
	// RetryCount is passed to Execute for every operation.
	RetryCount int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: DefaultMaxConcurrency,
		RetryCount:     DefaultRetryCount,
	}
}

// Executor runs one operation with retries. *client.Client implements it.
type Executor interface {
	Execute(ctx context.Context, op client.Operation, opts ...client.ExecuteOption) (*client.Response, error)
}

// Result is the outcome of the operation submitted at position Index.
type Result struct {
	Index    int
	Response *client.Response
	Err      error
}

// Pool fans operations out over a bounded set of workers.
type Pool struct {
	exec   Executor
	config Config
}

// New creates a pool. Non-positive settings fall back to the defaults.
func New(exec Executor, config Config) *Pool {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.RetryCount <= 0 {
		config.RetryCount = DefaultRetryCount
	}

	return &Pool{
		exec:   exec,
		config: config,
	}
}

// ExecuteAll runs every operation through the executor and returns one result
// per operation; results[k] belongs to ops[k] whatever the completion order.
// A failed operation does not stop its siblings. When ctx is cancelled,
// operations that have not started yet report the cancellation in their slot.
func (p *Pool) ExecuteAll(ctx context.Context, ops []client.Operation) []Result {
	results := make([]Result, len(ops))
	if len(ops) == 0 {
		return results
	}

	start := time.Now()
	logger := logging.NewLogger("fanout").With().
		Str("batch_id", uuid.NewString()).
		Logger()

	workers := p.config.MaxConcurrency
	if workers > len(ops) {
		workers = len(ops)
	}

	logger.Info().
		Int("operations", len(ops)).
		Int("workers", workers).
		Msg("Starting fan-out")

	queue := make(chan int, len(ops))
	for i := range ops {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go p.worker(ctx, logger, ops, queue, results, &wg)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	logger.Info().
		Int("operations", len(ops)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return results
}

// worker executes queued indices. Each index is written by exactly one
// worker, so results needs no lock.
func (p *Pool) worker(ctx context.Context, logger zerolog.Logger, ops []client.Operation, queue <-chan int, results []Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := range queue {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Index: i, Err: fmt.Errorf("%w: %w", client.ErrContextCancelled, err)}
			operationsTotal.WithLabelValues("cancelled").Inc()
			continue
		}

		inFlight.Inc()
		resp, err := p.exec.Execute(ctx, ops[i], client.WithRetryCount(p.config.RetryCount))
		inFlight.Dec()

		results[i] = Result{Index: i, Response: resp, Err: err}
		if err != nil {
			operationsTotal.WithLabelValues("failed").Inc()
			logger.Debug().Err(err).Int("index", i).Msg("Operation failed")
			continue
		}
		operationsTotal.WithLabelValues("succeeded").Inc()
	}
}

// FirstError returns the error of the lowest-index failed result, which is the
// error a caller consuming results in order would hit first.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("operation %d: %w", r.Index, r.Err)
		}
	}
	return nil
}

// Responses unwraps results into responses, failing on the first error in
// submission order.
func Responses(results []Result) ([]*client.Response, error) {
	if err := FirstError(results); err != nil {
		return nil, err
	}

	responses := make([]*client.Response, len(results))
	for i, r := range results {
		responses[i] = r.Response
	}
	return responses, nil
}
