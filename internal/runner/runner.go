// Package runner drives one polling cycle across the registered sources:
// each source is collected and dispatched independently, a per-source summary
// is reported, and the run as a whole fails only when every source failed.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjames86/grafana-collectors/pkg/ingest"
	"github.com/rjames86/grafana-collectors/pkg/metrics"
	"github.com/rjames86/grafana-collectors/pkg/point"
)

// Source is one upstream collector: it fetches its payloads and maps them to
// a batch of points bound for one destination database. A Collect call is
// single-shot and safe to re-run.
type Source interface {
	// Name identifies the source in logs and summaries.
	Name() string
	// Destination names the ingestion database the source's batch is
	// written to.
	Destination() string
	// Collect fetches the source and returns its normalized batch.
	Collect(ctx context.Context) (*point.Batch, error)
}

// Result summarizes one source's outcome within a run.
type Result struct {
	Source string
	Points int
	Err    error
}

// ErrAllSourcesFailed is returned by Run when no source produced data.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Runner executes sources sequentially and dispatches each source's batch.
type Runner struct {
	logger     *slog.Logger
	dispatcher ingest.Dispatcher
	verbose    bool
	metrics    *metrics.CollectorMetrics
}

// Config holds the configuration for the Runner.
type Config struct {
	Logger     *slog.Logger
	Dispatcher ingest.Dispatcher
	// Verbose is forwarded on every write request so the ingestion API
	// echoes the points it stores.
	Verbose bool
	// Metrics is the optional Prometheus metrics collector.
	Metrics *metrics.CollectorMetrics
}

// New creates a new Runner.
func New(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("runner config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}

	return &Runner{
		logger:     cfg.Logger,
		dispatcher: cfg.Dispatcher,
		verbose:    cfg.Verbose,
		metrics:    cfg.Metrics,
	}, nil
}

// Run collects and dispatches every source. A failing source never prevents
// the remaining sources from running. The returned results always cover all
// sources in order; the error is non-nil only when every source failed.
func (r *Runner) Run(ctx context.Context, sources []Source) ([]Result, error) {
	if len(sources) == 0 {
		return nil, errors.New("no sources registered")
	}

	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		results = append(results, r.runSource(ctx, src))
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			r.logger.Error("source failed",
				"source", res.Source,
				"error", res.Err,
			)
			continue
		}
		r.logger.Info("source complete",
			"source", res.Source,
			"points", res.Points,
		)
	}

	if failed == len(results) {
		return results, fmt.Errorf("%w: %d sources", ErrAllSourcesFailed, failed)
	}
	if failed > 0 {
		r.logger.Warn("run finished with partial data",
			"failed", failed,
			"total", len(results),
		)
	}
	return results, nil
}

// runSource executes one source's collect-and-dispatch cycle.
func (r *Runner) runSource(ctx context.Context, src Source) Result {
	var timer *prometheus.Timer
	if r.metrics != nil {
		timer = prometheus.NewTimer(r.metrics.RunDuration.WithLabelValues(src.Name()))
		defer timer.ObserveDuration()
	}

	batch, err := src.Collect(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.FetchFailures.WithLabelValues(src.Name()).Inc()
		}
		return Result{Source: src.Name(), Err: fmt.Errorf("fetch failed: %w", err)}
	}

	if r.metrics != nil {
		r.metrics.PointsEmitted.WithLabelValues(src.Name()).Add(float64(batch.Len()))
	}

	// A source with nothing to report is a success, not an error; there is
	// no batch to dispatch.
	if batch.Len() == 0 {
		return Result{Source: src.Name()}
	}

	if _, err := r.dispatcher.Write(ctx, src.Destination(), batch, r.verbose); err != nil {
		if r.metrics != nil {
			reason := "terminal"
			var dispatchErr *ingest.DispatchError
			if errors.As(err, &dispatchErr) && dispatchErr.Retriable {
				reason = "retriable"
			}
			r.metrics.DispatchFailures.WithLabelValues(src.Name(), reason).Inc()
		}
		return Result{Source: src.Name(), Points: batch.Len(), Err: err}
	}

	if r.metrics != nil {
		r.metrics.BatchesDispatched.WithLabelValues(src.Name()).Inc()
	}
	return Result{Source: src.Name(), Points: batch.Len()}
}
