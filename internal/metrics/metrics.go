// Package metrics exposes scan progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/nodescan/internal/model"
)

// Collector holds the scan metrics on its own registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	nodesProcessed prometheus.Counter
	nodesMissing   prometheus.Counter
	fetchErrors    prometheus.Counter
	issues         *prometheus.CounterVec
	progress       prometheus.Gauge
}

// NewCollector creates and registers the scan metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		nodesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodescan_nodes_processed_total",
			Help: "Total number of nodes processed, existing or not.",
		}),
		nodesMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodescan_nodes_missing_total",
			Help: "Total number of nodes whose page did not answer 200.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodescan_fetch_errors_total",
			Help: "Total number of existing nodes whose page could not be analyzed.",
		}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodescan_issues_total",
			Help: "Total number of issues found, labeled by kind.",
		}, []string{"kind"}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nodescan_progress_ratio",
			Help: "Completed nodes divided by the node range size.",
		}),
	}
	c.registry.MustRegister(c.nodesProcessed, c.nodesMissing, c.fetchErrors, c.issues, c.progress)
	return c
}

// ObserveNode counts one processed node and its issues.
func (c *Collector) ObserveNode(outcome model.NodeOutcome) {
	if c == nil {
		return
	}
	c.nodesProcessed.Inc()
	if !outcome.Exists {
		c.nodesMissing.Inc()
		return
	}
	if outcome.FetchErr != nil {
		c.fetchErrors.Inc()
	}
	for _, issue := range outcome.Issues {
		c.issues.WithLabelValues(issue.Kind.String()).Inc()
	}
}

// SetProgress sets the progress ratio.
func (c *Collector) SetProgress(completed, total int) {
	if c == nil || total <= 0 {
		return
	}
	c.progress.Set(float64(completed) / float64(total))
}

// Handler returns the HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("exposing Prometheus metrics", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}
