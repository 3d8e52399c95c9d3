// Package metrics exposes saturation progress as Prometheus metrics on a
// private registry, optionally served over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"satwatch/internal/diagnostic"
	"satwatch/internal/logging"
)

// Metrics holds the satwatch collectors.
type Metrics struct {
	registry *prometheus.Registry

	// iterations counts completed iterations.
	// Labels: "hypothesis", "conclusion", "none"
	iterations *prometheus.CounterVec

	diagnostics *prometheus.CounterVec
	incomplete  prometheus.Counter
	historyLen  prometheus.Gauge
	queueDepth  prometheus.Gauge
	cycleSpan   prometheus.Gauge
	ancestryLen prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "satwatch_iterations_total",
			Help: "Completed saturation iterations by selection role",
		}, []string{"selection"}),
		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "satwatch_diagnostics_total",
			Help: "Diagnostics emitted by severity and label",
		}, []string{"severity", "label"}),
		incomplete: factory.NewCounter(prometheus.CounterOpts{
			Name: "satwatch_incomplete_iterations_total",
			Help: "Turns that could not be completed because progress or query was missing",
		}),
		historyLen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "satwatch_fact_history_entries",
			Help: "Entries in the run-length encoded selected-fact history",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "satwatch_queue_depth",
			Help: "Rules in the prover queue at the last completed iteration",
		}),
		cycleSpan: factory.NewGauge(prometheus.GaugeOpts{
			Name: "satwatch_cycle_span",
			Help: "History entries covered by the last detected cycle, 0 when none is running",
		}),
		ancestryLen: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "satwatch_ancestry_length",
			Help:    "Iterations in reconstructed ancestry chains",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveIteration counts one completed iteration and records its queue depth.
func (m *Metrics) ObserveIteration(selection string, inQueue int) {
	if selection == "" {
		selection = "none"
	}
	m.iterations.WithLabelValues(selection).Inc()
	m.queueDepth.Set(float64(inQueue))
}

// ObserveDiagnostic counts one emitted diagnostic.
func (m *Metrics) ObserveDiagnostic(d diagnostic.Diagnostic) {
	m.diagnostics.WithLabelValues(string(d.Severity), d.Label).Inc()
}

// IncompleteIteration counts a refused flush.
func (m *Metrics) IncompleteIteration() {
	m.incomplete.Inc()
}

// SetHistoryEntries records the fact history length.
func (m *Metrics) SetHistoryEntries(n int) {
	m.historyLen.Set(float64(n))
}

// SetCycleSpan records the span of the running cycle.
func (m *Metrics) SetCycleSpan(span int) {
	m.cycleSpan.Set(float64(span))
}

// ObserveAncestry records the length of an ancestry chain.
func (m *Metrics) ObserveAncestry(n int) {
	m.ancestryLen.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs an HTTP server for the metrics endpoint until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Get(logging.CategoryMetrics).Info("serving metrics on %s%s", addr, path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
