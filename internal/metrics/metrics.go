// Package metrics holds the Prometheus collectors recorded by the keeper.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	cyclesTotal            *prometheus.CounterVec
	stepOutcomesTotal      *prometheus.CounterVec
	transactionsTotal      *prometheus.CounterVec
	gasFallbacksTotal      *prometheus.CounterVec
	encodingFallbacksTotal *prometheus.CounterVec
	amountFallbacksTotal   *prometheus.CounterVec
	cycleDuration          prometheus.Histogram
}

// New registers all collectors on registry. A nil registry uses
// prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		cyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldilocks_cycles_total",
				Help: "Total number of cycles by result",
			},
			[]string{"result"},
		),
		stepOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldilocks_step_outcomes_total",
				Help: "Total number of cycle outcomes by step and severity",
			},
			[]string{"step", "severity"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldilocks_transactions_total",
				Help: "Total number of submitted transactions by method and status",
			},
			[]string{"method", "status"},
		),
		gasFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldilocks_gas_fallbacks_total",
				Help: "Transactions sent with the fallback gas limit after estimation failed",
			},
			[]string{"method"},
		),
		encodingFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldilocks_encoding_fallbacks_total",
				Help: "Transactions whose calldata was encoded manually",
			},
			[]string{"method"},
		),
		amountFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldilocks_amount_fallbacks_total",
				Help: "Amounts reported from a fallback value because no matching event was decoded",
			},
			[]string{"event"},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "goldilocks_cycle_duration_seconds",
				Help:    "Duration of a full cycle in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
	}
}

func (m *Metrics) RecordCycle(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordStepOutcome(step, severity string) {
	if m == nil {
		return
	}
	m.stepOutcomesTotal.WithLabelValues(step, severity).Inc()
}

func (m *Metrics) RecordTransaction(method, status string) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues(method, status).Inc()
}

func (m *Metrics) RecordGasFallback(method string) {
	if m == nil {
		return
	}
	m.gasFallbacksTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordEncodingFallback(method string) {
	if m == nil {
		return
	}
	m.encodingFallbacksTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordAmountFallback(event string) {
	if m == nil {
		return
	}
	m.amountFallbacksTotal.WithLabelValues(event).Inc()
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
