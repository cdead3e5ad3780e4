// Package metrics exposes Prometheus instrumentation for scan runs.
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

const namespace = "ipsniffer"

// Scanner holds the collectors updated while a scan runs.
type Scanner struct {
	registry *prometheus.Registry

	Outcomes      *prometheus.CounterVec
	ProbeDuration prometheus.Histogram
	ActiveWorkers prometheus.Gauge
	OpenPorts     prometheus.Gauge
	WorkerErrors  prometheus.Counter
}

// New registers the scan collectors on a private registry.
func New() *Scanner {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Scanner{
		registry: reg,
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "port_outcomes_total",
			Help:      "Number of ports probed, by resulting state",
		}, []string{"state"}),
		ProbeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time spent in a single TCP connect attempt",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of scan workers still probing",
		}),
		OpenPorts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_ports",
			Help:      "Open ports found by the most recent scan",
		}),
		WorkerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_errors_total",
			Help:      "Workers that stopped before finishing their ports",
		}),
	}
}

// ObserveProbe counts one outcome by state and records how long the attempt took.
func (m *Scanner) ObserveProbe(state string, d time.Duration) {
	m.Outcomes.WithLabelValues(state).Inc()
	m.ProbeDuration.Observe(d.Seconds())
}

// WorkerStarted marks a worker as running.
func (m *Scanner) WorkerStarted() { m.ActiveWorkers.Inc() }

// WorkerFinished marks a worker as done.
func (m *Scanner) WorkerFinished() { m.ActiveWorkers.Dec() }

// IncWorkerErrors counts a worker that stopped before finishing its ports.
func (m *Scanner) IncWorkerErrors() { m.WorkerErrors.Inc() }

// SetOpenPorts publishes the number of open ports of the finished scan.
func (m *Scanner) SetOpenPorts(n int) { m.OpenPorts.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (m *Scanner) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Scanner) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
