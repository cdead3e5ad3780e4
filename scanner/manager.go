package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"ipsniffer/notify"
	"ipsniffer/port"
)

var (
	// ErrInvalidTarget is returned before any worker starts when the target cannot be scanned.
	ErrInvalidTarget = errors.New("invalid scan target")
	// ErrIncomplete is returned alongside a partial result when a worker stopped early.
	ErrIncomplete = errors.New("scan incomplete")
)

// Target is the validated input of a scan run.
type Target struct {
	Address netip.Addr
	Workers int
	Timeout time.Duration // zero means no explicit bound per connect attempt
}

// TotalPorts is the number of ports a run over this target probes.
func (t Target) TotalPorts() int { return port.MaxPort }

// Validate rejects targets that must not reach the workers.
func (t Target) Validate() error {
	if !t.Address.IsValid() {
		return fmt.Errorf("%w: missing or malformed address", ErrInvalidTarget)
	}
	if t.Workers < 1 {
		return fmt.Errorf("%w: worker count must be at least 1, got %d", ErrInvalidTarget, t.Workers)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidTarget, t.Timeout)
	}
	return nil
}

// Metrics receives instrumentation from a scan run.
type Metrics interface {
	ObserveProbe(state string, d time.Duration)
	WorkerStarted()
	WorkerFinished()
	IncWorkerErrors()
	SetOpenPorts(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveProbe(string, time.Duration) {}
func (noopMetrics) WorkerStarted() {}
func (noopMetrics) WorkerFinished() {}
func (noopMetrics) IncWorkerErrors() {}
func (noopMetrics) SetOpenPorts(int) {}

// Option customises a Manager.
type Option func(*Manager)

// WithProber replaces the TCP connect prober.
func WithProber(p Prober) Option { return func(m *Manager) { m.prober = p } }

// WithReporter sets where progress and the final result are presented.
func WithReporter(r Reporter) Option { return func(m *Manager) { m.reporter = r } }

// WithMetrics records probe, worker and result instrumentation in mt.
func WithMetrics(mt Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// withNotifier decorates the handle each worker sends its outcomes through.
func withNotifier(wrap func(Notifier) Notifier) Option {
	return func(m *Manager) { m.wrapNotifier = wrap }
}

// WithProgressStep overrides how many outcomes advance the progress indicator.
func WithProgressStep(n int) Option { return func(m *Manager) { m.step = n } }

// Manager runs a full-range connect scan: it partitions the port space, starts one
// worker per assignment and drains their outcomes on the calling goroutine.
type Manager struct {
	target   Target
	prober   Prober
	reporter Reporter
	metrics  Metrics
	log      *slog.Logger
	step     int

	wrapNotifier func(Notifier) Notifier
}

// NewManager creates a Manager for target.
func NewManager(target Target, opts ...Option) *Manager {
	m := &Manager{
		target:  target,
		metrics: noopMetrics{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.prober == nil {
		m.prober = TCPProber{Timeout: target.Timeout, Logger: m.log}
	}
	return m
}

// Run scans every port of the target and blocks until all workers are done and
// their outcomes drained. There is no early stop. If a worker fails, the partial
// result is returned together with an error wrapping ErrIncomplete.
func (m *Manager) Run(ctx context.Context) (port.ScanResult, error) {
	if err := m.target.Validate(); err != nil {
		return port.ScanResult{}, err
	}
	start := time.Now()
	log := m.log.With("target", m.target.Address.String(), "workers", m.target.Workers)

	assignments := port.Partition(m.target.Workers)
	log.Debug("ports partitioned", "assignments", len(assignments), "timeout", m.target.Timeout)

	ch := notify.New(port.MaxPort)
	producers := make([]*notify.Producer, len(assignments))
	for i := range assignments {
		p, err := ch.Producer()
		if err != nil {
			return port.ScanResult{}, fmt.Errorf("create producer: %w", err)
		}
		producers[i] = p
	}
	consumer, err := ch.Consumer()
	if err != nil {
		return port.ScanResult{}, fmt.Errorf("create consumer: %w", err)
	}
	defer consumer.Close()

	var g errgroup.Group
	for i, a := range assignments {
		a := a
		w := Worker{Assignment: a, Target: m.target.Address, Prober: m.prober, Metrics: m.metrics}
		producer := producers[i]
		var out Notifier = producer
		if m.wrapNotifier != nil {
			out = m.wrapNotifier(producer)
		}
		g.Go(func() error {
			defer producer.Release()
			m.metrics.WorkerStarted()
			defer m.metrics.WorkerFinished()

			n, err := w.Run(ctx, out)
			if err != nil {
				m.metrics.IncWorkerErrors()
				log.Warn("worker stopped early", "start_port", a.Start, "sent", n, "error", err)
				return fmt.Errorf("worker starting at port %d: %w", a.Start, err)
			}
			return nil
		})
	}
	log.Debug("scanning")

	agg := Aggregator{Reporter: m.reporter, Step: m.step}
	res := agg.Drain(consumer)
	log.Debug("outcomes drained", "processed", res.Processed)
	werr := g.Wait()
	m.metrics.SetOpenPorts(len(res.OpenPorts))

	log.Info("scan finished",
		"open", len(res.OpenPorts),
		"processed", res.Processed,
		"elapsed", time.Since(start))

	if werr != nil || !res.Complete() {
		return res, errors.Join(ErrIncomplete, werr)
	}
	return res, nil
}
