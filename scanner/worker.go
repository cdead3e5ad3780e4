package scanner

import (
	"context"
	"net/netip"
	"time"

	"ipsniffer/port"
)

// Notifier receives the outcome of every probe a worker makes.
type Notifier interface {
	Send(o port.Outcome) error
}

// Worker probes one striped assignment of the port space.
type Worker struct {
	Assignment port.Assignment
	Target     netip.Addr
	Prober     Prober
	Metrics    Metrics
}

// Run probes each port of the assignment in order and sends one outcome per
// attempt. It returns the number of outcomes delivered. A failed send stops the
// worker; the remaining ports of its assignment are left unprobed.
func (w Worker) Run(ctx context.Context, out Notifier) (int, error) {
	m := w.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	sent := 0
	for p, ok := w.Assignment.First(); ok; p, ok = w.Assignment.Next(p) {
		start := time.Now()
		state := w.Prober.Probe(ctx, w.Target, p)
		m.ObserveProbe(state.String(), time.Since(start))

		if err := out.Send(port.Outcome{Port: p, State: state}); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
