// Package store records finished scan runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ipsniffer/port"
	"ipsniffer/scanner"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("scan run not found")

// Run is one completed (or partial) scan of a target.
type Run struct {
	ID         uuid.UUID
	Target     string
	Address    string
	Workers    int
	Timeout    time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	OpenPorts  []uint16
}

// NewRun captures a finished scan under a fresh identifier.
func NewRun(target string, t scanner.Target, started, finished time.Time, res port.ScanResult) *Run {
	return &Run{
		ID:         uuid.New(),
		Target:     target,
		Address:    t.Address.String(),
		Workers:    t.Workers,
		Timeout:    t.Timeout,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Processed:  res.Processed,
		OpenPorts:  res.OpenPorts,
	}
}

// Complete reports whether the run covered the whole port space.
func (r *Run) Complete() bool { return r.Processed == port.MaxPort }

// Result returns the run's outcome in the form the scanner produced it.
func (r *Run) Result() port.ScanResult {
	return port.ScanResult{OpenPorts: r.OpenPorts, Processed: r.Processed}
}

// Repository defines the minimal contract required to persist scan runs.
type Repository interface {
	SaveRun(ctx context.Context, run *Run) error
	Latest(ctx context.Context, target string) (*Run, error)
	Close() error
}
