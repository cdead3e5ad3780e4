package scanner

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"syscall"
	"time"

	"ipsniffer/port"
)

// Prober performs one connect attempt against a port and classifies it.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr, p uint16) port.State
}

// TCPProber performs a full TCP connect per port. A zero Timeout leaves the
// attempt to the platform's default connect behaviour.
type TCPProber struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Probe returns port.Open when the handshake completes. Every failure, whether
// refused, timed out, unreachable or reset, is reported as port.Closed.
func (t TCPProber) Probe(ctx context.Context, addr netip.Addr, p uint16) port.State {
	target := netip.AddrPortFrom(addr, p).String()
	d := net.Dialer{Timeout: t.Timeout}

	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		if t.Logger != nil {
			t.Logger.Debug("tcp connect failed", "addr", target, "reason", failureReason(err))
		}
		return port.Closed
	}
	_ = conn.Close()
	if t.Logger != nil {
		t.Logger.Debug("tcp connect succeeded", "addr", target)
	}
	return port.Open
}

// failureReason names a dial error for logs only; it never affects the state.
func failureReason(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "reset"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return "unreachable"
	default:
		return err.Error()
	}
}
