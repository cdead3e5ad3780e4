package scanner

import (
	"slices"

	"ipsniffer/port"
)

// DefaultProgressStep advances the progress indicator once per hundredth of the port space.
const DefaultProgressStep = port.MaxPort / 100

// Source is the read side of a notification stream. Receive returns false at end of stream.
type Source interface {
	Receive() (port.Outcome, bool)
}

// Reporter presents scan progress and the final result. It is only ever called
// from the goroutine running Aggregator.Drain.
type Reporter interface {
	Progress(processed, total int)
	Finish(res port.ScanResult)
}

// Aggregator owns the result of a scan. It must not be drained concurrently.
type Aggregator struct {
	Reporter Reporter
	Step     int
}

// Drain consumes outcomes until end of stream and returns the open ports in
// ascending order along with the number of outcomes seen.
func (a *Aggregator) Drain(src Source) port.ScanResult {
	rep := a.Reporter
	if rep == nil {
		rep = nopReporter{}
	}
	step := a.Step
	if step <= 0 {
		step = DefaultProgressStep
	}

	var res port.ScanResult
	for {
		o, ok := src.Receive()
		if !ok {
			break
		}
		res.Processed++
		if o.State == port.Open {
			res.OpenPorts = append(res.OpenPorts, o.Port)
		}
		if res.Processed%step == 0 {
			rep.Progress(res.Processed, port.MaxPort)
		}
	}

	if res.OpenPorts == nil {
		res.OpenPorts = []uint16{}
	}
	slices.Sort(res.OpenPorts)
	res.OpenPorts = slices.Compact(res.OpenPorts)

	rep.Progress(res.Processed, port.MaxPort)
	rep.Finish(res)
	return res
}

type nopReporter struct{}

func (nopReporter) Progress(int, int) {}
func (nopReporter) Finish(port.ScanResult) {}
