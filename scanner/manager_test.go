package scanner

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipsniffer/port"
)

// fakeProber reports Open for a fixed set of ports and counts every attempt.
type fakeProber struct {
	open  map[uint16]bool
	calls [port.MaxPort + 1]atomic.Int32
}

func newFakeProber(open ...uint16) *fakeProber {
	f := &fakeProber{open: make(map[uint16]bool)}
	for _, p := range open {
		f.open[p] = true
	}
	return f
}

func (f *fakeProber) Probe(_ context.Context, _ netip.Addr, p uint16) port.State {
	f.calls[p].Add(1)
	if f.open[p] {
		return port.Open
	}
	return port.Closed
}

func (f *fakeProber) assertEachPortOnce(t *testing.T) {
	t.Helper()
	for p := 1; p <= port.MaxPort; p++ {
		if n := f.calls[p].Load(); n != 1 {
			t.Fatalf("port %d probed %d times", p, n)
		}
	}
	require.Zero(t, f.calls[0].Load(), "port 0 must never be probed")
}

type recordingReporter struct {
	mu       sync.Mutex
	progress []int
	finished []port.ScanResult
}

func (r *recordingReporter) Progress(processed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, processed)
}

func (r *recordingReporter) Finish(res port.ScanResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res)
}

type countingMetrics struct {
	probes   atomic.Int64
	started  atomic.Int64
	finished atomic.Int64
	errs     atomic.Int64
	open     atomic.Int64
}

func (c *countingMetrics) ObserveProbe(string, time.Duration) { c.probes.Add(1) }
func (c *countingMetrics) WorkerStarted() { c.started.Add(1) }
func (c *countingMetrics) WorkerFinished() { c.finished.Add(1) }
func (c *countingMetrics) IncWorkerErrors() { c.errs.Add(1) }
func (c *countingMetrics) SetOpenPorts(n int) { c.open.Store(int64(n)) }

func runFake(t *testing.T, workers int, prober *fakeProber, opts ...Option) (port.ScanResult, error) {
	t.Helper()
	target := Target{Address: netip.MustParseAddr("10.0.0.1"), Workers: workers, Timeout: time.Second}
	opts = append([]Option{WithProber(prober)}, opts...)

	type out struct {
		res port.ScanResult
		err error
	}
	done := make(chan out, 1)
	go func() {
		res, err := NewManager(target, opts...).Run(context.Background())
		done <- out{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-time.After(30 * time.Second):
		t.Fatal("scan did not terminate")
		return port.ScanResult{}, nil
	}
}

func TestManager_FourWorkersFindsOpenPorts(t *testing.T) {
	prober := newFakeProber(8080, 80, 443)
	rep := &recordingReporter{}
	met := &countingMetrics{}

	res, err := runFake(t, 4, prober, WithReporter(rep), WithMetrics(met))
	require.NoError(t, err)

	assert.Equal(t, []uint16{80, 443, 8080}, res.OpenPorts)
	assert.Equal(t, port.MaxPort, res.Processed)
	assert.True(t, res.Complete())
	prober.assertEachPortOnce(t)

	require.Len(t, rep.finished, 1)
	assert.Equal(t, res, rep.finished[0])
	assert.Equal(t, int64(port.MaxPort), met.probes.Load())
	assert.Equal(t, int64(4), met.started.Load())
	assert.Equal(t, int64(4), met.finished.Load())
	assert.Equal(t, int64(3), met.open.Load())
}

func TestManager_SingleWorker(t *testing.T) {
	prober := newFakeProber(1, port.MaxPort)
	res, err := runFake(t, 1, prober)
	require.NoError(t, err)

	assert.Equal(t, []uint16{1, port.MaxPort}, res.OpenPorts)
	assert.Equal(t, port.MaxPort, res.Processed)
	prober.assertEachPortOnce(t)
}

func TestManager_MoreWorkersThanPorts(t *testing.T) {
	prober := newFakeProber(22)
	met := &countingMetrics{}
	res, err := runFake(t, 70000, prober, WithMetrics(met))
	require.NoError(t, err)

	assert.Equal(t, []uint16{22}, res.OpenPorts)
	assert.Equal(t, port.MaxPort, res.Processed)
	prober.assertEachPortOnce(t)
	assert.Equal(t, int64(70000), met.finished.Load())
}

func TestManager_AllClosed(t *testing.T) {
	prober := newFakeProber()
	rep := &recordingReporter{}
	res, err := runFake(t, 16, prober, WithReporter(rep))
	require.NoError(t, err)

	assert.NotNil(t, res.OpenPorts)
	assert.Empty(t, res.OpenPorts)
	assert.Equal(t, port.MaxPort, res.Processed)
	require.Len(t, rep.finished, 1)
	assert.Empty(t, rep.finished[0].OpenPorts)
}

func TestManager_ProgressIsMonotonic(t *testing.T) {
	rep := &recordingReporter{}
	_, err := runFake(t, 8, newFakeProber(), WithReporter(rep))
	require.NoError(t, err)

	// One update per step, plus a final one at completion.
	require.Len(t, rep.progress, port.MaxPort/DefaultProgressStep+1)
	assert.IsNonDecreasing(t, rep.progress)
	assert.Equal(t, port.MaxPort, rep.progress[len(rep.progress)-1])
}

func TestManager_InvalidTarget(t *testing.T) {
	cases := []struct {
		name   string
		target Target
	}{
		{"zero workers", Target{Address: netip.MustParseAddr("127.0.0.1"), Workers: 0}},
		{"negative workers", Target{Address: netip.MustParseAddr("127.0.0.1"), Workers: -1}},
		{"missing address", Target{Workers: 4}},
		{"negative timeout", Target{Address: netip.MustParseAddr("::1"), Workers: 4, Timeout: -time.Second}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := newFakeProber()
			_, err := NewManager(tc.target, WithProber(prober)).Run(context.Background())
			require.ErrorIs(t, err, ErrInvalidTarget)
			for p := 0; p < len(prober.calls); p++ {
				require.Zero(t, prober.calls[p].Load(), "no port may be probed")
			}
		})
	}
}

func TestTarget_TotalPorts(t *testing.T) {
	assert.Equal(t, 65535, Target{}.TotalPorts())
}

// failingNotifier accepts limit outcomes and then reports a broken consumer.
type failingNotifier struct {
	limit int
	got   []port.Outcome
}

var errBroken = errors.New("consumer gone")

func (f *failingNotifier) Send(o port.Outcome) error {
	if len(f.got) >= f.limit {
		return errBroken
	}
	f.got = append(f.got, o)
	return nil
}

// cappedNotifier forwards limit outcomes and then fails like a vanished consumer.
type cappedNotifier struct {
	next  Notifier
	limit int
	sent  int
}

func (c *cappedNotifier) Send(o port.Outcome) error {
	if c.sent >= c.limit {
		return errBroken
	}
	c.sent++
	return c.next.Send(o)
}

func TestManager_WorkerFailureReturnsPartialResult(t *testing.T) {
	prober := newFakeProber(22, 30000)
	rep := &recordingReporter{}
	met := &countingMetrics{}

	res, err := runFake(t, 4, prober, WithReporter(rep), WithMetrics(met),
		withNotifier(func(n Notifier) Notifier { return &cappedNotifier{next: n, limit: 100} }))

	require.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorIs(t, err, errBroken)
	assert.False(t, res.Complete())
	assert.Equal(t, 400, res.Processed)
	// 22 is within the first 100 ports of the worker starting at 2; 30000 is far beyond any cap.
	assert.Equal(t, []uint16{22}, res.OpenPorts)

	require.Len(t, rep.finished, 1)
	assert.Equal(t, res, rep.finished[0])
	assert.Equal(t, int64(4), met.errs.Load())
	assert.Equal(t, int64(4), met.finished.Load())
}

func TestWorker_VisitsAssignmentInOrder(t *testing.T) {
	prober := newFakeProber(7)
	out := &failingNotifier{limit: port.MaxPort}
	w := Worker{Assignment: port.Assignment{Start: 3, Stride: 4}, Target: loopback, Prober: prober}

	n, err := w.Run(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, port.Assignment{Start: 3, Stride: 4}.Len(), n)

	require.Len(t, out.got, n)
	assert.Equal(t, port.Outcome{Port: 3, State: port.Closed}, out.got[0])
	assert.Equal(t, port.Outcome{Port: 7, State: port.Open}, out.got[1])
	assert.Equal(t, uint16(65535), out.got[n-1].Port)
}

func TestWorker_EmptyAssignment(t *testing.T) {
	prober := newFakeProber()
	out := &failingNotifier{limit: 1}
	n, err := Worker{Assignment: port.Assignment{Start: 65536, Stride: 70000}, Target: loopback, Prober: prober}.
		Run(context.Background(), out)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, out.got)
}

func TestWorker_StopsOnSendFailure(t *testing.T) {
	prober := newFakeProber()
	out := &failingNotifier{limit: 10}
	n, err := Worker{Assignment: port.Assignment{Start: 1, Stride: 1}, Target: loopback, Prober: prober}.
		Run(context.Background(), out)

	require.ErrorIs(t, err, errBroken)
	assert.Equal(t, 10, n)
	// The eleventh port was probed but its outcome could not be delivered; nothing after it ran.
	assert.Equal(t, int32(1), prober.calls[11].Load())
	assert.Zero(t, prober.calls[12].Load())
}
