package port

// Assignment is the striped subset of ports owned by one worker:
// Start, Start+Stride, Start+2*Stride, ... up to MaxPort.
type Assignment struct {
	Start  int
	Stride int
}

// Partition splits the port space across workers. Assignment i (0-based) starts at
// port i+1 and strides by workers, so together the assignments cover 1..MaxPort
// exactly once. When workers exceeds MaxPort the surplus assignments are empty.
func Partition(workers int) []Assignment {
	if workers < 1 {
		return nil
	}
	out := make([]Assignment, workers)
	for i := range out {
		out[i] = Assignment{Start: i + 1, Stride: workers}
	}
	return out
}

// Empty reports whether the assignment owns no ports at all.
func (a Assignment) Empty() bool {
	return a.Start > MaxPort || a.Start < 1 || a.Stride < 1
}

// First returns the first port of the assignment.
func (a Assignment) First() (uint16, bool) {
	if a.Empty() {
		return 0, false
	}
	return uint16(a.Start), true
}

// Next returns the port after p. It stops before advancing would pass MaxPort,
// so p is the last port once MaxPort-p < Stride.
func (a Assignment) Next(p uint16) (uint16, bool) {
	if MaxPort-int(p) < a.Stride {
		return 0, false
	}
	return p + uint16(a.Stride), true
}

// Len is the number of ports in the assignment.
func (a Assignment) Len() int {
	if a.Empty() {
		return 0
	}
	return (MaxPort-a.Start)/a.Stride + 1
}

// Ports lists the assignment's ports in visiting order.
func (a Assignment) Ports() []uint16 {
	out := make([]uint16, 0, a.Len())
	for p, ok := a.First(); ok; p, ok = a.Next(p) {
		out = append(out, p)
	}
	return out
}
