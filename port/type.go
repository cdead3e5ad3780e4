package port

// MaxPort is the highest TCP port number and the size of the scanned port space.
const MaxPort = 65535

// State is the classification of a single connect attempt.
type State uint8

const (
	Closed State = iota
	Open
)

// String returns "open" or "closed".
func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Outcome is the result of probing one port. Exactly one is produced per port per scan.
type Outcome struct {
	Port  uint16
	State State
}

// ScanResult is the finished report of a scan run.
type ScanResult struct {
	OpenPorts []uint16 // ascending, unique
	Processed int
}

// Complete reports whether every port in the space was accounted for.
func (r ScanResult) Complete() bool {
	return r.Processed == MaxPort
}
