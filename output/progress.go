package output

import (
	"fmt"
	"io"

	"ipsniffer/port"
)

const barWidth = 40

// TextReporter redraws a single status line as the scan advances and prints the
// result when it is done. A nil Status writer suppresses the status line.
type TextReporter struct {
	Status io.Writer
	Out    io.Writer
}

// Progress redraws the status line; it is a no-op without Status.
func (r *TextReporter) Progress(processed, total int) {
	if r.Status == nil {
		return
	}
	pct := 0
	if total > 0 {
		pct = processed * 100 / total
	}
	fmt.Fprintf(r.Status, "\r%s %s %3d%%", styleAction.Render("Sniffing"), Bar(processed, total, barWidth), pct)
}

// Finish ends the status line and prints the result to Out.
func (r *TextReporter) Finish(res port.ScanResult) {
	if r.Status != nil {
		fmt.Fprintln(r.Status)
	}
	PrintResult(res, r.Out)
}
