package ui

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"ipsniffer/output"
	"ipsniffer/port"
)

// Reporter drives a bubbletea program from scan progress. The result is printed
// to Out once the program has exited.
type Reporter struct {
	Out io.Writer
	Log *slog.Logger // nil means slog.Default()

	program *tea.Program
	exited  chan error
}

// Start launches the progress view for target.
func Start(target string, out io.Writer, opts ...tea.ProgramOption) *Reporter {
	r := &Reporter{
		Out:     out,
		program: tea.NewProgram(NewModel(target), opts...),
		exited:  make(chan error, 1),
	}
	go func() {
		_, err := r.program.Run()
		r.exited <- err
	}()
	return r
}

// Progress forwards the aggregated count to the view.
func (r *Reporter) Progress(processed, total int) {
	r.program.Send(ProgressMsg{Processed: processed, Total: total})
}

// Finish closes the view, waits for the terminal to be restored and prints the result.
func (r *Reporter) Finish(res port.ScanResult) {
	r.program.Send(DoneMsg{Result: res})
	if err := <-r.exited; err != nil {
		log := r.Log
		if log == nil {
			log = slog.Default()
		}
		log.Error("progress view failed", "error", err)
	}
	output.PrintResult(res, r.Out)
}
