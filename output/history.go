package output

import (
	"fmt"
	"io"
	"time"

	"ipsniffer/store"
)

// PrintRun writes a recorded run: when and how it was taken, then its result.
func PrintRun(run *store.Run, w io.Writer) {
	fmt.Fprintf(w, "%s %s (%s)\n", styleAction.Render("Previous run of"), run.Target, run.Address)
	fmt.Fprintf(w, "  id:       %s\n", run.ID)
	fmt.Fprintf(w, "  finished: %s (took %s)\n",
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  workers:  %d, timeout %s\n", run.Workers, run.Timeout)
	PrintResult(run.Result(), w)
}
