package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ipsniffer/port"
)

var (
	styleAction  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true) // cyan
	styleFound   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true) // green
	styleNone    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleIndex   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // blue
	styleBar     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleBarRest = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Summary is the one-line headline for a result.
func Summary(n int) string {
	switch n {
	case 0:
		return "0 open ports found."
	case 1:
		return "1 open port found:"
	default:
		return fmt.Sprintf("%d open ports found:", n)
	}
}

// PrintResult writes the styled summary followed by a numbered list of open ports.
func PrintResult(res port.ScanResult, w io.Writer) {
	header := styleFound
	if len(res.OpenPorts) == 0 {
		header = styleNone
	}
	fmt.Fprintf(w, "%s %s\n", styleAction.Render("Result:"), header.Render(Summary(len(res.OpenPorts))))
	for i, p := range res.OpenPorts {
		fmt.Fprintf(w, "%s %d\n", styleIndex.Render(fmt.Sprintf("%d.", i+1)), p)
	}
	if !res.Complete() {
		fmt.Fprintf(w, "%s only %d of %d ports were processed\n", styleNone.Render("Warning:"), res.Processed, port.MaxPort)
	}
}

// Bar renders a fixed-width progress bar for processed out of total.
func Bar(processed, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := processed * width / total
	if filled > width {
		filled = width
	}
	return styleBar.Render(strings.Repeat("█", filled)) + styleBarRest.Render(strings.Repeat("░", width-filled))
}
