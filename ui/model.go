// Package ui renders scan progress as an interactive terminal view.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipsniffer/port"
)

const (
	padding  = 2
	maxWidth = 80
)

var (
	styleTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	styleDim    = lipgloss.NewStyle().Faint(true)
	styleAccent = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

// ProgressMsg reports how many outcomes have been aggregated so far.
type ProgressMsg struct {
	Processed int
	Total     int
}

// DoneMsg carries the final result and ends the program.
type DoneMsg struct {
	Result port.ScanResult
}

// Model is the bubbletea model of the progress view.
type Model struct {
	Target string

	bar       progress.Model
	processed int
	total     int

	done     bool
	quitting bool
	result   port.ScanResult
}

// NewModel returns a view for target with nothing probed yet.
func NewModel(target string) Model {
	return Model{
		Target: target,
		bar:    progress.New(progress.WithDefaultGradient()),
		total:  port.MaxPort,
	}
}

// Init implements tea.Model. The view is driven entirely by messages.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update applies progress, completion, resize and key messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// Only the view goes away; the scan itself keeps running.
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - padding*2 - 4
		if m.bar.Width > maxWidth {
			m.bar.Width = maxWidth
		}

	case ProgressMsg:
		m.processed = msg.Processed
		if msg.Total > 0 {
			m.total = msg.Total
		}

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.processed = msg.Result.Processed
		return m, tea.Quit
	}
	return m, nil
}

// Percent is the completed fraction of the port space, 0.0 - 1.0.
func (m Model) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.processed) / float64(m.total)
	if p > 1 {
		return 1
	}
	return p
}

// View renders the progress bar; it is empty once the scan is done or hidden.
func (m Model) View() string {
	if m.done || m.quitting {
		return ""
	}
	pad := strings.Repeat(" ", padding)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s%s %s\n\n", pad, styleTitle.Render("Sniffing"), m.Target)
	fmt.Fprintf(&b, "%s%s\n\n", pad, m.bar.ViewAs(m.Percent()))
	fmt.Fprintf(&b, "%s%s %s\n", pad,
		styleAccent.Render(fmt.Sprintf("%d/%d", m.processed, m.total)),
		styleDim.Render("ports probed · q to hide"))
	return b.String()
}
