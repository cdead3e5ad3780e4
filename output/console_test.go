package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"ipsniffer/port"
)

func init() {
	// Plain output so assertions do not depend on the terminal running the tests.
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0 open ports found.", Summary(0))
	assert.Equal(t, "1 open port found:", Summary(1))
	assert.Equal(t, "3 open ports found:", Summary(3))
}

func TestPrintResult(t *testing.T) {
	cases := map[string]struct {
		res  port.ScanResult
		want string
	}{
		"none": {full(), "Result: 0 open ports found.\n"},
		"one":  {full(22), "Result: 1 open port found:\n1. 22\n"},
		"many": {full(80, 443, 8080), "Result: 3 open ports found:\n1. 80\n2. 443\n3. 8080\n"},
		"partial": {
			port.ScanResult{OpenPorts: []uint16{}, Processed: 5},
			"Result: 0 open ports found.\nWarning: only 5 of 65535 ports were processed\n",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintResult(tc.res, &buf)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 10), Bar(0, 100, 10))
	assert.Equal(t, strings.Repeat("█", 5)+strings.Repeat("░", 5), Bar(50, 100, 10))
	assert.Equal(t, strings.Repeat("█", 10), Bar(200, 100, 10))
	assert.Empty(t, Bar(1, 0, 10))
}

func TestTextReporter(t *testing.T) {
	var status, out bytes.Buffer
	r := &TextReporter{Status: &status, Out: &out}

	r.Progress(port.MaxPort/2, port.MaxPort)
	r.Finish(full(443))

	assert.True(t, strings.HasPrefix(status.String(), "\rSniffing "), status.String())
	assert.Contains(t, status.String(), " 49%")
	assert.True(t, strings.HasSuffix(status.String(), "\n"))
	assert.Equal(t, "Result: 1 open port found:\n1. 443\n", out.String())
}

func TestTextReporter_NoStatus(t *testing.T) {
	var out bytes.Buffer
	r := &TextReporter{Out: &out}
	r.Progress(10, 100)
	r.Finish(full())
	assert.Equal(t, "Result: 0 open ports found.\n", out.String())
}
