package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ipsniffer/port"
)

// Report is the persisted form of a finished scan.
type Report struct {
	Target    string   `json:"target"`
	OpenPorts []uint16 `json:"open_ports"`
	Processed int      `json:"processed"`
	Complete  bool     `json:"complete"`
}

// NewReport pairs a result with the target it was taken from.
func NewReport(target string, res port.ScanResult) Report {
	open := res.OpenPorts
	if open == nil {
		open = []uint16{}
	}
	return Report{Target: target, OpenPorts: open, Processed: res.Processed, Complete: res.Complete()}
}

// Encode renders the report as "text" or "json".
func (r Report) Encode(format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "", "text":
		fmt.Fprintf(&buf, "Target: %s\n%s\n", r.Target, Summary(len(r.OpenPorts)))
		for i, p := range r.OpenPorts {
			fmt.Fprintf(&buf, "%d. %d\n", i+1, p)
		}
		if !r.Complete {
			fmt.Fprintf(&buf, "incomplete: %d of %d ports processed\n", r.Processed, port.MaxPort)
		}
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("encode json report: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
	return buf.Bytes(), nil
}

// WriteReport encodes the report and writes it to path atomically.
func WriteReport(path, format string, r Report) error {
	data, err := r.Encode(format)
	if err != nil {
		return err
	}
	return WriteAtomic(path, data)
}

// WriteAtomic replaces path with data via a synced temp file in the same
// directory and a rename. On failure any previous file at path is untouched.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".ipsniffer-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp -> final: %w", err)
	}
	committed = true
	return nil
}
