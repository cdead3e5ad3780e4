// Package config loads and validates scan settings from YAML files and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ipsniffer/scanner"
)

// Defaults applied when neither the config file nor a flag sets a value.
const (
	DefaultWorkers = 4
	DefaultTimeout = time.Second
	DefaultFormat  = "text"
)

// ErrInvalid wraps every configuration problem detected before a scan starts.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration structure.
type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	Output  OutputConfig  `yaml:"output"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ScanConfig holds what to scan and how hard.
type ScanConfig struct {
	Target  string        `yaml:"target" validate:"required,scantarget"`
	Workers int           `yaml:"workers" validate:"min=1"`
	Timeout time.Duration `yaml:"timeout" validate:"omitempty,gt=0"` // 0 leaves connects unbounded
}

// OutputConfig controls how results are presented.
type OutputConfig struct {
	File   string `yaml:"file"`
	Format string `yaml:"format" validate:"oneof=text json"`
	Quiet  bool   `yaml:"quiet"`
	NoTUI  bool   `yaml:"no_tui"`
}

// HistoryConfig points at the sqlite database recording past runs.
type HistoryConfig struct {
	DB string `yaml:"db"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the settings used when neither a file nor a flag says otherwise.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers: DefaultWorkers,
			Timeout: DefaultTimeout,
		},
		Output: OutputConfig{Format: DefaultFormat},
	}
}

// Load reads a YAML configuration file on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// scantarget accepts what the resolver accepts: an IP literal, optionally
	// bracketed or zoned, or an RFC 1123 hostname.
	if err := v.RegisterValidation("scantarget", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if _, err := netip.ParseAddr(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")); err == nil {
			return true
		}
		return v.Var(s, "hostname_rfc1123") == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks field constraints. All violations are reported together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	if fe.Tag() == "scantarget" {
		return fmt.Sprintf("%s must be an IP address or hostname, got %q", field, fe.Value())
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be positive, got %v", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

// ScanTarget builds the core scan input once the target has been resolved.
func (c *Config) ScanTarget(addr netip.Addr) scanner.Target {
	return scanner.Target{
		Address: addr,
		Workers: c.Scan.Workers,
		Timeout: c.Scan.Timeout,
	}
}
