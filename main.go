package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/automaxprocs/maxprocs"

	"ipsniffer/config"
	"ipsniffer/metrics"
	"ipsniffer/netutil"
	"ipsniffer/output"
	"ipsniffer/scanner"
	"ipsniffer/store"
	"ipsniffer/store/sqlite"
	"ipsniffer/ui"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgFile := flag.String("c", "", "YAML config file")
	workers := flag.Int("w", config.DefaultWorkers, "number of concurrent scan workers")
	timeout := flag.Duration("t", config.DefaultTimeout, "per-port connect timeout (0 = platform default)")
	fileOut := flag.String("f", "", "write the report to this file (atomic overwrite)")
	format := flag.String("format", config.DefaultFormat, "report file format: text or json")
	dbPath := flag.String("db", "", "record the run in this sqlite database")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address while scanning")
	noTUI := flag.Bool("no-tui", false, "plain progress line instead of the interactive view")
	quiet := flag.Bool("q", false, "no progress output, only the result")
	verbose := flag.Bool("v", false, "verbose logging")
	last := flag.Bool("last", false, "print the most recent recorded run for the target instead of scanning")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <ip-address|hostname>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn("failed to set GOMAXPROCS", "error", err)
	}

	cfg := config.Default()
	if *cfgFile != "" {
		var err error
		if cfg, err = config.Load(*cfgFile); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitUsage
		}
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "w":
			cfg.Scan.Workers = *workers
		case "t":
			cfg.Scan.Timeout = *timeout
		case "f":
			cfg.Output.File = *fileOut
		case "format":
			cfg.Output.Format = *format
		case "db":
			cfg.History.DB = *dbPath
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "no-tui":
			cfg.Output.NoTUI = *noTUI
		case "q":
			cfg.Output.Quiet = *quiet
		}
	})
	if flag.NArg() > 0 {
		cfg.Scan.Target = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "error: exactly one target expected")
		flag.Usage()
		return exitUsage
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		return exitUsage
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *last {
		return showLast(ctx, cfg)
	}

	addr, err := netutil.ResolveTarget(ctx, cfg.Scan.Target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUsage
	}
	target := cfg.ScanTarget(addr)
	log.Debug("target resolved", "target", cfg.Scan.Target, "address", addr)

	var repo store.Repository
	if cfg.History.DB != "" {
		if repo, err = sqlite.New(cfg.History.DB); err != nil {
			fmt.Fprintf(os.Stderr, "error: open history: %v\n", err)
			return exitFailure
		}
		defer repo.Close()
	}

	opts := []scanner.Option{scanner.WithLogger(log)}
	if cfg.Metrics.Addr != "" {
		m := metrics.New()
		opts = append(opts, scanner.WithMetrics(m))
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error("metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	var reporter scanner.Reporter
	switch {
	case cfg.Output.Quiet:
		reporter = &output.TextReporter{Out: os.Stdout}
	case cfg.Output.NoTUI || !isatty.IsTerminal(os.Stdout.Fd()):
		reporter = &output.TextReporter{Status: os.Stderr, Out: os.Stdout}
	default:
		reporter = ui.Start(addr.String(), os.Stdout)
	}
	opts = append(opts, scanner.WithReporter(reporter))

	started := time.Now()
	res, scanErr := scanner.NewManager(target, opts...).Run(ctx)
	if errors.Is(scanErr, scanner.ErrInvalidTarget) {
		fmt.Fprintf(os.Stderr, "error: %v\n", scanErr)
		return exitUsage
	}
	finished := time.Now()

	code := exitOK
	if scanErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", scanErr)
		code = exitFailure
	}

	if cfg.Output.File != "" {
		report := output.NewReport(cfg.Scan.Target, res)
		if err := output.WriteReport(cfg.Output.File, cfg.Output.Format, report); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output file: %v\n", err)
			code = exitFailure
		}
	}

	if repo != nil {
		rec := store.NewRun(cfg.Scan.Target, target, started, finished, res)
		if err := repo.SaveRun(ctx, rec); err != nil {
			fmt.Fprintf(os.Stderr, "failed to record run: %v\n", err)
			code = exitFailure
		} else {
			log.Info("run recorded", "id", rec.ID, "db", cfg.History.DB)
		}
	}
	return code
}

// showLast prints the previous run recorded for the configured target.
func showLast(ctx context.Context, cfg *config.Config) int {
	if cfg.History.DB == "" {
		fmt.Fprintln(os.Stderr, "error: -last needs a history database (-db or history.db)")
		return exitUsage
	}
	repo, err := sqlite.New(cfg.History.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open history: %v\n", err)
		return exitFailure
	}
	defer repo.Close()

	rec, err := repo.Latest(ctx, cfg.Scan.Target)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(os.Stdout, "No recorded run for %s.\n", cfg.Scan.Target)
		return exitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitFailure
	}
	output.PrintRun(rec, os.Stdout)
	return exitOK
}
