// Package main implements griot-replay, the offline driver for the GrIOt
// prediction engine.
//
// The replay tool feeds a recorded I/O trace (CSV) or a synthetic workload
// (YAML scenario) through a fresh engine, writes the standard key=value
// report, and prints a human-readable summary of prediction quality.
//
// Usage:
//
//	# Replay a recorded trace per-open-file and write the report
//	griot-replay --trace app.csv --granularity per-open-file --out report.csv
//
//	# Expand and replay a synthetic scenario
//	griot-replay --scenario loop.yaml --context-size 8
//
//	# Keep serving Prometheus metrics after the replay finishes
//	griot-replay --trace app.csv --listen :9090
//
// Replay is deterministic: records carry symbolic site labels, each label
// hashes to a stable call-stack fingerprint, and the engine's tie-breaks
// are reproducible. Replaying the same input twice yields identical
// counters and an identical learned graph.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"github.com/shinysilver/griot/internal/engine"
	"github.com/shinysilver/griot/internal/metrics"
	"github.com/shinysilver/griot/internal/trace"
)

// logFatal is a variable to allow mocking log.Fatalf in tests.
var logFatal = log.Fatalf

// granularities lists the values accepted by --granularity.
var granularities = []engine.Granularity{engine.PerProcess, engine.PerOpenFile}

// replayOptions carries the parsed command-line configuration.
type replayOptions struct {
	tracePath    string
	scenarioPath string
	granularity  string
	contextSize  uint32
	depth        uint32
	outPath      string
	listenAddr   string
	debug        bool
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		logFatal("griot-replay: %v", err)
	}
}

// newRootCommand wires the cobra command. Output writers are injected so
// tests can capture the report and the summary.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:           "griot-replay",
		Short:         "Replay an I/O trace through the GrIOt prediction engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.tracePath, "trace", "", "CSV trace file to replay")
	flags.StringVar(&opts.scenarioPath, "scenario", "", "YAML scenario file to expand and replay")
	flags.StringVar(&opts.granularity, "granularity", string(engine.PerProcess), "model granularity: per-process or per-open-file")
	flags.Uint32Var(&opts.contextSize, "context-size", engine.DefaultContextSize, "context window capacity")
	flags.Uint32Var(&opts.depth, "call-stack-depth", engine.DefaultCallStackDepth, "recorded call-stack depth")
	flags.StringVar(&opts.outPath, "out", "", "report file path (default: stdout)")
	flags.StringVar(&opts.listenAddr, "listen", "", "serve Prometheus metrics on this address after the replay")
	flags.BoolVar(&opts.debug, "debug", false, "print one model line per replayed event")

	return cmd
}

func run(opts replayOptions, stdout, stderr io.Writer) error {
	records, err := loadRecords(opts)
	if err != nil {
		return err
	}

	g := engine.Granularity(opts.granularity)
	if !slices.Contains(granularities, g) {
		return fmt.Errorf("unsupported granularity %q (choose per-process or per-open-file)", opts.granularity)
	}

	feed := &trace.StackFeed{}
	e, err := engine.New(engine.Config{
		ContextSize:    opts.contextSize,
		CallStackDepth: opts.depth,
		Granularity:    g,
		Stacks:         feed,
	})
	if err != nil {
		return err
	}

	var debug io.Writer
	if opts.debug {
		debug = stderr
	}

	start := time.Now()
	trace.Replay(e, feed, records, debug)
	elapsed := time.Since(start)

	if err := writeReport(e, opts.outPath, stdout); err != nil {
		return err
	}
	printSummary(stderr, e.Snapshot(), len(records), elapsed)

	if opts.listenAddr != "" {
		return serveMetrics(e, opts.listenAddr, stderr)
	}
	return nil
}

func loadRecords(opts replayOptions) ([]trace.Record, error) {
	switch {
	case opts.tracePath != "" && opts.scenarioPath != "":
		return nil, fmt.Errorf("--trace and --scenario are mutually exclusive")

	case opts.tracePath != "":
		f, err := os.Open(opts.tracePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return trace.ReadCSV(f)

	case opts.scenarioPath != "":
		f, err := os.Open(opts.scenarioPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		s, err := trace.LoadScenario(f)
		if err != nil {
			return nil, err
		}
		return s.Records(), nil
	}
	return nil, fmt.Errorf("one of --trace or --scenario is required")
}

func writeReport(e *engine.Engine, outPath string, stdout io.Writer) error {
	if outPath == "" {
		return e.DumpReport(stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	if err := e.DumpReport(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// printSummary renders the replay outcome for humans; the machine-readable
// truth is the report.
func printSummary(w io.Writer, s engine.Snapshot, events int, elapsed time.Duration) {
	rate := func(hits uint64) string {
		if s.IOCount == 0 {
			return "n/a"
		}
		return fmt.Sprintf("%.1f%%", 100*float64(hits)/float64(s.IOCount))
	}

	fmt.Fprintf(w, "replayed %s events (%s read, %s written) in %s\n",
		humanize.Comma(int64(events)),
		humanize.IBytes(s.ReadVolume),
		humanize.IBytes(s.WriteVolume),
		elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "granularity %s, context size %d, call-stack depth %d\n",
		s.Granularity, s.ContextSize, s.CallStackDepth)
	fmt.Fprintf(w, "MRU hits: %s of %s (%s)\n",
		humanize.Comma(int64(s.MRUCorrectPredictionCount)), humanize.Comma(int64(s.IOCount)),
		rate(s.MRUCorrectPredictionCount))
	fmt.Fprintf(w, "MFU hits: %s of %s (%s)\n",
		humanize.Comma(int64(s.MFUCorrectPredictionCount)), humanize.Comma(int64(s.IOCount)),
		rate(s.MFUCorrectPredictionCount))
	fmt.Fprintf(w, "model footprint: %s\n", humanize.IBytes(s.ModelMemoryFootprint))
}

// serveMetrics exposes the engine counters on /metrics until interrupted.
func serveMetrics(e *engine.Engine, addr string, stderr io.Writer) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(e.Snapshot)); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		fmt.Fprintf(stderr, "serving metrics on %s\n", addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	return s.Close()
}
