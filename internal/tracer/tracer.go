// Package tracer is the host-side harness around the prediction engine: it
// reads the engine parameters from the environment, decides whether this
// node participates at all, owns the report file, and handles the fork
// protocol. The engine itself stays ignorant of all of this.
package tracer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shinysilver/griot/internal/engine"
)

// Environment variable names consumed by the host.
const (
	EnvContextSize    = "GRIOT_CONTEXT_SIZE"
	EnvCallStackDepth = "GRIOT_CALL_STACK_DEPTH"
	EnvDumpFolder     = "GRIOT_DUMP_FOLDER"
	EnvExperimentName = "GRIOT_EXPERIMENT_NAME"
	EnvIgnoreNode     = "GRIOT_IGNORE_NODE"
)

// maxPathLen mirrors the platform PATH_MAX; report paths at or beyond it
// are rejected at init time.
const maxPathLen = 4096

// ErrNodeExcluded is returned when the host refuses to trace on this node
// because its hostname matches the configured ignore prefix.
var ErrNodeExcluded = errors.New("hostname matches ignored node prefix")

// hostname and getpid are variables so tests can pin them.
var (
	hostname = os.Hostname
	getpid   = os.Getpid
)

// Config is the host configuration, normally populated from the
// environment with FromEnv.
type Config struct {
	// ContextSize and CallStackDepth seed the engine parameters.
	ContextSize    uint32
	CallStackDepth uint32

	// DumpFolder is the report output root; the working directory if
	// empty.
	DumpFolder string

	// Experiment is an optional subdirectory layered between the dump
	// folder and the granularity.
	Experiment string

	// IgnoreNodePrefix disables tracing on hosts whose hostname starts
	// with this prefix. Empty disables the exclusion.
	IgnoreNodePrefix string
}

// FromEnv builds a Config from the process environment.
//
// Zero, negative, or unparseable sizes are rejected here with a warning and
// fall back to the defaults; values above the safety cap are clamped to it.
func FromEnv() Config {
	cfg := Config{
		ContextSize:      engine.DefaultContextSize,
		CallStackDepth:   engine.DefaultCallStackDepth,
		DumpFolder:       os.Getenv(EnvDumpFolder),
		Experiment:       os.Getenv(EnvExperimentName),
		IgnoreNodePrefix: os.Getenv(EnvIgnoreNode),
	}

	if v := os.Getenv(EnvContextSize); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err != nil || n <= 0 {
			log.Printf("[GrIOt] invalid %s=%q, using default %d", EnvContextSize, v, cfg.ContextSize)
		} else {
			cfg.ContextSize = capped(n)
		}
	}
	if v := os.Getenv(EnvCallStackDepth); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err != nil || n <= 0 {
			log.Printf("[GrIOt] invalid %s=%q, using default %d", EnvCallStackDepth, v, cfg.CallStackDepth)
		} else {
			cfg.CallStackDepth = capped(n)
		}
	}
	return cfg
}

func capped(n int64) uint32 {
	if n > engine.ParamCap {
		return engine.ParamCap
	}
	return uint32(n)
}

// ReportPath returns the report file path for this process:
//
//	{dump_folder}/{experiment}/{granularity}/{hostname}_{process}_pid{pid}.csv
//
// Missing intermediate directories are created with permissions 0777
// (moderated by the process umask). An overlong path is an error; the
// caller treats it as fatal.
func (c Config) ReportPath(g engine.Granularity) (string, error) {
	folder := c.DumpFolder
	if folder == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		folder = cwd
	}

	host, err := hostname()
	if err != nil {
		return "", fmt.Errorf("resolve hostname: %w", err)
	}

	dir := filepath.Join(folder, c.Experiment, string(g))
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_pid%d.csv", host, processName(), getpid()))
	if len(path) >= maxPathLen {
		return "", fmt.Errorf("report path too long (%d bytes): %s", len(path), path[:64]+"…")
	}

	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	return path, nil
}

// processName is the basename of the invoked binary.
func processName() string {
	return filepath.Base(os.Args[0])
}

// Excluded reports whether tracing is disabled on this node by the ignore
// prefix.
func (c Config) Excluded() (bool, error) {
	if c.IgnoreNodePrefix == "" {
		return false, nil
	}
	host, err := hostname()
	if err != nil {
		return false, fmt.Errorf("resolve hostname: %w", err)
	}
	return strings.HasPrefix(host, c.IgnoreNodePrefix), nil
}

// Host ties an engine to its report file for the lifetime of a traced
// process.
type Host struct {
	cfg    Config
	engine *engine.Engine
	out    *os.File
	path   string
}

// NewHost checks the node-exclusion policy, builds the engine, and opens
// the report file. Initialisation failures (excluded node, overlong path,
// unopenable output) are returned to the caller; all of them are fatal for
// a tracing host.
func NewHost(cfg Config, ecfg engine.Config) (*Host, error) {
	if excluded, err := cfg.Excluded(); err != nil {
		return nil, err
	} else if excluded {
		return nil, ErrNodeExcluded
	}

	ecfg.ContextSize = cfg.ContextSize
	ecfg.CallStackDepth = cfg.CallStackDepth
	e, err := engine.New(ecfg)
	if err != nil {
		return nil, err
	}

	h := &Host{cfg: cfg, engine: e}
	if err := h.openReportFile(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Host) openReportFile() error {
	path, err := h.cfg.ReportPath(h.engine.Granularity())
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	h.out = out
	h.path = path
	return nil
}

// Engine exposes the wrapped engine for event delivery.
func (h *Host) Engine() *engine.Engine {
	return h.engine
}

// ReportFile returns the path the report will be written to.
func (h *Host) ReportFile() string {
	return h.path
}

// OnIO forwards one event to the engine.
func (h *Host) OnIO(ev engine.Event, debug io.Writer) {
	h.engine.OnIO(ev, debug)
}

// FollowFork is called in the child after a fork: the parent's report file
// handle is dropped, a fresh file keyed by the child pid is opened, and
// the counters reset. The inherited model carries over so the child keeps
// refining it while reporting only its own I/O.
func (h *Host) FollowFork() error {
	if h.out != nil {
		h.out.Close()
		h.out = nil
	}
	if err := h.openReportFile(); err != nil {
		return err
	}
	h.engine.ResetCounters()
	return nil
}

// Close writes the report, finalizes the engine, and releases the file.
// Called once at process end.
func (h *Host) Close() error {
	var firstErr error
	if h.out != nil {
		if err := h.engine.DumpReport(h.out); err != nil {
			firstErr = err
		}
		if err := h.out.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		h.out = nil
	}
	h.engine.Finalize()
	return firstErr
}
