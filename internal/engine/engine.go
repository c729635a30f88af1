package engine

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shinysilver/griot/internal/addrmap"
	"github.com/shinysilver/griot/internal/backtrace"
)

// now is a variable to allow tests to substitute a deterministic clock.
var now = time.Now

// Defaults and safety cap for the two model parameters.
const (
	DefaultContextSize    = 16
	DefaultCallStackDepth = 16

	// ParamCap bounds both parameters; values above it are clamped.
	ParamCap = 1024
)

// OpType identifies the kind of intercepted I/O operation.
type OpType uint8

const (
	OpRead OpType = iota
	OpWrite
	OpOpen
	OpClose
)

// String returns the lower-case operation name used in traces and logs.
func (o OpType) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpOpen:
		return "open"
	case OpClose:
		return "close"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// ParseOpType maps an operation name back to its OpType.
func ParseOpType(s string) (OpType, error) {
	switch s {
	case "read":
		return OpRead, nil
	case "write":
		return OpWrite, nil
	case "open":
		return OpOpen, nil
	case "close":
		return OpClose, nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Granularity selects where the engine keeps its model state.
type Granularity string

const (
	// PerProcess keeps one window and one graph for the whole process.
	PerProcess Granularity = "per-process"

	// PerOpenFile gives every live file descriptor a private window and
	// graph, discarded on close.
	PerOpenFile Granularity = "per-open-file"
)

// ErrUnknownGranularity is returned by New for a granularity outside the
// supported set.
var ErrUnknownGranularity = errors.New("unknown granularity")

// Event is one intercepted I/O operation as delivered by the tracer host.
type Event struct {
	// Timestamp is the host's wall-clock stamp in milliseconds. The engine
	// records it in debug output only; ordering comes from delivery order.
	Timestamp uint64

	// ThreadID is the host-assigned id of the thread that performed the
	// operation.
	ThreadID int32

	// FD is the file descriptor the operation targeted. Ignored by the
	// per-process granularity.
	FD int

	// Offset is the byte offset of the operation within the file.
	Offset int64

	// Length is the operation size in bytes; zero for open and close.
	Length uint64

	// Duration is the time the operation took, in nanoseconds.
	Duration uint64

	// Op is the operation kind.
	Op OpType
}

// StackHasher produces the 64-bit fingerprint of the current call stack.
//
// The live implementation is backtrace.Hasher; tests and the replay driver
// substitute scripted sources.
type StackHasher interface {
	Hash() uint64
}

// Config carries the engine construction parameters.
type Config struct {
	// ContextSize is the capacity C of the context window. Zero selects
	// the default (16); values above ParamCap are clamped.
	ContextSize uint32

	// CallStackDepth is the unwind depth D. Zero selects the default (16);
	// values above ParamCap are clamped.
	CallStackDepth uint32

	// Granularity selects per-process or per-open-file state. Empty
	// selects per-process.
	Granularity Granularity

	// Maps is the executable-mapping table used to relativise instruction
	// pointers. When both Maps and Stacks are nil, a table is created and
	// built from the live process maps; with Stacks set, Maps is kept as
	// given and may stay nil.
	Maps *addrmap.Table

	// Stacks overrides the call-stack hash source. When nil, a live
	// backtrace hasher over Maps is used.
	Stacks StackHasher
}

// Engine is the prediction engine. Create one with New and drive it with
// OnIO; it is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	contextSize    uint32
	callStackDepth uint32
	granularity    Granularity

	maps   *addrmap.Table
	stacks StackHasher

	// Exactly one of the two is populated, per granularity.
	process *state
	files   map[int]*state

	res results
}

// New validates the configuration and returns a ready engine.
//
// Parameter handling follows the host contract: zero means default,
// anything above the safety cap is clamped. Rejection of negative values
// happens upstream, where the environment is parsed.
func New(cfg Config) (*Engine, error) {
	contextSize := clampParam(cfg.ContextSize, DefaultContextSize)
	depth := clampParam(cfg.CallStackDepth, DefaultCallStackDepth)

	granularity := cfg.Granularity
	if granularity == "" {
		granularity = PerProcess
	}

	maps := cfg.Maps
	stacks := cfg.Stacks
	if stacks == nil {
		if maps == nil {
			maps = addrmap.NewTable()
			if err := maps.Rebuild(); err != nil {
				return nil, fmt.Errorf("build executable mapping table: %w", err)
			}
		}
		stacks = backtrace.NewHasher(depth, maps)
	}

	e := &Engine{
		contextSize:    contextSize,
		callStackDepth: depth,
		granularity:    granularity,
		maps:           maps,
		stacks:         stacks,
	}

	switch granularity {
	case PerProcess:
		e.process = newState(contextSize)
	case PerOpenFile:
		e.files = make(map[int]*state)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownGranularity, granularity)
	}

	e.res.reset(now())
	return e, nil
}

func clampParam(v uint32, def uint32) uint32 {
	if v == 0 {
		return def
	}
	if v > ParamCap {
		return ParamCap
	}
	return v
}

// Granularity reports the granularity the engine was built with.
func (e *Engine) Granularity() Granularity {
	return e.granularity
}

// Maps returns the executable-mapping table so the host can trigger a
// rebuild after a dynamic library load.
func (e *Engine) Maps() *addrmap.Table {
	return e.maps
}

// OnIO processes one intercepted event. This is the hot path.
//
// The steps run in a fixed order: synthetic open, stack capture, traffic
// counters, state resolution, context advance with prediction validation
// and back-edge update, forward prediction, bookkeeping, synthetic close.
// A close event participates fully in the context and graph before its
// per-fd state is dropped.
//
// When debug is non-nil, one line per event is written to it describing the
// event's call stack, context, and the two fresh predictions.
func (e *Engine) OnIO(ev Event, debug io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.files != nil && ev.Op == OpOpen {
		e.openLocked(ev.FD)
	}

	// Stack capture, timed separately from the model work.
	t0 := now()
	callStack := e.stacks.Hash()
	t1 := now()
	e.res.stackCount++
	e.res.stackTime += uint64(t1.Sub(t0).Nanoseconds())

	// Traffic counters cover every event kind, including open and close.
	e.res.ioCount++
	e.res.ioTime += ev.Duration
	e.res.totalVolume += ev.Length
	switch ev.Op {
	case OpRead:
		e.res.readVolume += ev.Length
	case OpWrite:
		e.res.writeVolume += ev.Length
	}

	s := e.stateForLocked(ev.FD)
	out := s.advance(callStack, e.files != nil)

	if out.mruHit {
		e.res.mruCount++
		e.res.mruVolume += ev.Length
		e.res.mruIOTime += ev.Duration
	}
	if out.mfuHit {
		e.res.mfuCount++
		e.res.mfuVolume += ev.Length
		e.res.mfuIOTime += ev.Duration
	}

	if debug != nil {
		fmt.Fprintf(debug, "timestamp=%d, io_call_stack=%d, io_context=%d, mru_next_context=%d, mfu_next_context=%d\n",
			ev.Timestamp, callStack, out.contextHash, s.mruPrediction, s.mfuPrediction)
	}

	e.res.predictionTime += uint64(now().Sub(t1).Nanoseconds())

	if e.files != nil && ev.Op == OpClose {
		e.closeLocked(ev.FD)
	}
}

// stateForLocked resolves the model state for an event. In the
// per-open-file granularity an unknown fd is treated as an implicit open:
// the descriptor was inherited across a fork or duplicated, and the engine
// simply starts tracking it.
func (e *Engine) stateForLocked(fd int) *state {
	if e.files == nil {
		return e.process
	}
	s, ok := e.files[fd]
	if !ok {
		s = e.openLocked(fd)
	}
	return s
}

func (e *Engine) openLocked(fd int) *state {
	s := newState(e.contextSize)
	e.files[fd] = s
	return s
}

// closeLocked drops the per-fd state. A close for an fd we never tracked is
// silently ignored: the descriptor predates the engine.
func (e *Engine) closeLocked(fd int) {
	if _, ok := e.files[fd]; !ok {
		return
	}
	// The dying graph still counts toward the peak footprint.
	e.res.observeFootprint(e.footprintLocked())
	delete(e.files, fd)
}

// ResetCounters zeroes every accumulated counter and restarts the app
// clock. Called in the child after a fork; the learned model carries over
// untouched so the child keeps refining it while reporting only its own
// I/O.
func (e *Engine) ResetCounters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.res.reset(now())
}

// Snapshot returns a copy of the counters together with the engine
// parameters, suitable for reporting or metric export.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.res.observeFootprint(e.footprintLocked())
	return e.res.snapshot(e.contextSize, e.callStackDepth, e.granularity, now())
}

// DumpReport serialises the counters as the flat key=value report.
func (e *Engine) DumpReport(w io.Writer) error {
	return writeReport(w, e.Snapshot())
}

// Finalize records the terminal memory footprint and releases the model.
// The engine must not be used afterwards.
func (e *Engine) Finalize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.res.observeFootprint(e.footprintLocked())
	e.process = nil
	e.files = nil
}

// footprintLocked estimates the logical bytes held by the live model state.
func (e *Engine) footprintLocked() uint64 {
	var size uint64
	if e.process != nil {
		size += e.process.footprintBytes()
	}
	for _, s := range e.files {
		size += 16 // fd map entry overhead
		size += s.footprintBytes()
	}
	return size
}
