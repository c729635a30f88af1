// Package engine implements the I/O call-stack prediction engine: the
// single entry point a tracer host drives with every intercepted read,
// write, open, and close, and the on-line learning protocol behind it.
//
// # Overview
//
// For each delivered event the engine derives a context fingerprint from
// the most recent call stacks, looks the context up in a learned transition
// graph, emits two predictions for the next context — MRU (most recently
// observed successor) and MFU (most frequently observed successor) —
// validates the predictions it made on the previous event, and folds the
// new observation back into the graph.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                   Engine                     │
//	├──────────────────────────────────────────────┤
//	│  OnIO: capture → stats → context → validate  │
//	│        → back-edge → predict → bookkeeping   │
//	├──────────────────────────────────────────────┤
//	│  per-process:     one window + one graph     │
//	│  per-open-file:   fd → {window, graph, …}    │
//	├──────────────────────────────────────────────┤
//	│  counters → key=value report                 │
//	└──────────────────────────────────────────────┘
//
// # Granularities
//
// The engine runs at one of two granularities, chosen at construction:
//
//   - per-process: a single context window and transition graph for the
//     whole process.
//   - per-open-file: every live file descriptor owns a private window and
//     graph, created on open (or implicitly on first use) and discarded on
//     close.
//
// Both granularities share every other component; only the location of the
// model state differs.
//
// # Concurrency model
//
// One engine-wide mutex guards OnIO, ResetCounters, DumpReport, and
// Finalize. The host may call from many threads; the engine serialises them
// at the boundary and processes events in lock-acquisition order. No
// operation suspends or performs blocking I/O except the report dump.
//
// # Memory
//
// Graphs grow monotonically: the hot path allocates only when a new context
// or a new successor appears, and nothing is evicted. The report's
// model_memory_footprint field is a logical-size estimate maintained by
// walking the live structures at close, snapshot (and so dump), and
// finalize time. A counter reset zeroes the recorded peak.
package engine
