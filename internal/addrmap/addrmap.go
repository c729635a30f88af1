// Package addrmap maintains the table of executable address ranges for the
// current process, used to relativise raw instruction pointers before they
// are hashed.
//
// Absolute instruction pointers differ from run to run (ASLR) and between
// processes that map the same library at different bases, so every IP that
// enters a call-stack hash is first translated to an offset relative to the
// start of the executable mapping that contains it. The table is the
// authoritative source for that translation.
//
// # Concurrency model
//
// The table is read-mostly: lookups happen on every traced I/O, rebuilds
// only when the process gains executable mappings (library load). A rebuild
// constructs a complete new snapshot and publishes it with a single atomic
// pointer swap; readers that obtained the previous snapshot keep seeing
// valid data for as long as they hold it. Reclamation of the old snapshot
// is the garbage collector's job, so the swap-then-free hazard of manual
// memory management cannot occur here.
package addrmap

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/prometheus/procfs"
	"golang.org/x/exp/slices"
)

// DebugLog, when non-nil, receives a diagnostic for every lookup that falls
// outside all known executable ranges. Left nil in production: a miss on
// the hot path must stay silent and cheap.
var DebugLog *log.Logger

// Range is one executable mapping, a half-open interval [Start, End).
type Range struct {
	// Start is the first address belonging to the mapping.
	Start uint64

	// End is the first address past the mapping.
	End uint64
}

// Table maps instruction pointers to module-relative offsets by consulting
// the current snapshot of executable ranges.
//
// The zero value is not ready for use; call NewTable.
type Table struct {
	// snapshot holds the current ordered range list. Swapped wholesale on
	// rebuild, never mutated in place.
	snapshot atomic.Pointer[[]Range]

	// misses counts lookups that matched no range. Diagnostic only.
	misses atomic.Uint64
}

// NewTable returns a table with an empty snapshot. Until the first Rebuild
// or Load, every lookup returns 0.
func NewTable() *Table {
	t := &Table{}
	t.snapshot.Store(&[]Range{})
	return t
}

// readProcMaps is a variable so tests can substitute a synthetic mapping
// list for the live procfs view.
var readProcMaps = func() ([]Range, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("open procfs self: %w", err)
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("read process maps: %w", err)
	}

	ranges := make([]Range, 0, len(maps))
	for _, m := range maps {
		if m.Perms == nil || !m.Perms.Execute {
			continue
		}
		ranges = append(ranges, Range{Start: uint64(m.StartAddr), End: uint64(m.EndAddr)})
	}
	return ranges, nil
}

// Rebuild replaces the snapshot with the executable mappings currently
// listed in the OS's per-process memory map.
//
// Call it once at startup and again after any dynamic library load. The
// rebuild is atomic from a reader's perspective: lookups concurrent with
// Rebuild see either the complete old list or the complete new one.
func (t *Table) Rebuild() error {
	ranges, err := readProcMaps()
	if err != nil {
		return err
	}
	t.Load(ranges)
	return nil
}

// Load installs an explicit range list as the current snapshot.
//
// Hosts that learn mappings through their own channel (an interposed
// dlopen, a test harness) use this instead of Rebuild. The input is copied
// and sorted; the caller keeps ownership of its slice.
func (t *Table) Load(ranges []Range) {
	next := make([]Range, len(ranges))
	copy(next, ranges)
	slices.SortFunc(next, func(a, b Range) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	t.snapshot.Store(&next)
}

// Offset translates an instruction pointer to its offset from the start of
// the executable mapping containing it.
//
// Returns 0 when no range contains the IP. That collapses unknown frames
// onto a single value, which is acceptable: an IP outside every executable
// mapping is either JIT-generated code we cannot relativise anyway, or a
// sign the table is stale and due for a Rebuild.
func (t *Table) Offset(ip uint64) uint64 {
	ranges := *t.snapshot.Load()

	// Find the first range starting past ip, then check its predecessor.
	i, _ := slices.BinarySearchFunc(ranges, ip, func(r Range, target uint64) int {
		switch {
		case r.Start < target:
			return -1
		case r.Start > target:
			return 1
		}
		return 0
	})
	if i < len(ranges) && ranges[i].Start == ip {
		return 0 // ip is the base of a mapping: offset zero
	}
	if i > 0 {
		if r := ranges[i-1]; r.Start <= ip && ip < r.End {
			return ip - r.Start
		}
	}

	t.misses.Add(1)
	if DebugLog != nil {
		DebugLog.Printf("[GrIOt] address %#x not found in any executable mapping", ip)
	}
	return 0
}

// Misses reports how many lookups have fallen outside every known range
// since the table was created.
func (t *Table) Misses() uint64 {
	return t.misses.Load()
}

// Snapshot returns a copy of the current range list, ordered by start
// address. Diagnostic use only.
func (t *Table) Snapshot() []Range {
	ranges := *t.snapshot.Load()
	out := make([]Range, len(ranges))
	copy(out, ranges)
	return out
}
