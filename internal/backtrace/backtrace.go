// Package backtrace captures the current call stack and reduces it to a
// single 64-bit fingerprint.
//
// The fingerprint is the MurmurHash64A of the stack's instruction pointers
// after each has been relativised through the executable-mapping table, so
// the same logical call path hashes identically across runs and across
// processes regardless of load addresses.
//
// Capture runs on the hot path of every traced I/O. The Hasher therefore
// preallocates its working buffers at construction and performs no heap
// allocation per call. A Hasher is not safe for concurrent use; the engine
// serialises calls under its lock.
package backtrace

import (
	"runtime"

	"github.com/shinysilver/griot/internal/addrmap"
	"github.com/shinysilver/griot/internal/murmur"
)

// Hasher walks the current goroutine's stack up to a fixed depth and hashes
// the module-relative instruction pointers.
type Hasher struct {
	table *addrmap.Table

	// Reused across calls; sized to the configured depth.
	pcs     []uintptr
	offsets []uint64
}

// NewHasher returns a hasher capturing up to depth frames, relativising
// them through table.
func NewHasher(depth uint32, table *addrmap.Table) *Hasher {
	return &Hasher{
		table:   table,
		pcs:     make([]uintptr, depth),
		offsets: make([]uint64, depth),
	}
}

// Hash captures the stack of the calling goroutine, starting at the caller
// of Hash, and returns the fingerprint of up to depth frames.
//
// If the stack is shorter than the configured depth, the fingerprint covers
// the frames that exist; the hash input length encodes the count, so a
// short stack cannot collide with a zero-padded deep one.
func (h *Hasher) Hash() uint64 {
	// Skip runtime.Callers and Hash itself: both would contribute a
	// constant frame to every fingerprint.
	n := runtime.Callers(2, h.pcs)
	for i := 0; i < n; i++ {
		h.offsets[i] = h.table.Offset(uint64(h.pcs[i]))
	}
	return murmur.Sum64Words(h.offsets[:n], murmur.Seed)
}

// Depth reports the configured maximum number of frames.
func (h *Hasher) Depth() int {
	return len(h.pcs)
}
