// Package model holds the learned state of the prediction engine: the
// context window that fingerprints recent history, the per-context
// prediction nodes, and the transition graph that maps context fingerprints
// to nodes.
//
// The package is deliberately free of locking and of I/O. Callers (the
// engine) own synchronisation; model state is plain data.
package model

import (
	"unsafe"

	"github.com/shinysilver/griot/internal/murmur"
)

// Window is a fixed-capacity ring of the most recent call-stack hashes.
//
// Its fingerprint — the context hash — is the MurmurHash64A of the window
// contents in chronological order, so two histories that end with the same
// sequence of hashes produce the same context regardless of where the write
// cursor happens to sit.
//
// A fresh window is all zeros; the first C events hash against the
// zero-padded tail. That is intentional: the padded contexts are themselves
// stable, distinct values that the graph learns like any other.
type Window struct {
	// slots is the physical ring; index is the next write position.
	slots []uint64
	index int

	// scratch holds the chronological view during Fingerprint. Reused to
	// keep the hot path allocation-free.
	scratch []uint64
}

// NewWindow returns a zeroed window of the given capacity.
func NewWindow(size uint32) *Window {
	return &Window{
		slots:   make([]uint64, size),
		scratch: make([]uint64, size),
	}
}

// Push records a call-stack hash, overwriting the oldest slot.
func (w *Window) Push(callStackHash uint64) {
	w.slots[w.index] = callStackHash
	w.index++
	if w.index >= len(w.slots) {
		w.index = 0
	}
}

// Fingerprint returns the context hash of the current window.
//
// The ring is flattened oldest-first before hashing: slots from the write
// cursor to the end precede slots from the start up to the cursor.
func (w *Window) Fingerprint() uint64 {
	n := copy(w.scratch, w.slots[w.index:])
	copy(w.scratch[n:], w.slots[:w.index])
	return murmur.Sum64Words(w.scratch, murmur.Seed)
}

// Size reports the window capacity.
func (w *Window) Size() int {
	return len(w.slots)
}

// FootprintBytes estimates the logical memory held by the window: the
// struct itself plus its two backing arrays.
func (w *Window) FootprintBytes() uint64 {
	return uint64(unsafe.Sizeof(*w)) + 16*uint64(len(w.slots))
}
