package model

import "unsafe"

// Node is the prediction state for one distinct context hash.
//
// It carries two independent predictors over the contexts observed to
// follow this one:
//
//   - MRU: the successor seen most recently. A single value, overwritten on
//     every outbound transition. Zero means no successor observed yet.
//   - MFU: the successor seen most often, derived from a histogram kept as
//     two parallel arrays appended in first-observation order.
//
// The parallel-array layout is deliberate. Successor fan-out is empirically
// small for I/O call-stack graphs, and a linear scan over two dense arrays
// beats a map at these sizes; keep the layout until fan-out is measured to
// exceed it.
type Node struct {
	// mru is the context hash observed immediately after the last visit to
	// this node, or 0 before any outbound transition.
	mru uint64

	// succHashes and succWeights are parallel: succWeights[i] counts how
	// often succHashes[i] followed this node. Each successor appears
	// exactly once, in first-observation order.
	succHashes  []uint64
	succWeights []uint64
}

// RecordTransition registers that next followed this node: the MRU slot is
// overwritten and the MFU histogram reinforced (or extended on first
// observation).
func (n *Node) RecordTransition(next uint64) {
	n.mru = next

	for i, h := range n.succHashes {
		if h == next {
			n.succWeights[i]++
			return
		}
	}
	n.succHashes = append(n.succHashes, next)
	n.succWeights = append(n.succWeights, 1)
}

// Predict returns the node's two predictions for the next context.
//
// MRU is the raw most-recent successor. MFU is the successor with the
// strictly greatest weight; when several share the top weight, the earliest
// first observation wins — the scan keeps the first maximum it meets, which
// makes replays reproducible. A node with no histogram yet falls back to
// its MRU value for both.
func (n *Node) Predict() (mru, mfu uint64) {
	mru = n.mru

	if len(n.succHashes) == 0 {
		return mru, mru
	}
	var best, bestWeight uint64
	for i, w := range n.succWeights {
		if w > bestWeight {
			bestWeight = w
			best = n.succHashes[i]
		}
	}
	return mru, best
}

// SeedMRU installs an initial MRU successor on a node that has observed no
// transition yet. The per-open-file engine seeds fresh nodes with their own
// context hash so the first prediction out of a new node is a self-loop
// rather than the cold value 0.
func (n *Node) SeedMRU(h uint64) {
	n.mru = h
}

// MRU returns the most recent successor, 0 if none was observed.
func (n *Node) MRU() uint64 {
	return n.mru
}

// Fanout reports the number of distinct successors observed.
func (n *Node) Fanout() int {
	return len(n.succHashes)
}

// Weight returns how often h has followed this node, 0 if never.
func (n *Node) Weight(h uint64) uint64 {
	for i, sh := range n.succHashes {
		if sh == h {
			return n.succWeights[i]
		}
	}
	return 0
}

// TotalWeight returns the number of outbound transitions ever taken from
// this node. It always equals the sum of the histogram weights.
func (n *Node) TotalWeight() uint64 {
	var sum uint64
	for _, w := range n.succWeights {
		sum += w
	}
	return sum
}

// FootprintBytes estimates the logical memory held by the node and its
// successor arrays.
func (n *Node) FootprintBytes() uint64 {
	return uint64(unsafe.Sizeof(*n)) + 16*uint64(len(n.succHashes))
}
