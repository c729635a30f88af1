package model

import "unsafe"

// Graph is the transition graph: one Node per distinct context hash.
//
// The graph grows monotonically — nodes are never removed or merged — and
// exclusively owns its nodes. Callers may hold a *Node between events (the
// "previous node" whose back-edges are updated on the next event); node
// pointers stay valid for the graph's lifetime because the node store is a
// map of pointers, and Go never moves heap objects.
//
// Graph is not self-synchronising; the engine's lock covers it.
type Graph struct {
	nodes map[uint64]*Node
}

// NewGraph returns an empty graph with pre-sized buckets, since even short
// traces mint hundreds of contexts.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[uint64]*Node, 256)}
}

// GetOrCreate returns the node for the context hash, inserting a fresh one
// (no MRU, empty histogram) if absent. The second result reports whether
// the node was created by this call.
func (g *Graph) GetOrCreate(contextHash uint64) (*Node, bool) {
	if n, ok := g.nodes[contextHash]; ok {
		return n, false
	}
	n := &Node{}
	g.nodes[contextHash] = n
	return n, true
}

// Lookup returns the node for the context hash, or nil if the context has
// never been visited.
func (g *Graph) Lookup(contextHash uint64) *Node {
	return g.nodes[contextHash]
}

// All returns the graph's nodes in unspecified order, for accounting walks
// and invariant checks.
func (g *Graph) All() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Len reports the number of distinct contexts in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FootprintBytes estimates the logical memory held by the graph: per-entry
// map overhead plus every node and its successor arrays.
//
// This is an accounting walk, not an allocator measurement; it tracks the
// same quantities the report's model_memory_footprint field has always
// meant.
func (g *Graph) FootprintBytes() uint64 {
	size := uint64(unsafe.Sizeof(*g))
	for _, n := range g.nodes {
		size += 16 // key + pointer slot
		size += n.FootprintBytes()
	}
	return size
}
