package engine

import (
	"unsafe"

	"github.com/shinysilver/griot/internal/model"
)

// state is the model state of one prediction unit: the whole process in the
// per-process granularity, a single live fd in the per-open-file one.
//
// Each unit owns its context window and graph outright. previousNode is a
// borrow into the unit's own graph — the node visited by the last event,
// whose outbound edges the next event reinforces. The borrow stays valid
// because graphs only ever grow and nodes never move.
type state struct {
	window *model.Window
	graph  *model.Graph

	// Predictions emitted on the previous event, validated against the
	// context the current event produces. Zero means cold.
	mruPrediction uint64
	mfuPrediction uint64

	// previousCallStack backs the cold-prediction fallback: a repeated
	// I/O site counts as a hit while the model has nothing better.
	previousCallStack uint64

	previousNode *model.Node
}

func newState(contextSize uint32) *state {
	return &state{
		window: model.NewWindow(contextSize),
		graph:  model.NewGraph(),
	}
}

// outcome is what one advance step reports back to the counter layer.
type outcome struct {
	contextHash uint64
	mruHit      bool
	mfuHit      bool
}

// advance runs the per-event learning protocol for this unit:
//
//  1. push the call-stack hash and derive the new context hash;
//  2. validate the previous MRU and MFU predictions against it — a cold
//     (zero) prediction falls back to "same I/O site repeated";
//  3. reinforce the previous node's edge toward the new context;
//  4. resolve the new context's node, seeding a self-loop MRU on freshly
//     created nodes when seedSelfLoop is set (per-open-file semantics);
//  5. emit and store the next predictions.
//
// When a context repeats, MRU and MFU may both hit on the same event; the
// two counters are independent.
func (s *state) advance(callStack uint64, seedSelfLoop bool) outcome {
	s.window.Push(callStack)
	contextHash := s.window.Fingerprint()

	out := outcome{contextHash: contextHash}
	out.mruHit = s.mruPrediction == contextHash ||
		(s.mruPrediction == 0 && s.previousCallStack == callStack)
	out.mfuHit = s.mfuPrediction == contextHash ||
		(s.mfuPrediction == 0 && s.previousCallStack == callStack)

	if s.previousNode != nil {
		s.previousNode.RecordTransition(contextHash)
	}

	node, created := s.graph.GetOrCreate(contextHash)
	if created && seedSelfLoop {
		node.SeedMRU(contextHash)
	}
	s.mruPrediction, s.mfuPrediction = node.Predict()

	s.previousCallStack = callStack
	s.previousNode = node
	return out
}

func (s *state) footprintBytes() uint64 {
	return uint64(unsafe.Sizeof(*s)) + s.window.FootprintBytes() + s.graph.FootprintBytes()
}
