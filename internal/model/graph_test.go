package model

import "testing"

func TestNodeRecordTransition(t *testing.T) {
	t.Run("mru tracks the latest successor", func(t *testing.T) {
		n := &Node{}
		n.RecordTransition(100)
		n.RecordTransition(200)
		if got := n.MRU(); got != 200 {
			t.Errorf("MRU = %d, want 200", got)
		}
	})

	t.Run("repeat successor increments weight in place", func(t *testing.T) {
		n := &Node{}
		n.RecordTransition(100)
		n.RecordTransition(200)
		n.RecordTransition(100)
		if got := n.Fanout(); got != 2 {
			t.Errorf("Fanout = %d, want 2", got)
		}
		if got := n.Weight(100); got != 2 {
			t.Errorf("Weight(100) = %d, want 2", got)
		}
		if got := n.Weight(200); got != 1 {
			t.Errorf("Weight(200) = %d, want 1", got)
		}
	})

	t.Run("weights sum to transitions taken", func(t *testing.T) {
		n := &Node{}
		seq := []uint64{5, 6, 5, 5, 7, 6, 5}
		for _, s := range seq {
			n.RecordTransition(s)
		}
		if got, want := n.TotalWeight(), uint64(len(seq)); got != want {
			t.Errorf("TotalWeight = %d, want %d", got, want)
		}
	})
}

func TestNodePredict(t *testing.T) {
	t.Run("empty node predicts cold zero", func(t *testing.T) {
		n := &Node{}
		mru, mfu := n.Predict()
		if mru != 0 || mfu != 0 {
			t.Errorf("Predict on empty node = (%d, %d), want (0, 0)", mru, mfu)
		}
	})

	t.Run("seeded node self-predicts before any transition", func(t *testing.T) {
		n := &Node{}
		n.SeedMRU(42)
		mru, mfu := n.Predict()
		if mru != 42 || mfu != 42 {
			t.Errorf("Predict on seeded node = (%d, %d), want (42, 42)", mru, mfu)
		}
	})

	t.Run("mfu follows strictly greatest weight", func(t *testing.T) {
		n := &Node{}
		n.RecordTransition(1)
		n.RecordTransition(2)
		n.RecordTransition(2)
		mru, mfu := n.Predict()
		if mru != 2 {
			t.Errorf("MRU = %d, want 2", mru)
		}
		if mfu != 2 {
			t.Errorf("MFU = %d, want 2", mfu)
		}

		// Pull 1 ahead; MRU keeps the last observation, MFU the heaviest.
		n.RecordTransition(1)
		n.RecordTransition(1)
		mru, mfu = n.Predict()
		if mru != 1 {
			t.Errorf("MRU = %d, want 1", mru)
		}
		if mfu != 1 {
			t.Errorf("MFU = %d, want 1", mfu)
		}
	})
}

// TestNodePredictTieBreak pins the reproducibility contract: among equal
// weights, the successor observed first wins, in either insertion order.
func TestNodePredictTieBreak(t *testing.T) {
	const x, y = 111, 222

	build := func(first, second uint64) *Node {
		n := &Node{}
		for i := 0; i < 5; i++ {
			n.RecordTransition(first)
			n.RecordTransition(second)
		}
		return n
	}

	if _, mfu := build(x, y).Predict(); mfu != x {
		t.Errorf("tie with insertion order (x, y): MFU = %d, want %d", mfu, x)
	}
	if _, mfu := build(y, x).Predict(); mfu != y {
		t.Errorf("tie with insertion order (y, x): MFU = %d, want %d", mfu, y)
	}
}

func TestGraphGetOrCreate(t *testing.T) {
	g := NewGraph()

	n1, created := g.GetOrCreate(123)
	if !created {
		t.Error("first GetOrCreate should create")
	}
	if n1.MRU() != 0 || n1.Fanout() != 0 {
		t.Error("fresh node should have no MRU and no successors")
	}

	n2, created := g.GetOrCreate(123)
	if created {
		t.Error("second GetOrCreate should find the existing node")
	}
	if n1 != n2 {
		t.Error("GetOrCreate returned a different node for the same context")
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}

	if g.Lookup(999) != nil {
		t.Error("Lookup of unknown context should return nil")
	}
}

func TestGraphFootprintGrows(t *testing.T) {
	g := NewGraph()
	base := g.FootprintBytes()

	n, _ := g.GetOrCreate(1)
	afterNode := g.FootprintBytes()
	if afterNode <= base {
		t.Error("footprint should grow when a node is added")
	}

	n.RecordTransition(2)
	n.RecordTransition(3)
	if g.FootprintBytes() <= afterNode {
		t.Error("footprint should grow with the successor arrays")
	}
}
