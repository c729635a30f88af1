package addrmap

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetLookup(t *testing.T) {
	table := NewTable()
	table.Load([]Range{
		{Start: 0x7f0000400000, End: 0x7f0000500000},
		{Start: 0x400000, End: 0x480000},
		{Start: 0x7f0000600000, End: 0x7f0000601000},
	})

	t.Run("ip inside a range", func(t *testing.T) {
		assert.Equal(t, uint64(0x1234), table.Offset(0x401234))
		assert.Equal(t, uint64(0x42), table.Offset(0x7f0000400042))
	})

	t.Run("ip at range start", func(t *testing.T) {
		assert.Equal(t, uint64(0), table.Offset(0x400000))
	})

	t.Run("ip at range end is outside", func(t *testing.T) {
		// Ranges are half-open: End is the first address past the mapping.
		before := table.Misses()
		assert.Equal(t, uint64(0), table.Offset(0x480000))
		assert.Equal(t, before+1, table.Misses())
	})

	t.Run("ip in a gap", func(t *testing.T) {
		before := table.Misses()
		assert.Equal(t, uint64(0), table.Offset(0x500000))
		assert.Equal(t, before+1, table.Misses())
	})

	t.Run("empty table misses everything", func(t *testing.T) {
		empty := NewTable()
		assert.Equal(t, uint64(0), empty.Offset(0x401234))
		assert.Equal(t, uint64(1), empty.Misses())
	})
}

func TestRebuildUsesProcessMaps(t *testing.T) {
	orig := readProcMaps
	defer func() { readProcMaps = orig }()

	t.Run("installs executable ranges", func(t *testing.T) {
		readProcMaps = func() ([]Range, error) {
			return []Range{{Start: 0x1000, End: 0x2000}}, nil
		}
		table := NewTable()
		require.NoError(t, table.Rebuild())
		assert.Equal(t, uint64(0x500), table.Offset(0x1500))
	})

	t.Run("propagates read failure and keeps old snapshot", func(t *testing.T) {
		readProcMaps = func() ([]Range, error) {
			return []Range{{Start: 0x1000, End: 0x2000}}, nil
		}
		table := NewTable()
		require.NoError(t, table.Rebuild())

		readProcMaps = func() ([]Range, error) {
			return nil, errors.New("maps unreadable")
		}
		require.Error(t, table.Rebuild())
		assert.Equal(t, uint64(0x500), table.Offset(0x1500), "failed rebuild must not clobber the snapshot")
	})
}

func TestRebuildAgainstLiveProcess(t *testing.T) {
	// The test binary itself has executable mappings, so a live rebuild
	// must produce a non-empty snapshot on Linux.
	table := NewTable()
	if err := table.Rebuild(); err != nil {
		t.Skipf("procfs unavailable: %v", err)
	}
	if len(table.Snapshot()) == 0 {
		t.Error("expected at least one executable mapping for the test binary")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	table := NewTable()
	table.Load([]Range{{Start: 0x1000, End: 0x2000}})

	// A reader-side copy must not observe a concurrent Load, and mutating
	// it must not corrupt the table.
	snap := table.Snapshot()
	table.Load([]Range{{Start: 0x9000, End: 0xa000}})
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(0x1000), snap[0].Start)

	snap[0].Start = 0xdead
	assert.Equal(t, uint64(0x9000), table.Snapshot()[0].Start)
}

func TestConcurrentLookupsDuringRebuild(t *testing.T) {
	table := NewTable()
	table.Load([]Range{{Start: 0x1000, End: 0x2000}})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers hammer lookups while a writer swaps snapshots. Every lookup
	// must see a complete list: either 0x500 (old) or 0x0 (new, miss).
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				off := table.Offset(0x1500)
				if off != 0x500 && off != 0 {
					t.Errorf("torn snapshot: offset %#x", off)
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			table.Load([]Range{{Start: 0x1000, End: 0x2000}})
		} else {
			table.Load([]Range{{Start: 0x3000, End: 0x4000}})
		}
	}
	close(stop)
	wg.Wait()
}
