package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinysilver/griot/internal/engine"
)

const loopScenario = `
name: steady-loop
repeat: 3
pattern:
  - {op: open, fd: 3, site: open_log}
  - {op: read, fd: 3, site: read_header, length: 4096, duration_ns: 1200}
  - {op: read, fd: 3, site: read_body, length: 65536, duration_ns: 9000}
  - {op: close, fd: 3, site: close_log}
`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(strings.NewReader(loopScenario))
	require.NoError(t, err)
	assert.Equal(t, "steady-loop", s.Name)
	assert.Equal(t, 3, s.Repeat)
	require.Len(t, s.Pattern, 4)
	assert.Equal(t, "read_header", s.Pattern[1].Site)
	assert.Equal(t, uint64(65536), s.Pattern[2].Length)
}

func TestLoadScenarioValidation(t *testing.T) {
	t.Run("empty pattern", func(t *testing.T) {
		_, err := LoadScenario(strings.NewReader("name: x\npattern: []\n"))
		require.Error(t, err)
	})

	t.Run("unknown op", func(t *testing.T) {
		_, err := LoadScenario(strings.NewReader("pattern:\n  - {op: seek, fd: 1, site: s}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "seek")
	})

	t.Run("missing site", func(t *testing.T) {
		_, err := LoadScenario(strings.NewReader("pattern:\n  - {op: read, fd: 1}\n"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadScenario(strings.NewReader("pattern: ["))
		require.Error(t, err)
	})
}

func TestScenarioRecords(t *testing.T) {
	s, err := LoadScenario(strings.NewReader(loopScenario))
	require.NoError(t, err)

	records := s.Records()
	require.Len(t, records, 12)

	// Timestamps are strictly increasing.
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].Timestamp, records[i-1].Timestamp)
	}

	// Offsets model sequential access per descriptor and reset on close.
	assert.Equal(t, int64(0), records[1].Offset, "first read starts at 0")
	assert.Equal(t, int64(4096), records[2].Offset, "second read follows the first")
	assert.Equal(t, int64(0), records[5].Offset, "offset resets after close")

	// Repeat defaults to a single iteration.
	one := &Scenario{Pattern: []Step{{Op: "read", FD: 1, Site: "s", Length: 8}}}
	assert.Len(t, one.Records(), 1)
}

func TestScenarioReplayEndToEnd(t *testing.T) {
	s, err := LoadScenario(strings.NewReader(loopScenario))
	require.NoError(t, err)

	feed := &StackFeed{}
	e, err := engine.New(engine.Config{
		ContextSize: 4,
		Granularity: engine.PerOpenFile,
		Stacks:      feed,
	})
	require.NoError(t, err)

	Replay(e, feed, s.Records(), nil)

	snap := e.Snapshot()
	assert.Equal(t, uint64(12), snap.IOCount)
	assert.Equal(t, uint64(3*(4096+65536)), snap.ReadVolume)
	assert.Equal(t, uint64(0), snap.WriteVolume)
	assert.Equal(t, uint64(3*(1200+9000)), snap.IOTime)
}
