package trace

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/shinysilver/griot/internal/engine"
)

// Scenario describes a synthetic workload: a short pattern of operations
// repeated a number of times, expanded into a full record stream for
// replay. Scenarios are the quickest way to exercise the engine against a
// known access shape (steady loops, branching reads) without recording a
// real application.
//
// YAML form:
//
//	name: steady-loop
//	repeat: 4
//	pattern:
//	  - {op: open, fd: 3, site: open_log}
//	  - {op: read, fd: 3, site: read_header, length: 4096, duration_ns: 1200}
//	  - {op: close, fd: 3, site: close_log}
type Scenario struct {
	// Name labels the scenario in summaries; free-form.
	Name string `yaml:"name"`

	// Repeat is how many times the pattern is replayed. Zero means once.
	Repeat int `yaml:"repeat"`

	// Pattern is the operation sequence of one iteration.
	Pattern []Step `yaml:"pattern"`
}

// Step is one operation of a scenario pattern.
type Step struct {
	Op       string `yaml:"op"`
	FD       int    `yaml:"fd"`
	Site     string `yaml:"site"`
	Length   uint64 `yaml:"length"`
	Duration uint64 `yaml:"duration_ns"`
}

// LoadScenario parses and validates a YAML scenario.
func LoadScenario(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Pattern) == 0 {
		return nil, fmt.Errorf("scenario %q has an empty pattern", s.Name)
	}
	if s.Repeat < 0 {
		return nil, fmt.Errorf("scenario %q has negative repeat %d", s.Name, s.Repeat)
	}
	for i, step := range s.Pattern {
		if _, err := engine.ParseOpType(step.Op); err != nil {
			return nil, fmt.Errorf("scenario %q step %d: %w", s.Name, i, err)
		}
		if step.Site == "" {
			return nil, fmt.Errorf("scenario %q step %d: site must not be empty", s.Name, i)
		}
	}
	return &s, nil
}

// Records expands the scenario into a replayable record stream.
//
// Timestamps advance by one millisecond per event; offsets advance
// per descriptor by the length of each operation, modelling sequential
// access. Both are synthetic — the engine's model ignores them, and the
// counters only consume lengths and durations.
func (s *Scenario) Records() []Record {
	repeat := s.Repeat
	if repeat == 0 {
		repeat = 1
	}

	records := make([]Record, 0, repeat*len(s.Pattern))
	offsets := make(map[int]int64)
	var ts uint64

	for i := 0; i < repeat; i++ {
		for _, step := range s.Pattern {
			op, _ := engine.ParseOpType(step.Op) // validated by LoadScenario
			ts++
			records = append(records, Record{
				Timestamp: ts,
				FD:        step.FD,
				Offset:    offsets[step.FD],
				Length:    step.Length,
				Duration:  step.Duration,
				Op:        op,
				Site:      step.Site,
			})
			offsets[step.FD] += int64(step.Length)
			if op == engine.OpClose {
				offsets[step.FD] = 0
			}
		}
	}
	return records
}
