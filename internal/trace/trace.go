// Package trace defines the portable record format for I/O event streams
// and the codecs used to replay them through the prediction engine.
//
// A live tracer host observes call stacks directly; a recorded trace cannot
// carry raw instruction pointers usefully across machines, so records name
// their origin with a symbolic site label instead. Replay derives a stable
// 64-bit call-stack hash from the label, which preserves the property the
// engine actually depends on: same site, same hash.
package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/shinysilver/griot/internal/engine"
	"github.com/shinysilver/griot/internal/murmur"
)

// Record is one traced I/O operation.
type Record struct {
	// Timestamp is the event time in milliseconds.
	Timestamp uint64

	// ThreadID identifies the thread that performed the operation.
	ThreadID int32

	// FD is the file descriptor the operation targeted.
	FD int

	// Offset is the byte offset within the file.
	Offset int64

	// Length is the operation size in bytes.
	Length uint64

	// Duration is the operation duration in nanoseconds.
	Duration uint64

	// Op is the operation kind.
	Op engine.OpType

	// Site is the symbolic label of the I/O call site.
	Site string
}

// Event converts the record to the engine's event form.
func (r Record) Event() engine.Event {
	return engine.Event{
		Timestamp: r.Timestamp,
		ThreadID:  r.ThreadID,
		FD:        r.FD,
		Offset:    r.Offset,
		Length:    r.Length,
		Duration:  r.Duration,
		Op:        r.Op,
	}
}

// SiteHash derives the call-stack hash replayed for a site label.
func SiteHash(site string) uint64 {
	return murmur.Sum64([]byte(site), murmur.Seed)
}

// StackFeed adapts a replayed record stream to the engine's StackHasher:
// the driver stages each record's site hash immediately before delivering
// the event, and the engine reads it back during OnIO.
type StackFeed struct {
	next uint64
}

// Stage sets the hash the next engine capture will observe.
func (f *StackFeed) Stage(h uint64) { f.next = h }

// Hash returns the staged call-stack hash.
func (f *StackFeed) Hash() uint64 { return f.next }

// Replay delivers the records to the engine in order, feeding each
// record's site hash through the stack feed the engine was built with.
func Replay(e *engine.Engine, feed *StackFeed, records []Record, debug io.Writer) {
	for _, r := range records {
		feed.Stage(SiteHash(r.Site))
		e.OnIO(r.Event(), debug)
	}
}

// columns is the CSV schema, in file order.
var columns = []string{"timestamp_ms", "thread_id", "fd", "offset", "length", "duration_ns", "op", "site"}

// WriteCSV writes the records with a leading header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatUint(r.Timestamp, 10),
			strconv.FormatInt(int64(r.ThreadID), 10),
			strconv.Itoa(r.FD),
			strconv.FormatInt(r.Offset, 10),
			strconv.FormatUint(r.Length, 10),
			strconv.FormatUint(r.Duration, 10),
			r.Op.String(),
			r.Site,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a trace file produced by WriteCSV (or by hand). Columns
// are located by header name, so extra columns and reordering are
// tolerated; the eight schema columns must all be present.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read trace header: %w", err)
	}
	idx := make([]int, len(columns))
	for i, col := range columns {
		j := slices.Index(header, col)
		if j < 0 {
			return nil, fmt.Errorf("trace header is missing column %q", col)
		}
		idx[i] = j
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trace line %d: %w", line, err)
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, idx []int) (Record, error) {
	var rec Record
	var err error

	field := func(i int) string { return row[idx[i]] }

	if rec.Timestamp, err = strconv.ParseUint(field(0), 10, 64); err != nil {
		return rec, fmt.Errorf("timestamp_ms: %w", err)
	}
	tid, err := strconv.ParseInt(field(1), 10, 32)
	if err != nil {
		return rec, fmt.Errorf("thread_id: %w", err)
	}
	rec.ThreadID = int32(tid)
	if rec.FD, err = strconv.Atoi(field(2)); err != nil {
		return rec, fmt.Errorf("fd: %w", err)
	}
	if rec.Offset, err = strconv.ParseInt(field(3), 10, 64); err != nil {
		return rec, fmt.Errorf("offset: %w", err)
	}
	if rec.Length, err = strconv.ParseUint(field(4), 10, 64); err != nil {
		return rec, fmt.Errorf("length: %w", err)
	}
	if rec.Duration, err = strconv.ParseUint(field(5), 10, 64); err != nil {
		return rec, fmt.Errorf("duration_ns: %w", err)
	}
	if rec.Op, err = engine.ParseOpType(field(6)); err != nil {
		return rec, err
	}
	rec.Site = field(7)
	if rec.Site == "" {
		return rec, fmt.Errorf("site must not be empty")
	}
	return rec, nil
}
