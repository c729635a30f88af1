package engine

import "time"

// results accumulates the engine counters. Guarded by the engine lock; the
// single-writer discipline makes atomics unnecessary here.
type results struct {
	appStart time.Time

	ioCount     uint64
	ioTime      uint64
	readVolume  uint64
	writeVolume uint64
	totalVolume uint64

	mruCount  uint64
	mruVolume uint64
	mruIOTime uint64

	mfuCount  uint64
	mfuVolume uint64
	mfuIOTime uint64

	stackCount uint64
	stackTime  uint64

	predictionTime uint64

	peakFootprint uint64
}

// reset zeroes every counter and restarts the app clock.
func (r *results) reset(start time.Time) {
	*r = results{appStart: start}
}

// observeFootprint folds a fresh footprint sample into the recorded peak.
func (r *results) observeFootprint(current uint64) {
	if current > r.peakFootprint {
		r.peakFootprint = current
	}
}

// Snapshot is a read-only copy of the counters plus the engine parameters,
// taken at a single point in time.
type Snapshot struct {
	ContextSize    uint32
	CallStackDepth uint32
	Granularity    Granularity

	// AppDuration is the time since engine start (or the last counter
	// reset), in nanoseconds.
	AppDuration uint64

	IOTime      uint64
	IOCount     uint64
	IOVolume    uint64
	ReadVolume  uint64
	WriteVolume uint64

	MRUCorrectPredictionCount  uint64
	MRUCorrectPredictionVolume uint64
	MRUCorrectPredictionIOTime uint64

	MFUCorrectPredictionCount  uint64
	MFUCorrectPredictionVolume uint64
	MFUCorrectPredictionIOTime uint64

	CallStackInstrumentationCount uint64
	CallStackInstrumentationTime  uint64

	ModelPredictionTime uint64

	// ModelMemoryFootprint is the highest logical model size observed, in
	// bytes. An accounting estimate, not an allocator total.
	ModelMemoryFootprint uint64
}

func (r *results) snapshot(contextSize, depth uint32, g Granularity, at time.Time) Snapshot {
	return Snapshot{
		ContextSize:    contextSize,
		CallStackDepth: depth,
		Granularity:    g,

		AppDuration: uint64(at.Sub(r.appStart).Nanoseconds()),

		IOTime:      r.ioTime,
		IOCount:     r.ioCount,
		IOVolume:    r.readVolume + r.writeVolume,
		ReadVolume:  r.readVolume,
		WriteVolume: r.writeVolume,

		MRUCorrectPredictionCount:  r.mruCount,
		MRUCorrectPredictionVolume: r.mruVolume,
		MRUCorrectPredictionIOTime: r.mruIOTime,

		MFUCorrectPredictionCount:  r.mfuCount,
		MFUCorrectPredictionVolume: r.mfuVolume,
		MFUCorrectPredictionIOTime: r.mfuIOTime,

		CallStackInstrumentationCount: r.stackCount,
		CallStackInstrumentationTime:  r.stackTime,

		ModelPredictionTime: r.predictionTime,

		ModelMemoryFootprint: r.peakFootprint,
	}
}
