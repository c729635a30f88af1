package engine

import (
	"fmt"
	"io"
)

// writeReport serialises a snapshot as the flat key=value report.
//
// The key set and ordering are a stable contract with downstream analysis
// tooling; do not reorder or rename.
func writeReport(w io.Writer, s Snapshot) error {
	_, err := fmt.Fprintf(w,
		"context_size=%d\n"+
			"call_stack_depth=%d\n"+
			"granularity=%s\n"+
			"overall_app_duration=%d\n"+
			"io_time_ns=%d\n"+
			"io_count=%d\n"+
			"io_volume=%d\n"+
			"read_volume=%d\n"+
			"write_volume=%d\n"+
			"mru_correct_prediction_count=%d\n"+
			"mru_correct_prediction_volume=%d\n"+
			"mru_correct_prediction_io_time=%d\n"+
			"mfu_correct_prediction_count=%d\n"+
			"mfu_correct_prediction_volume=%d\n"+
			"mfu_correct_prediction_io_time=%d\n"+
			"call_stack_instrumentation_count=%d\n"+
			"call_stack_instrumentation_time_ns=%d\n"+
			"model_prediction_time_ns=%d\n"+
			"model_memory_footprint=%d\n",
		s.ContextSize,
		s.CallStackDepth,
		s.Granularity,
		s.AppDuration,
		s.IOTime,
		s.IOCount,
		s.IOVolume,
		s.ReadVolume,
		s.WriteVolume,
		s.MRUCorrectPredictionCount,
		s.MRUCorrectPredictionVolume,
		s.MRUCorrectPredictionIOTime,
		s.MFUCorrectPredictionCount,
		s.MFUCorrectPredictionVolume,
		s.MFUCorrectPredictionIOTime,
		s.CallStackInstrumentationCount,
		s.CallStackInstrumentationTime,
		s.ModelPredictionTime,
		s.ModelMemoryFootprint,
	)
	return err
}
