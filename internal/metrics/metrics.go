// Package metrics exports the engine's accumulated counters as Prometheus
// metrics, for hosts that want live visibility into prediction quality
// instead of (or alongside) the terminal report.
//
// The collector is read-only: it samples an engine snapshot on every
// scrape and never mutates engine state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shinysilver/griot/internal/engine"
)

// predictorLabel distinguishes the two prediction strategies.
const predictorLabel = "predictor"

// Collector adapts an engine counter snapshot to the Prometheus collect
// protocol.
type Collector struct {
	source func() engine.Snapshot

	ioTotal        *prometheus.Desc
	ioVolume       *prometheus.Desc
	readVolume     *prometheus.Desc
	writeVolume    *prometheus.Desc
	ioTime         *prometheus.Desc
	hits           *prometheus.Desc
	hitVolume      *prometheus.Desc
	hitIOTime      *prometheus.Desc
	stackCount     *prometheus.Desc
	stackTime      *prometheus.Desc
	predictionTime *prometheus.Desc
	footprint      *prometheus.Desc
}

// NewCollector builds a collector over a snapshot source, typically
// (*engine.Engine).Snapshot. The engine's granularity is attached to every
// series as a constant label.
func NewCollector(source func() engine.Snapshot) *Collector {
	g := string(source().Granularity)
	constLabels := prometheus.Labels{"granularity": g}

	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc("griot_"+name, help, labels, constLabels)
	}

	return &Collector{
		source: source,

		ioTotal:        desc("io_total", "Intercepted I/O operations."),
		ioVolume:       desc("io_volume_bytes_total", "Bytes moved by reads and writes."),
		readVolume:     desc("read_volume_bytes_total", "Bytes moved by reads."),
		writeVolume:    desc("write_volume_bytes_total", "Bytes moved by writes."),
		ioTime:         desc("io_time_nanoseconds_total", "Time spent inside intercepted operations."),
		hits:           desc("correct_predictions_total", "Validated next-context predictions.", predictorLabel),
		hitVolume:      desc("correct_prediction_volume_bytes_total", "Bytes covered by validated predictions.", predictorLabel),
		hitIOTime:      desc("correct_prediction_io_time_nanoseconds_total", "I/O time covered by validated predictions.", predictorLabel),
		stackCount:     desc("call_stack_captures_total", "Call-stack captures performed."),
		stackTime:      desc("call_stack_capture_time_nanoseconds_total", "Time spent capturing call stacks."),
		predictionTime: desc("model_prediction_time_nanoseconds_total", "Time spent in the prediction model."),
		footprint:      desc("model_memory_footprint_bytes", "Peak logical size of the learned model."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ioTotal
	ch <- c.ioVolume
	ch <- c.readVolume
	ch <- c.writeVolume
	ch <- c.ioTime
	ch <- c.hits
	ch <- c.hitVolume
	ch <- c.hitIOTime
	ch <- c.stackCount
	ch <- c.stackTime
	ch <- c.predictionTime
	ch <- c.footprint
}

// Collect implements prometheus.Collector by sampling one snapshot.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.ioTotal, s.IOCount)
	counter(c.ioVolume, s.IOVolume)
	counter(c.readVolume, s.ReadVolume)
	counter(c.writeVolume, s.WriteVolume)
	counter(c.ioTime, s.IOTime)

	counter(c.hits, s.MRUCorrectPredictionCount, "mru")
	counter(c.hits, s.MFUCorrectPredictionCount, "mfu")
	counter(c.hitVolume, s.MRUCorrectPredictionVolume, "mru")
	counter(c.hitVolume, s.MFUCorrectPredictionVolume, "mfu")
	counter(c.hitIOTime, s.MRUCorrectPredictionIOTime, "mru")
	counter(c.hitIOTime, s.MFUCorrectPredictionIOTime, "mfu")

	counter(c.stackCount, s.CallStackInstrumentationCount)
	counter(c.stackTime, s.CallStackInstrumentationTime)
	counter(c.predictionTime, s.ModelPredictionTime)

	ch <- prometheus.MustNewConstMetric(c.footprint, prometheus.GaugeValue, float64(s.ModelMemoryFootprint))
}
