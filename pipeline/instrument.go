package pipeline

import (
	"math"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrumentation counts pipeline activity and exposes it as Prometheus
// metrics. Counters are atomics so a scrape never contends with the frame
// loop.
type Instrumentation struct {
	FramesProcessed  atomic.Uint64
	FramesDetected   atomic.Uint64
	FramesMissed     atomic.Uint64
	DecodedBoxes     atomic.Uint64
	PhaseTransitions atomic.Uint64

	breathingRateBits atomic.Uint64 // float64 bits of the last computed rate

	registry *prometheus.Registry
}

// NewInstrumentation creates the metric set on its own registry, so multiple
// sessions in one process never collide on registration.
func NewInstrumentation() *Instrumentation {
	ins := &Instrumentation{registry: prometheus.NewRegistry()}

	ins.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "respiration_frames_processed_total",
			Help: "Total frames processed by the pipeline",
		},
		func() float64 { return float64(ins.FramesProcessed.Load()) },
	))

	ins.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "respiration_frames_detected_total",
			Help: "Frames in which a subject was detected and tracked",
		},
		func() float64 { return float64(ins.FramesDetected.Load()) },
	))

	ins.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "respiration_frames_missed_total",
			Help: "Frames in which no subject passed detection",
		},
		func() float64 { return float64(ins.FramesMissed.Load()) },
	))

	ins.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "respiration_decoded_boxes_total",
			Help: "Bounding boxes surviving decode and suppression",
		},
		func() float64 { return float64(ins.DecodedBoxes.Load()) },
	))

	ins.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "respiration_phase_transitions_total",
			Help: "Breathing phase transitions observed",
		},
		func() float64 { return float64(ins.PhaseTransitions.Load()) },
	))

	ins.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "respiration_breathing_rate",
			Help: "Last computed breathing rate in breaths per minute",
		},
		func() float64 { return math.Float64frombits(ins.breathingRateBits.Load()) },
	))

	return ins
}

// SetBreathingRate records the last computed rate for the gauge.
func (ins *Instrumentation) SetBreathingRate(rate float64) {
	ins.breathingRateBits.Store(math.Float64bits(rate))
}

// Handler returns the HTTP handler serving the session's metrics.
func (ins *Instrumentation) Handler() http.Handler {
	return promhttp.HandlerFor(ins.registry, promhttp.HandlerOpts{})
}
