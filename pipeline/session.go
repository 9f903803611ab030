// Package pipeline - Per-session orchestration of the respiration estimation
// stages: decode, suppression, region extraction, tracking, phase
// classification and on-demand analysis.
package pipeline

import (
	"gorgonia.org/tensor"

	"github.com/CDupuis7/go-respiration/analysis"
	"github.com/CDupuis7/go-respiration/detect"
	"github.com/CDupuis7/go-respiration/inference"
	"github.com/CDupuis7/go-respiration/track"
)

// Config collects the stage configurations for one session.
type Config struct {
	Decoder    detect.DecoderConfig      `json:"decoder" yaml:"decoder"`
	NMS        detect.NMSConfig          `json:"nms" yaml:"nms"`
	Tracker    track.TrackerConfig       `json:"tracker" yaml:"tracker"`
	Phase      track.PhaseConfig         `json:"phase" yaml:"phase"`
	Thresholds track.Thresholds          `json:"thresholds" yaml:"thresholds"`
	Classifier analysis.ClassifierConfig `json:"classifier" yaml:"classifier"`
}

// DefaultConfig returns the per-stage defaults.
func DefaultConfig() Config {
	return Config{
		Decoder:    detect.DefaultDecoderConfig(),
		NMS:        detect.DefaultNMSConfig(),
		Tracker:    track.DefaultTrackerConfig(),
		Phase:      track.DefaultPhaseConfig(),
		Thresholds: track.DefaultThresholds(),
		Classifier: analysis.DefaultClassifierConfig(),
	}
}

// FrameResult is the outcome of processing one frame.
type FrameResult struct {
	// Phase is the breathing phase after this frame.
	Phase track.Phase
	// Tracked reports whether a subject was detected and the tracker
	// updated this frame.
	Tracked bool
	// Detection is the accepted subject box, zero when Tracked is false.
	Detection detect.Detection
	// Region is the derived chest region fed to the tracker.
	Region detect.RegionOfInterest
	// DisplayBox is the chest region mapped into display space using the
	// frame's rotation.
	DisplayBox detect.Rect
	// Point is the recorded tracker sample.
	Point track.TrackedPoint
}

// Session owns the mutable state of one subject's estimation stream: the
// tracker, the phase state machine and the classification strategy.
//
// A session must be driven by exactly one update stream; it performs no
// internal locking. Frame throttling is the producer's responsibility.
type Session struct {
	config     Config
	model      inference.ModelInfo
	tracker    *track.Tracker
	phase      *track.PhaseClassifier
	classifier analysis.PatternClassifier
	metrics    *Instrumentation
}

// NewSession wires a session from a loaded model description and a
// classification strategy. A nil classifier falls back to the rule-based
// strategy with the configured thresholds.
func NewSession(model inference.ModelInfo, config Config, classifier analysis.PatternClassifier) *Session {
	if classifier == nil {
		classifier = analysis.NewRuleClassifier(config.Classifier)
	}
	return &Session{
		config:     config,
		model:      model,
		tracker:    track.NewTracker(config.Tracker),
		phase:      track.NewPhaseClassifier(config.Phase, config.Thresholds),
		classifier: classifier,
		metrics:    NewInstrumentation(),
	}
}

// Model returns the description of the model the session was built for.
func (s *Session) Model() inference.ModelInfo { return s.model }

// Instrumentation returns the session's metric counters.
func (s *Session) Instrumentation() *Instrumentation { return s.metrics }

// ProcessFrame runs the full stage chain on one raw detection tensor.
//
// Decoding failures and frames without an acceptable subject are not errors:
// the result simply reports Tracked=false and the session state is left
// untouched. The rotation is used only to produce DisplayBox; tracking runs
// in sensor coordinates.
func (s *Session) ProcessFrame(raw tensor.Tensor, width, height int, rotation detect.Rotation, timestampMS int64) FrameResult {
	s.metrics.FramesProcessed.Add(1)

	detections := detect.Decode(raw, width, height, &s.config.Decoder)
	detections = detect.ApplyGreedyNMS(detections, &s.config.NMS)
	s.metrics.DecodedBoxes.Add(uint64(len(detections)))

	best, ok := selectSubject(detections, s.config.Decoder.TargetClass)
	if !ok {
		s.metrics.FramesMissed.Add(1)
		return FrameResult{Phase: s.phase.Phase()}
	}
	s.metrics.FramesDetected.Add(1)

	region := detect.ChestRegion(best.Box, best.Score, timestampMS)
	result := FrameResult{
		Tracked:    true,
		Detection:  best,
		Region:     region,
		DisplayBox: detect.MapToDisplay(region.Box, rotation, width, height),
	}

	result.Point, result.Phase = s.ingest(track.Point(region.Center), timestampMS)
	return result
}

// ProcessPoint feeds a pre-extracted region center directly, for callers that
// run their own detection stage.
func (s *Session) ProcessPoint(p track.Point, timestampMS int64) (track.TrackedPoint, track.Phase) {
	s.metrics.FramesProcessed.Add(1)
	s.metrics.FramesDetected.Add(1)
	return s.ingest(p, timestampMS)
}

// ingest advances the tracker and the phase machine with one center point.
func (s *Session) ingest(p track.Point, timestampMS int64) (track.TrackedPoint, track.Phase) {
	before := s.phase.Phase()
	point := s.tracker.Update(p, timestampMS)
	phase := s.phase.Update(point.VerticalVelocity, timestampMS)
	s.tracker.LabelLast(phase)
	point.Phase = phase
	if phase != before {
		s.metrics.PhaseTransitions.Add(1)
	}
	return point, phase
}

// Calibrate recomputes the phase thresholds from a batch of sampled
// velocities. Returns false (leaving thresholds untouched) when the batch is
// too small.
func (s *Session) Calibrate(samples []float32) bool {
	return s.phase.Calibrate(samples)
}

// CalibrateFromHistory calibrates using the vertical velocities currently
// retained by the tracker.
func (s *Session) CalibrateFromHistory() bool {
	return s.phase.Calibrate(s.tracker.VerticalVelocities())
}

// Phase returns the current breathing phase.
func (s *Session) Phase() track.Phase { return s.phase.Phase() }

// History returns a copy of the tracker's retained samples.
func (s *Session) History() []track.TrackedPoint { return s.tracker.History() }

// Metrics aggregates the current history into breathing metrics. The status
// is false while the history is still below the aggregation minimum.
func (s *Session) Metrics() (analysis.Metrics, bool) {
	m, ok := analysis.Aggregate(s.tracker.History())
	s.metrics.SetBreathingRate(m.BreathingRate)
	return m, ok
}

// Classify runs the session's classification strategy over the current
// metrics.
func (s *Session) Classify() analysis.Result {
	m, _ := s.Metrics()
	return s.classifier.Classify(m)
}

// Reset clears the tracker and returns the phase machine to unknown.
// Calibrated thresholds survive a reset.
func (s *Session) Reset() {
	s.tracker.Reset()
	s.phase.Reset()
}

// selectSubject picks the highest-confidence detection of the target class.
// The input is confidence-sorted by suppression, so the first match wins.
func selectSubject(detections []detect.Detection, targetClass int) (detect.Detection, bool) {
	for _, d := range detections {
		if d.Class == targetClass {
			return d, true
		}
	}
	return detect.Detection{}, false
}
