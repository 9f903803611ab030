// Package track - Session-scoped motion tracking and breathing-phase
// estimation over a noisy position stream.
//
// A Tracker and a PhaseClassifier belong to exactly one update stream at a
// time. Neither locks internally; the caller owning a session serializes
// calls into it.
package track

import (
	"github.com/chewxy/math32"
)

// Point is a 2-D position in pixel space.
type Point struct {
	X float32
	Y float32
}

// TrackedPoint is one smoothed sample of the tracked target.
type TrackedPoint struct {
	// Position is the smoothed 2-D position.
	Position Point
	// TimestampMS is the sample time in milliseconds.
	TimestampMS int64
	// Velocity is the amplified 2-D velocity in pixels per second.
	Velocity Point
	// VerticalVelocity is the scalar vertical component of Velocity.
	VerticalVelocity float32
	// Amplitude is the distance from Position to the running mean of the
	// history at sample time.
	Amplitude float32
	// Phase is the breathing phase label assigned after classification.
	Phase Phase
	// Locked reports whether the tracker had acquired a target.
	Locked bool
	// Initial is the reference position from target acquisition, nil before
	// the first sample.
	Initial *Point
}

// Tracker configuration defaults.
const (
	// DefaultHistoryCapacity bounds the FIFO point history.
	DefaultHistoryCapacity = 20
	// DefaultSmoothingWindow is how many trailing positions blend into each
	// new sample.
	DefaultSmoothingWindow = 3
	// DefaultAmplification scales raw velocity. Chest displacement is an
	// order of magnitude smaller than full-body displacement.
	DefaultAmplification = 10.0
)

// TrackerConfig holds tracker tuning parameters.
type TrackerConfig struct {
	// HistoryCapacity is the maximum number of retained points (FIFO).
	HistoryCapacity int `json:"history_capacity" yaml:"history_capacity"`
	// SmoothingWindow is the number of trailing positions averaged with each
	// new raw point.
	SmoothingWindow int `json:"smoothing_window" yaml:"smoothing_window"`
	// Amplification scales the velocity estimate.
	Amplification float32 `json:"amplification" yaml:"amplification"`
}

// DefaultTrackerConfig returns the default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		HistoryCapacity: DefaultHistoryCapacity,
		SmoothingWindow: DefaultSmoothingWindow,
		Amplification:   DefaultAmplification,
	}
}

// Tracker maintains a smoothed position/velocity estimate for one tracked
// target across frames. All methods are total: degenerate inputs fall back to
// zero values, never errors. Not safe for concurrent writers.
type Tracker struct {
	config  TrackerConfig
	history []TrackedPoint
	initial *Point
	locked  bool
}

// NewTracker creates a tracker. Non-positive config fields fall back to the
// defaults.
func NewTracker(config TrackerConfig) *Tracker {
	defaults := DefaultTrackerConfig()
	if config.HistoryCapacity <= 0 {
		config.HistoryCapacity = defaults.HistoryCapacity
	}
	if config.SmoothingWindow <= 0 {
		config.SmoothingWindow = defaults.SmoothingWindow
	}
	if config.Amplification <= 0 {
		config.Amplification = defaults.Amplification
	}
	return &Tracker{
		config:  config,
		history: make([]TrackedPoint, 0, config.HistoryCapacity),
	}
}

// Update ingests one raw center point and returns the recorded sample.
//
// The raw point is blended with the average of up to the last three recorded
// positions (a simple moving average including the new sample); the first
// point is used unsmoothed. Velocity is the smoothed displacement over
// elapsed seconds times the amplification factor, zero when there is no
// previous sample or no elapsed time. Amplitude is the Euclidean distance
// from the smoothed point to the running mean of the current history, zero
// when the history is empty. The sample is appended with FIFO eviction once
// the capacity is exceeded.
func (t *Tracker) Update(raw Point, timestampMS int64) TrackedPoint {
	smoothed := t.smooth(raw)

	point := TrackedPoint{
		Position:    smoothed,
		TimestampMS: timestampMS,
		Phase:       PhaseUnknown,
	}

	if last, ok := t.Last(); ok {
		elapsed := float32(timestampMS-last.TimestampMS) / 1000.0
		if elapsed > 0 {
			point.Velocity = Point{
				X: (smoothed.X - last.Position.X) / elapsed * t.config.Amplification,
				Y: (smoothed.Y - last.Position.Y) / elapsed * t.config.Amplification,
			}
			point.VerticalVelocity = point.Velocity.Y
		}
	}

	point.Amplitude = t.amplitude(smoothed)

	if t.initial == nil {
		ref := smoothed
		t.initial = &ref
		t.locked = true
	}
	point.Initial = t.initial
	point.Locked = t.locked

	t.history = append(t.history, point)
	if len(t.history) > t.config.HistoryCapacity {
		t.history = t.history[1:]
	}
	return point
}

// smooth blends the raw point with up to the last SmoothingWindow positions.
func (t *Tracker) smooth(raw Point) Point {
	if len(t.history) == 0 {
		return raw
	}
	window := t.config.SmoothingWindow
	if window > len(t.history) {
		window = len(t.history)
	}
	sumX, sumY := raw.X, raw.Y
	for _, p := range t.history[len(t.history)-window:] {
		sumX += p.Position.X
		sumY += p.Position.Y
	}
	n := float32(window + 1)
	return Point{X: sumX / n, Y: sumY / n}
}

// amplitude is the distance from p to the mean position of the history.
func (t *Tracker) amplitude(p Point) float32 {
	if len(t.history) == 0 {
		return 0
	}
	var sumX, sumY float32
	for _, h := range t.history {
		sumX += h.Position.X
		sumY += h.Position.Y
	}
	n := float32(len(t.history))
	return math32.Hypot(p.X-sumX/n, p.Y-sumY/n)
}

// LabelLast assigns the breathing phase to the most recent sample.
func (t *Tracker) LabelLast(phase Phase) {
	if len(t.history) > 0 {
		t.history[len(t.history)-1].Phase = phase
	}
}

// Last returns the most recent sample, if any.
func (t *Tracker) Last() (TrackedPoint, bool) {
	if len(t.history) == 0 {
		return TrackedPoint{}, false
	}
	return t.history[len(t.history)-1], true
}

// Len reports the number of retained samples.
func (t *Tracker) Len() int { return len(t.history) }

// Locked reports whether a target has been acquired since the last reset.
func (t *Tracker) Locked() bool { return t.locked }

// History returns a copy of the retained samples in time order.
func (t *Tracker) History() []TrackedPoint {
	out := make([]TrackedPoint, len(t.history))
	copy(out, t.history)
	return out
}

// VerticalVelocities returns the vertical velocity of every retained sample,
// oldest first. Used for threshold calibration.
func (t *Tracker) VerticalVelocities() []float32 {
	out := make([]float32, len(t.history))
	for i, p := range t.history {
		out[i] = p.VerticalVelocity
	}
	return out
}

// Reset clears all state. A reset tracker is indistinguishable from a freshly
// constructed one with the same configuration.
func (t *Tracker) Reset() {
	t.history = t.history[:0]
	t.initial = nil
	t.locked = false
}
