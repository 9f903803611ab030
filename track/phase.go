package track

import (
	"github.com/chewxy/math32"
)

// Phase is a discrete breathing phase.
type Phase string

const (
	// PhaseUnknown means not enough signal history exists yet.
	PhaseUnknown Phase = "unknown"
	// PhaseInhaling is upward chest motion (negative vertical velocity).
	PhaseInhaling Phase = "inhaling"
	// PhaseExhaling is downward chest motion (positive vertical velocity).
	PhaseExhaling Phase = "exhaling"
	// PhasePause is the rest between inhale and exhale.
	PhasePause Phase = "pause"
)

// Phase timing and signal-strength defaults (configurable for tuning).
const (
	// DefaultStrongSignal is the velocity magnitude that bypasses hysteresis.
	DefaultStrongSignal = 7.0
	// DefaultFlickerSignal is the magnitude below which rapid re-transitions
	// are suppressed.
	DefaultFlickerSignal = 4.0
	// DefaultMinDwellMS is the minimum time between phase changes for weak
	// signals.
	DefaultMinDwellMS = 500
	// DefaultPauseEscapeMS is how long a pause may last before the classifier
	// forces a transition out of it.
	DefaultPauseEscapeMS = 1000
	// DefaultPauseEscapeVelocity is the velocity magnitude that ends a
	// prolonged pause.
	DefaultPauseEscapeVelocity = 1.5
	// velocityWindow is the number of recent velocity samples blended into
	// the decision signal.
	velocityWindow = 3
)

// PhaseConfig holds the state machine tuning parameters.
type PhaseConfig struct {
	StrongSignal        float32 `json:"strong_signal" yaml:"strong_signal"`
	FlickerSignal       float32 `json:"flicker_signal" yaml:"flicker_signal"`
	MinDwellMS          int64   `json:"min_dwell_ms" yaml:"min_dwell_ms"`
	PauseEscapeMS       int64   `json:"pause_escape_ms" yaml:"pause_escape_ms"`
	PauseEscapeVelocity float32 `json:"pause_escape_velocity" yaml:"pause_escape_velocity"`
}

// DefaultPhaseConfig returns the default state machine configuration.
func DefaultPhaseConfig() PhaseConfig {
	return PhaseConfig{
		StrongSignal:        DefaultStrongSignal,
		FlickerSignal:       DefaultFlickerSignal,
		MinDwellMS:          DefaultMinDwellMS,
		PauseEscapeMS:       DefaultPauseEscapeMS,
		PauseEscapeVelocity: DefaultPauseEscapeVelocity,
	}
}

// Blend weights for the recent-velocity signal, most recent first.
var (
	blendWeights3 = [3]float32{0.6, 0.3, 0.1}
	blendWeights2 = [2]float32{0.7, 0.3}
)

// PhaseClassifier turns a vertical-velocity stream into a breathing phase.
//
// The machine runs over {unknown, inhaling, exhaling, pause} for the session
// lifetime; there is no terminal state and only Reset returns it to unknown.
// Not safe for concurrent writers.
type PhaseClassifier struct {
	config     PhaseConfig
	thresholds Thresholds

	current      Phase
	lastChangeMS int64
	window       []float32 // recent vertical velocities, oldest first
}

// NewPhaseClassifier creates a classifier with the given thresholds.
// Zero-valued config fields fall back to the defaults.
func NewPhaseClassifier(config PhaseConfig, thresholds Thresholds) *PhaseClassifier {
	defaults := DefaultPhaseConfig()
	if config.StrongSignal <= 0 {
		config.StrongSignal = defaults.StrongSignal
	}
	if config.FlickerSignal <= 0 {
		config.FlickerSignal = defaults.FlickerSignal
	}
	if config.MinDwellMS <= 0 {
		config.MinDwellMS = defaults.MinDwellMS
	}
	if config.PauseEscapeMS <= 0 {
		config.PauseEscapeMS = defaults.PauseEscapeMS
	}
	if config.PauseEscapeVelocity <= 0 {
		config.PauseEscapeVelocity = defaults.PauseEscapeVelocity
	}
	return &PhaseClassifier{
		config:     config,
		thresholds: thresholds,
		current:    PhaseUnknown,
		window:     make([]float32, 0, velocityWindow),
	}
}

// Phase returns the current breathing phase.
func (c *PhaseClassifier) Phase() Phase { return c.current }

// Thresholds returns the active velocity bands.
func (c *PhaseClassifier) Thresholds() Thresholds { return c.thresholds }

// SetThresholds replaces the velocity bands, e.g. after calibration.
func (c *PhaseClassifier) SetThresholds(t Thresholds) { c.thresholds = t }

// Update feeds one vertical velocity sample and evaluates the transition
// rules:
//
//  1. Raw phase from the blended velocity against the calibrated bands.
//  2. Hysteresis: a strong signal (|v| > StrongSignal) is accepted
//     unconditionally; otherwise a weak signal (|v| < FlickerSignal) within
//     MinDwellMS of the last change keeps the previous phase.
//  3. Natural cycle: a direct inhale-to-exhale (or reverse) transition is
//     forced through pause. A pause lasting longer than PauseEscapeMS is
//     forced out once the velocity clears PauseEscapeVelocity.
//
// The classifier stays unknown until at least two velocity samples exist.
func (c *PhaseClassifier) Update(verticalVelocity float32, timestampMS int64) Phase {
	if len(c.window) == velocityWindow {
		copy(c.window, c.window[1:])
		c.window[velocityWindow-1] = verticalVelocity
	} else {
		c.window = append(c.window, verticalVelocity)
	}
	if len(c.window) < 2 {
		return c.current
	}

	velocity := c.blended()
	magnitude := math32.Abs(velocity)

	raw := PhasePause
	switch {
	case velocity < c.thresholds.Inhale:
		raw = PhaseInhaling
	case velocity > c.thresholds.Exhale:
		raw = PhaseExhaling
	}

	next := raw
	if magnitude <= c.config.StrongSignal &&
		c.current != PhaseUnknown &&
		timestampMS-c.lastChangeMS < c.config.MinDwellMS &&
		magnitude < c.config.FlickerSignal {
		next = c.current
	}

	// Breathing must pass through a pause between opposite phases.
	if (c.current == PhaseInhaling && next == PhaseExhaling) ||
		(c.current == PhaseExhaling && next == PhaseInhaling) {
		next = PhasePause
	}

	if c.current == PhasePause && timestampMS-c.lastChangeMS > c.config.PauseEscapeMS {
		switch {
		case velocity < -c.config.PauseEscapeVelocity:
			next = PhaseInhaling
		case velocity > c.config.PauseEscapeVelocity:
			next = PhaseExhaling
		default:
			next = PhasePause
		}
	}

	if next != c.current {
		c.current = next
		c.lastChangeMS = timestampMS
	}
	return c.current
}

// blended is the weighted average of the recent velocity window, most recent
// sample weighted highest.
func (c *PhaseClassifier) blended() float32 {
	n := len(c.window)
	switch n {
	case 0:
		return 0
	case 1:
		return c.window[0]
	case 2:
		return blendWeights2[0]*c.window[1] + blendWeights2[1]*c.window[0]
	default:
		return blendWeights3[0]*c.window[n-1] +
			blendWeights3[1]*c.window[n-2] +
			blendWeights3[2]*c.window[n-3]
	}
}

// Reset returns the machine to unknown and clears the velocity window. The
// thresholds are kept; recalibrate to change them.
func (c *PhaseClassifier) Reset() {
	c.current = PhaseUnknown
	c.lastChangeMS = 0
	c.window = c.window[:0]
}
