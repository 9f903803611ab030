package track

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MinCalibrationSamples is the minimum batch size for threshold calibration.
const MinCalibrationSamples = 10

// Thresholds are the velocity bands separating breathing phases. Calibration
// produces bands satisfying Inhale < PauseLow <= PauseHigh < Exhale for
// physiological samples; manually constructed values are the caller's
// responsibility and are not validated at runtime.
type Thresholds struct {
	// Inhale is the (negative) velocity below which the subject is inhaling.
	Inhale float32 `json:"inhale" yaml:"inhale"`
	// Exhale is the (positive) velocity above which the subject is exhaling.
	Exhale float32 `json:"exhale" yaml:"exhale"`
	// PauseLow and PauseHigh bound the resting band.
	PauseLow  float32 `json:"pause_low" yaml:"pause_low"`
	PauseHigh float32 `json:"pause_high" yaml:"pause_high"`
}

// DefaultThresholds returns the velocity bands used before calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Inhale:    -2.0,
		Exhale:    2.0,
		PauseLow:  -0.6,
		PauseHigh: 0.6,
	}
}

// CalibrateThresholds derives velocity bands from a batch of sampled vertical
// velocities: Inhale = 1.2*p25, Exhale = 1.2*p75, PauseLow = 0.3*median,
// PauseHigh = 0.7*median. The input is not mutated.
//
// Returns ok=false without a result when fewer than MinCalibrationSamples
// samples are provided.
func CalibrateThresholds(samples []float32) (Thresholds, bool) {
	if len(samples) < MinCalibrationSamples {
		return Thresholds{}, false
	}

	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)

	p25 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	median := stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)

	return Thresholds{
		Inhale:    float32(1.2 * p25),
		Exhale:    float32(1.2 * p75),
		PauseLow:  float32(0.3 * median),
		PauseHigh: float32(0.7 * median),
	}, true
}

// Calibrate recomputes the classifier's thresholds from sampled velocities.
// With fewer than MinCalibrationSamples samples the call is a logged no-op
// and the active thresholds are left untouched.
func (c *PhaseClassifier) Calibrate(samples []float32) bool {
	thresholds, ok := CalibrateThresholds(samples)
	if !ok {
		log.Printf("phase calibration skipped: %d samples, need %d", len(samples), MinCalibrationSamples)
		return false
	}
	c.thresholds = thresholds
	return true
}
