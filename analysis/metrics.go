// Package analysis - Aggregation of tracked-point history into clinically
// meaningful breathing metrics and a normal/abnormal classification.
package analysis

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/stat"

	"github.com/CDupuis7/go-respiration/track"
)

// MinHistoryPoints is the minimum history length for metric aggregation.
// Shorter histories yield all-zero metrics.
const MinHistoryPoints = 10

// Metrics are derived breathing statistics, recomputed on demand from the
// point history and never persisted independently.
type Metrics struct {
	// BreathingRate is in breaths per minute.
	BreathingRate float64 `json:"breathing_rate"`
	// AverageAmplitude, MaxAmplitude and MinAmplitude summarize the
	// amplitude series.
	AverageAmplitude float64 `json:"average_amplitude"`
	MaxAmplitude     float64 `json:"max_amplitude"`
	MinAmplitude     float64 `json:"min_amplitude"`
	// BreathCount is the number of completed inhale/exhale cycles.
	BreathCount int `json:"breath_count"`
	// IrregularityIndex is the coefficient of variation of phase-segment
	// durations; higher means less rhythmic breathing.
	IrregularityIndex float64 `json:"irregularity_index"`
	// AmplitudeVariation is the standard deviation of the amplitude series.
	AmplitudeVariation float64 `json:"amplitude_variation"`
	// AverageVelocity is the mean velocity magnitude.
	AverageVelocity float64 `json:"average_velocity"`
	// DurationSeconds is the timespan covered by the history.
	DurationSeconds float64 `json:"duration_seconds"`
}

// Aggregate computes breathing metrics from a time-ordered point history.
//
// With fewer than MinHistoryPoints points the zero value is returned with a
// false status, so a too-short history stays distinguishable from a
// legitimately degenerate one. The amplitude series is the Euclidean
// distance of each point from the running mean position, the breath counter
// closes a cycle each time an exhaling label follows an open inhale, and the
// rate divides the closed cycles by the history timespan.
func Aggregate(history []track.TrackedPoint) (Metrics, bool) {
	var m Metrics
	if len(history) < MinHistoryPoints {
		return m, false
	}

	amplitudes := amplitudeSeries(history)
	velocities := make([]float64, len(history))
	for i, p := range history {
		velocities[i] = float64(math32.Hypot(p.Velocity.X, p.Velocity.Y))
	}

	m.BreathCount = countBreaths(history)
	m.DurationSeconds = float64(history[len(history)-1].TimestampMS-history[0].TimestampMS) / 1000.0
	if m.DurationSeconds > 0 {
		m.BreathingRate = float64(m.BreathCount) / (m.DurationSeconds / 60.0)
	}

	m.AverageAmplitude = stat.Mean(amplitudes, nil)
	m.MaxAmplitude = amplitudes[0]
	m.MinAmplitude = amplitudes[0]
	for _, a := range amplitudes[1:] {
		m.MaxAmplitude = math.Max(m.MaxAmplitude, a)
		m.MinAmplitude = math.Min(m.MinAmplitude, a)
	}
	m.AmplitudeVariation = stat.StdDev(amplitudes, nil)
	m.AverageVelocity = stat.Mean(velocities, nil)
	m.IrregularityIndex = irregularityIndex(history)
	return m, true
}

// amplitudeSeries is the distance of each point from the running mean of all
// positions seen so far, matching the tracker's live amplitude estimate.
func amplitudeSeries(history []track.TrackedPoint) []float64 {
	out := make([]float64, len(history))
	var sumX, sumY float32
	for i, p := range history {
		if i > 0 {
			n := float32(i)
			out[i] = float64(math32.Hypot(p.Position.X-sumX/n, p.Position.Y-sumY/n))
		}
		sumX += p.Position.X
		sumY += p.Position.Y
	}
	return out
}

// countBreaths counts completed cycles: an inhaling label opens a cycle and
// the next exhaling label closes it. Phase labels are typed constants, so the
// comparison cannot drift from the classifier's vocabulary.
func countBreaths(history []track.TrackedPoint) int {
	count := 0
	inInhale := false
	for _, p := range history {
		switch p.Phase {
		case track.PhaseInhaling:
			inInhale = true
		case track.PhaseExhaling:
			if inInhale {
				count++
				inInhale = false
			}
		}
	}
	return count
}

// irregularityIndex is the coefficient of variation of the durations of
// consecutive same-phase segments. Unknown-phase samples are skipped; zero
// when fewer than two measurable segments exist.
func irregularityIndex(history []track.TrackedPoint) float64 {
	var durations []float64

	segPhase := track.PhaseUnknown
	var segStartMS, segEndMS int64
	flush := func() {
		if segPhase != track.PhaseUnknown && segEndMS > segStartMS {
			durations = append(durations, float64(segEndMS-segStartMS)/1000.0)
		}
	}

	for _, p := range history {
		if p.Phase == track.PhaseUnknown {
			continue
		}
		if p.Phase != segPhase {
			flush()
			segPhase = p.Phase
			segStartMS = p.TimestampMS
		}
		segEndMS = p.TimestampMS
	}
	flush()

	if len(durations) < 2 {
		return 0
	}
	mean := stat.Mean(durations, nil)
	if mean <= 0 {
		return 0
	}
	return stat.StdDev(durations, nil) / mean
}
