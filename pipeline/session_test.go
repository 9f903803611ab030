package pipeline

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/CDupuis7/go-respiration/analysis"
	"github.com/CDupuis7/go-respiration/detect"
	"github.com/CDupuis7/go-respiration/inference"
	"github.com/CDupuis7/go-respiration/track"
)

// newTestSession wires a session without a loaded model; the tensors are
// synthetic.
func newTestSession() *Session {
	info := inference.ModelInfo{InputWidth: 640, InputHeight: 640}
	return NewSession(info, DefaultConfig(), nil)
}

// frameTensor builds a single-box reduced-layout detection tensor.
func frameTensor(cx, cy, w, h, objectness, classScore float32) tensor.Tensor {
	return tensor.New(
		tensor.WithShape(1, 6),
		tensor.WithBacking([]float32{cx, cy, w, h, objectness, classScore}),
	)
}

// TestProcessFrameTracksSubject verifies the full stage chain on one frame:
// decode, suppression, chest extraction and tracker acquisition.
func TestProcessFrameTracksSubject(t *testing.T) {
	s := newTestSession()

	raw := frameTensor(0.5, 0.5, 0.2, 0.3, 0.9, 0.9)
	result := s.ProcessFrame(raw, 640, 640, detect.Rotate0, 0)

	require.True(t, result.Tracked)
	assert.InDelta(t, 0.81, result.Detection.Score, 1e-6)
	assert.InDelta(t, 256, result.Detection.Box.X1, 1e-3)
	assert.InDelta(t, 224, result.Detection.Box.Y1, 1e-3)

	// Chest band of a 192px-tall box: top at 224+28.8, height 76.8.
	assert.InDelta(t, 252.8, result.Region.Box.Y1, 1e-2)
	assert.InDelta(t, 329.6, result.Region.Box.Y2, 1e-2)
	assert.InDelta(t, 320, result.Region.Center.X, 1e-3)
	assert.InDelta(t, 291.2, result.Region.Center.Y, 1e-2)

	// No rotation: display box equals the sensor-space band.
	assert.Equal(t, result.Region.Box, result.DisplayBox)

	// First sample: tracker locked onto the chest center unsmoothed.
	assert.InDelta(t, 320, result.Point.Position.X, 1e-3)
	assert.InDelta(t, 291.2, result.Point.Position.Y, 1e-2)
	assert.True(t, result.Point.Locked)
	assert.Equal(t, track.PhaseUnknown, result.Phase)

	assert.Equal(t, uint64(1), s.metrics.FramesProcessed.Load())
	assert.Equal(t, uint64(1), s.metrics.FramesDetected.Load())
	assert.Equal(t, uint64(0), s.metrics.FramesMissed.Load())
}

// TestProcessFrameMissLeavesStateUntouched verifies that frames without an
// acceptable subject do not advance the tracker or the phase machine.
func TestProcessFrameMissLeavesStateUntouched(t *testing.T) {
	s := newTestSession()
	s.ProcessFrame(frameTensor(0.5, 0.5, 0.2, 0.3, 0.9, 0.9), 640, 640, detect.Rotate0, 0)
	require.Equal(t, 1, s.tracker.Len())

	// Confidence 0.04 is below even the relaxed floor.
	result := s.ProcessFrame(frameTensor(0.5, 0.5, 0.2, 0.3, 0.2, 0.2), 640, 640, detect.Rotate0, 100)

	assert.False(t, result.Tracked)
	assert.Equal(t, track.PhaseUnknown, result.Phase)
	assert.Equal(t, 1, s.tracker.Len(), "missed frames must not extend the history")
	assert.Equal(t, uint64(1), s.metrics.FramesMissed.Load())

	result = s.ProcessFrame(nil, 640, 640, detect.Rotate0, 200)
	assert.False(t, result.Tracked, "nil tensors are a miss, not a failure")
}

// TestProcessFrameRotationOnlyAffectsDisplay verifies that rotation changes
// the display box while tracking stays in sensor coordinates.
func TestProcessFrameRotationOnlyAffectsDisplay(t *testing.T) {
	s := newTestSession()
	raw := frameTensor(0.5, 0.5, 0.2, 0.3, 0.9, 0.9)

	result := s.ProcessFrame(raw, 640, 640, detect.Rotate180, 0)

	require.True(t, result.Tracked)
	expected := detect.MapToDisplay(result.Region.Box, detect.Rotate180, 640, 640)
	assert.Equal(t, expected, result.DisplayBox)
	assert.InDelta(t, 320, result.Point.Position.X, 1e-3,
		"tracking must run in sensor coordinates")
	assert.InDelta(t, 291.2, result.Point.Position.Y, 1e-2)
}

// TestSessionPhaseFlow drives the session with raw center points and checks
// that sustained downward motion resolves to exhaling and is counted as a
// transition.
func TestSessionPhaseFlow(t *testing.T) {
	s := newTestSession()

	_, phase := s.ProcessPoint(track.Point{X: 320, Y: 100}, 0)
	assert.Equal(t, track.PhaseUnknown, phase)

	_, phase = s.ProcessPoint(track.Point{X: 320, Y: 110}, 100)
	assert.Equal(t, track.PhaseExhaling, phase)
	assert.Equal(t, track.PhaseExhaling, s.Phase())
	assert.Equal(t, uint64(1), s.metrics.PhaseTransitions.Load())

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, track.PhaseExhaling, history[1].Phase, "samples carry their phase label")
}

// TestSessionMetricsAndClassify feeds a steady stream and verifies the
// aggregation and classification surface end to end.
func TestSessionMetricsAndClassify(t *testing.T) {
	s := newTestSession()

	_, ok := s.Metrics()
	assert.False(t, ok, "empty history reports no metrics")

	for i := 0; i < 12; i++ {
		s.ProcessPoint(track.Point{X: 320, Y: float32(240 + i%2)}, int64(i)*500)
	}

	m, ok := s.Metrics()
	require.True(t, ok)
	assert.InDelta(t, 5.5, m.DurationSeconds, 1e-9)

	result := s.Classify()
	assert.Contains(t, []analysis.Label{analysis.LabelNormal, analysis.LabelAbnormal}, result.Label)
	assert.Greater(t, result.Confidence, 0.0)
	assert.NotEmpty(t, result.Detail)
}

// TestSessionCalibration verifies the calibration surface: short batches are
// rejected, good batches rewire the phase thresholds, and a reset keeps them.
func TestSessionCalibration(t *testing.T) {
	s := newTestSession()

	assert.False(t, s.Calibrate([]float32{1, 2, 3}))

	samples := []float32{3, -5, 1, 6, -3, 2, -1, 5, -4, 4, -2}
	require.True(t, s.Calibrate(samples))
	calibrated := s.phase.Thresholds()
	assert.NotEqual(t, track.DefaultThresholds(), calibrated)

	s.ProcessPoint(track.Point{X: 320, Y: 240}, 0)
	s.Reset()

	assert.Equal(t, track.PhaseUnknown, s.Phase())
	assert.Equal(t, 0, s.tracker.Len())
	assert.Equal(t, calibrated, s.phase.Thresholds(), "reset keeps calibrated thresholds")
}

func TestCalibrateFromHistory(t *testing.T) {
	s := newTestSession()
	assert.False(t, s.CalibrateFromHistory(), "empty history cannot calibrate")

	for i := 0; i < 15; i++ {
		s.ProcessPoint(track.Point{X: 320, Y: float32(240 + 5*(i%3))}, int64(i)*100)
	}
	assert.True(t, s.CalibrateFromHistory())
}

// TestInstrumentationHandler scrapes the per-session metrics endpoint.
func TestInstrumentationHandler(t *testing.T) {
	s := newTestSession()
	s.ProcessFrame(frameTensor(0.5, 0.5, 0.2, 0.3, 0.9, 0.9), 640, 640, detect.Rotate0, 0)
	s.Metrics()

	rec := httptest.NewRecorder()
	s.Instrumentation().Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "respiration_frames_processed_total 1")
	assert.Contains(t, string(body), "respiration_breathing_rate")
}
