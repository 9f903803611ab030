package analysis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CDupuis7/go-respiration/track"
)

// sampleSession builds a session carrying only the fields the interchange
// format preserves, so a round trip reproduces it exactly.
func sampleSession() *Session {
	return &Session{
		Patient: PatientInfo{
			ID:           "P001",
			Age:          34,
			Gender:       "F",
			HealthStatus: "healthy",
		},
		Metrics: Metrics{
			BreathingRate:    14.25,
			AverageAmplitude: 3.5,
			MaxAmplitude:     8.75,
			MinAmplitude:     0.25,
			BreathCount:      7,
			DurationSeconds:  30.5,
		},
		Points: []track.TrackedPoint{
			{
				Position:    track.Point{X: 320.5, Y: 240.25},
				TimestampMS: 0,
				Phase:       track.PhaseUnknown,
			},
			{
				Position:         track.Point{X: 320.5, Y: 238.5},
				TimestampMS:      100,
				Velocity:         track.Point{Y: -17.5},
				VerticalVelocity: -17.5,
				Amplitude:        1.75,
				Phase:            track.PhaseInhaling,
			},
			{
				Position:         track.Point{X: 320.5, Y: 241.5},
				TimestampMS:      200,
				Velocity:         track.Point{Y: 30},
				VerticalVelocity: 30,
				Amplitude:        2.25,
				Phase:            track.PhaseExhaling,
			},
		},
	}
}

// TestSessionRoundTrip verifies that a written session reads back
// identically: subject, summary metrics and every point row.
func TestSessionRoundTrip(t *testing.T) {
	want := sampleSession()

	var buf bytes.Buffer
	require.NoError(t, WriteSession(&buf, want))

	got, err := ReadSession(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteSessionFormat pins the interchange header and row layout shared
// with the mobile exporter.
func TestWriteSessionFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSession(&buf, sampleSession()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Respiratory Data Export\n"))
	assert.Contains(t, out, "ID: P001\n")
	assert.Contains(t, out, "Age: 34\n")
	assert.Contains(t, out, "Total Duration: 30.50 seconds\n")
	assert.Contains(t, out, "Breathing Rate: 14.25 breaths/minute\n")
	assert.Contains(t, out, "Total Breaths: 7\n")
	assert.Contains(t, out, "timestamp,x,y,amplitude,velocity,breathing_phase\n")
	assert.Contains(t, out, "100,320.5000,238.5000,1.7500,-17.5000,inhaling\n")
}

func TestReadSessionSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"Respiratory Data Export",
		"ID: P002",
		"Unknown Header: ignored",
		"",
		"timestamp,x,y,amplitude,velocity,breathing_phase",
		"not-a-timestamp,1,2,3,4,pause",
		"100,320.0000,240.0000,1.0000,2.0000,exhaling",
	}, "\n")

	s, err := ReadSession(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "P002", s.Patient.ID)
	require.Len(t, s.Points, 1)
	assert.Equal(t, int64(100), s.Points[0].TimestampMS)
	assert.Equal(t, track.PhaseExhaling, s.Points[0].Phase)
}

func TestReadSessionMissingDataSection(t *testing.T) {
	input := "Respiratory Data Export\nID: P003\n"
	_, err := ReadSession(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data section not found")
}
