package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestChestRegion verifies the chest band geometry: top edge at 15% of the
// box height, band covering the next 40%, horizontal extents unchanged, and
// the center landing mid-band.
func TestChestRegion(t *testing.T) {
	tests := []struct {
		name           string
		box            Rect
		expectedBand   Rect
		expectedCenter Point
	}{
		{
			name:           "standing subject",
			box:            Rect{X1: 100, Y1: 100, X2: 200, Y2: 300},
			expectedBand:   Rect{X1: 100, Y1: 130, X2: 200, Y2: 210},
			expectedCenter: Point{X: 150, Y: 170},
		},
		{
			name:           "origin box",
			box:            Rect{X1: 0, Y1: 0, X2: 400, Y2: 1000},
			expectedBand:   Rect{X1: 0, Y1: 150, X2: 400, Y2: 550},
			expectedCenter: Point{X: 200, Y: 350},
		},
		{
			name:           "degenerate zero-height box",
			box:            Rect{X1: 50, Y1: 80, X2: 150, Y2: 80},
			expectedBand:   Rect{X1: 50, Y1: 80, X2: 150, Y2: 80},
			expectedCenter: Point{X: 100, Y: 80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roi := ChestRegion(tt.box, 0.85, 1234)

			assert.InDelta(t, tt.expectedBand.X1, roi.Box.X1, 1e-3)
			assert.InDelta(t, tt.expectedBand.Y1, roi.Box.Y1, 1e-3)
			assert.InDelta(t, tt.expectedBand.X2, roi.Box.X2, 1e-3)
			assert.InDelta(t, tt.expectedBand.Y2, roi.Box.Y2, 1e-3)
			assert.InDelta(t, tt.expectedCenter.X, roi.Center.X, 1e-3)
			assert.InDelta(t, tt.expectedCenter.Y, roi.Center.Y, 1e-3)
			assert.Equal(t, float32(0.85), roi.Confidence)
			assert.Equal(t, int64(1234), roi.TimestampMS)
		})
	}
}

// TestMapToDisplay checks the rotation transforms against hand-computed
// coordinates and confirms that four quarter turns compose to the identity.
func TestMapToDisplay(t *testing.T) {
	r := Rect{X1: 10, Y1: 20, X2: 110, Y2: 70}
	const width, height = 640, 480

	tests := []struct {
		name     string
		rotation Rotation
		expected Rect
	}{
		{name: "identity", rotation: Rotate0, expected: r},
		{name: "quarter turn", rotation: Rotate90, expected: Rect{X1: 410, Y1: 10, X2: 460, Y2: 110}},
		{name: "half turn", rotation: Rotate180, expected: Rect{X1: 530, Y1: 410, X2: 630, Y2: 460}},
		{name: "three quarter turn", rotation: Rotate270, expected: Rect{X1: 20, Y1: 530, X2: 70, Y2: 630}},
		{name: "unrecognized angle", rotation: Rotation(45), expected: r},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapToDisplay(r, tt.rotation, width, height))
		})
	}
}

func TestMapPointToDisplay(t *testing.T) {
	p := Point{X: 100, Y: 50}

	assert.Equal(t, p, MapPointToDisplay(p, Rotate0, 640, 480))
	assert.Equal(t, Point{X: 430, Y: 100}, MapPointToDisplay(p, Rotate90, 640, 480))
	assert.Equal(t, Point{X: 540, Y: 430}, MapPointToDisplay(p, Rotate180, 640, 480))
	assert.Equal(t, Point{X: 50, Y: 540}, MapPointToDisplay(p, Rotate270, 640, 480))
}
