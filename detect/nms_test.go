package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyGreedyNMS verifies the suppression contract: the result is a
// confidence-descending subset of the input, every surviving pair overlaps at
// or below the threshold, and the highest scoring box always survives.
func TestApplyGreedyNMS(t *testing.T) {
	tests := []struct {
		name       string
		detections []Detection
		config     *NMSConfig
		expected   []float32 // surviving scores, in order
	}{
		{
			name:       "empty input",
			detections: nil,
			expected:   nil,
		},
		{
			name: "single detection",
			detections: []Detection{
				{Box: Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.8},
			},
			expected: []float32{0.8},
		},
		{
			name: "heavy overlap keeps the stronger box",
			detections: []Detection{
				{Box: Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.6},
				{Box: Rect{X1: 5, Y1: 5, X2: 105, Y2: 105}, Score: 0.9},
			},
			expected: []float32{0.9},
		},
		{
			name: "disjoint boxes all survive sorted",
			detections: []Detection{
				{Box: Rect{X1: 0, Y1: 0, X2: 50, Y2: 50}, Score: 0.5},
				{Box: Rect{X1: 200, Y1: 200, X2: 250, Y2: 250}, Score: 0.7},
				{Box: Rect{X1: 400, Y1: 400, X2: 450, Y2: 450}, Score: 0.6},
			},
			expected: []float32{0.7, 0.6, 0.5},
		},
		{
			name: "overlap exactly at threshold survives",
			// IoU of these boxes is 1/3, kept when the threshold is 1/3.
			detections: []Detection{
				{Box: Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9},
				{Box: Rect{X1: 50, Y1: 0, X2: 150, Y2: 100}, Score: 0.8},
			},
			config:   &NMSConfig{IoUThreshold: 1.0 / 3.0},
			expected: []float32{0.9, 0.8},
		},
		{
			name: "class aware keeps overlapping boxes of other classes",
			detections: []Detection{
				{Box: Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 0},
				{Box: Rect{X1: 5, Y1: 5, X2: 105, Y2: 105}, Score: 0.8, Class: 1},
			},
			config:   &NMSConfig{IoUThreshold: 0.4, ClassAware: true},
			expected: []float32{0.9, 0.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyGreedyNMS(tt.detections, tt.config)
			require.Len(t, result, len(tt.expected))
			for i, score := range tt.expected {
				assert.InDelta(t, score, result[i].Score, 1e-6,
					"survivors should be ordered by descending confidence")
			}
		})
	}
}

// TestApplyGreedyNMSInvariants checks the structural properties on a larger
// mixed input: input untouched, output a subset, pairwise overlap bounded.
func TestApplyGreedyNMSInvariants(t *testing.T) {
	detections := []Detection{
		{Box: Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.6},
		{Box: Rect{X1: 10, Y1: 10, X2: 110, Y2: 110}, Score: 0.9},
		{Box: Rect{X1: 300, Y1: 300, X2: 400, Y2: 400}, Score: 0.7},
		{Box: Rect{X1: 305, Y1: 305, X2: 405, Y2: 405}, Score: 0.5},
		{Box: Rect{X1: 600, Y1: 0, X2: 700, Y2: 100}, Score: 0.4},
	}
	original := make([]Detection, len(detections))
	copy(original, detections)

	config := DefaultNMSConfig()
	result := ApplyGreedyNMS(detections, &config)

	assert.Equal(t, original, detections, "input slice must not be mutated")

	membership := make(map[Detection]bool, len(detections))
	for _, d := range detections {
		membership[d] = true
	}
	for _, d := range result {
		assert.True(t, membership[d], "every survivor must come from the input")
	}

	for i := range result {
		for j := i + 1; j < len(result); j++ {
			assert.LessOrEqual(t, CalculateIoU(result[i].Box, result[j].Box), config.IoUThreshold,
				"surviving boxes must not overlap above the threshold")
		}
		if i > 0 {
			assert.GreaterOrEqual(t, result[i-1].Score, result[i].Score)
		}
	}

	require.NotEmpty(t, result)
	assert.InDelta(t, 0.9, result[0].Score, 1e-6, "the strongest box always survives")
}
