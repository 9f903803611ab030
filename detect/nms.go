package detect

import "sort"

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which a box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware suppresses only within the same class when true.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns the standard suppression settings.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: 0.4}
}

// ApplyGreedyNMS filters overlapping detections using greedy Non-Maximum
// Suppression.
//
// Detections are sorted by descending confidence, then each candidate is
// accepted only if its IoU with every already-accepted box stays at or below
// the threshold. O(n²) over the surviving candidates, which is acceptable
// because inputs are pre-filtered by confidence upstream.
//
// Arguments:
//   - detections: Candidate boxes in any order. The input slice is not mutated.
//   - config: Suppression configuration; nil uses DefaultNMSConfig.
//
// Returns:
//   - Accepted boxes in confidence-descending order, nil for empty input.
func ApplyGreedyNMS(detections []Detection, config *NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}
	defaults := DefaultNMSConfig()
	if config == nil {
		config = &defaults
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	filtered := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.Class != sorted[j].Class {
				continue
			}
			if CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
