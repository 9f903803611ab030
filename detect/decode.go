package detect

import (
	"gorgonia.org/tensor"
)

// Layout identifies the wire format of a raw detection tensor. The layout is
// classified once from the tensor shape, then decoding dispatches to a pure
// per-variant function.
type Layout int

const (
	// LayoutUnknown is an unrecognized tensor shape. Decoding yields no boxes.
	LayoutUnknown Layout = iota
	// LayoutGrid84 is the channels-first [84][N] grid where channels 0-3 are
	// normalized cx, cy, w, h and channel 4 is the target class score.
	LayoutGrid84
	// LayoutRow85 is the row-per-box [N][85] format where column 4 is
	// objectness and column 5 the class score.
	LayoutRow85
	// LayoutRow6 is the reduced row-per-box [N][6] format of
	// [cx, cy, w, h, objectness, class_score]. Raw scores from this layout are
	// known to run low, so it is decoded with a reduced acceptance threshold.
	LayoutRow6
)

// String returns a short name for the layout.
func (l Layout) String() string {
	switch l {
	case LayoutGrid84:
		return "grid84"
	case LayoutRow85:
		return "row85"
	case LayoutRow6:
		return "row6"
	default:
		return "unknown"
	}
}

const (
	grid84Channels = 84
	row85Columns   = 85
	row6Columns    = 6
)

// DecoderConfig holds the acceptance thresholds for tensor decoding. The
// defaults are empirically tuned; treat them as configuration, not truths.
type DecoderConfig struct {
	// ScoreThreshold is the minimum confidence for the full-size layouts.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// ReducedScoreThreshold is the minimum confidence for LayoutRow6.
	ReducedScoreThreshold float32 `json:"reduced_score_threshold" yaml:"reduced_score_threshold"`
	// TargetClass is the class index assigned to decoded boxes.
	TargetClass int `json:"target_class" yaml:"target_class"`
}

// DefaultDecoderConfig returns the decoder defaults: the standard 0.3
// confidence floor and the relaxed 0.1 floor for the reduced layout.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		ScoreThreshold:        0.3,
		ReducedScoreThreshold: 0.1,
		TargetClass:           0,
	}
}

// ClassifyLayout inspects a tensor shape and picks the decode variant.
// Leading batch dimensions of size 1 are ignored.
func ClassifyLayout(shape tensor.Shape) Layout {
	dims := squeezeLeading(shape)
	if len(dims) != 2 {
		return LayoutUnknown
	}
	switch {
	case dims[0] == grid84Channels:
		return LayoutGrid84
	case dims[1] == row85Columns:
		return LayoutRow85
	case dims[1] == row6Columns:
		return LayoutRow6
	default:
		return LayoutUnknown
	}
}

// squeezeLeading drops size-1 batch dimensions while more than two remain.
func squeezeLeading(shape tensor.Shape) []int {
	dims := []int(shape)
	for len(dims) > 2 && dims[0] == 1 {
		dims = dims[1:]
	}
	return dims
}

// Decode converts a raw detection tensor into pixel-space detections.
//
// The tensor layout is classified from its shape; unrecognized shapes or
// non-float32 backing decode to an empty list rather than an error, so the
// detection stage stays a total function. Normalized center/size coordinates
// are scaled by the original image width and height and converted to corners.
//
// Arguments:
//   - t: The raw output tensor of the detection model.
//   - width, height: Original image dimensions in pixels.
//   - cfg: Acceptance thresholds; nil uses DefaultDecoderConfig.
//
// Returns:
//   - Detections passing the layout's confidence threshold. Never nil-panics,
//     never errors.
func Decode(t tensor.Tensor, width, height int, cfg *DecoderConfig) []Detection {
	if t == nil || width <= 0 || height <= 0 {
		return nil
	}
	defaults := DefaultDecoderConfig()
	if cfg == nil {
		cfg = &defaults
	}
	raw, ok := t.Data().([]float32)
	if !ok {
		return nil
	}

	dims := squeezeLeading(t.Shape())
	switch ClassifyLayout(t.Shape()) {
	case LayoutGrid84:
		return decodeGrid84(raw, dims[1], width, height, cfg)
	case LayoutRow85:
		return decodeRow85(raw, dims[0], width, height, cfg)
	case LayoutRow6:
		return decodeRow6(raw, dims[0], width, height, cfg)
	default:
		return nil
	}
}

// decodeGrid84 reads the channels-first grid: value(channel, box) lives at
// raw[channel*n + box]. Channel 4 carries the target class score directly.
func decodeGrid84(raw []float32, n, width, height int, cfg *DecoderConfig) []Detection {
	if len(raw) < grid84Channels*n {
		return nil
	}
	detections := make([]Detection, 0, 16)
	for i := 0; i < n; i++ {
		score := raw[4*n+i]
		if score < cfg.ScoreThreshold {
			continue
		}
		box := centerToCorners(raw[0*n+i], raw[1*n+i], raw[2*n+i], raw[3*n+i], width, height)
		detections = append(detections, Detection{Box: box, Score: score, Class: cfg.TargetClass})
	}
	return detections
}

// decodeRow85 reads one box per row. Column 4 is objectness, column 5 the
// class score; the final confidence is their product.
func decodeRow85(raw []float32, n, width, height int, cfg *DecoderConfig) []Detection {
	if len(raw) < row85Columns*n {
		return nil
	}
	detections := make([]Detection, 0, 16)
	for i := 0; i < n; i++ {
		offset := i * row85Columns
		score := raw[offset+4] * raw[offset+5]
		if score < cfg.ScoreThreshold {
			continue
		}
		box := centerToCorners(raw[offset+0], raw[offset+1], raw[offset+2], raw[offset+3], width, height)
		detections = append(detections, Detection{Box: box, Score: score, Class: cfg.TargetClass})
	}
	return detections
}

// decodeRow6 reads the reduced [cx, cy, w, h, objectness, class_score] rows.
// Uses the relaxed threshold and additionally drops boxes that leave the
// image bounds, since this layout tends to emit unstable geometry.
func decodeRow6(raw []float32, n, width, height int, cfg *DecoderConfig) []Detection {
	if len(raw) < row6Columns*n {
		return nil
	}
	detections := make([]Detection, 0, 16)
	for i := 0; i < n; i++ {
		offset := i * row6Columns
		score := raw[offset+4] * raw[offset+5]
		if score < cfg.ReducedScoreThreshold {
			continue
		}
		box := centerToCorners(raw[offset+0], raw[offset+1], raw[offset+2], raw[offset+3], width, height)
		if box.X1 < 0 || box.Y1 < 0 || box.X2 > float32(width) || box.Y2 > float32(height) {
			continue
		}
		detections = append(detections, Detection{Box: box, Score: score, Class: cfg.TargetClass})
	}
	return detections
}

// centerToCorners scales a normalized center/size box to pixel corners.
func centerToCorners(cx, cy, w, h float32, width, height int) Rect {
	fw, fh := float32(width), float32(height)
	return Rect{
		X1: (cx - w/2) * fw,
		Y1: (cy - h/2) * fh,
		X2: (cx + w/2) * fw,
		Y2: (cy + h/2) * fh,
	}
}
