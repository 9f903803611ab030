// Package detect - Decoding and filtering of raw detection output into
// calibrated bounding boxes.
package detect

// Rect is a lightweight axis-aligned bounding box in pixel space.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float32 { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float32 { return r.Y2 - r.Y1 }

// Area returns the surface of the rectangle, zero for degenerate boxes.
func (r Rect) Area() float32 {
	w, h := r.Width(), r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Detection is a scored bounding box produced per frame. It is immutable and
// discarded after Non-Max Suppression.
type Detection struct {
	// The bounding box of the detection in pixel coordinates.
	Box Rect
	// The confidence score of the detection in [0, 1].
	Score float32
	// The predicted class index of the detection.
	Class int
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
// IoU = Area of Intersection / Area of Union
//
// The intersection corners are the maximum of the top-left corners and the
// minimum of the bottom-right corners; a non-positive width or height means
// the rectangles do not overlap and the score is 0. The union follows the
// inclusion-exclusion principle: Area(A) + Area(B) - Area(A∩B).
//
// Returns a value in [0, 1]: 0 for disjoint rectangles, 1 for identical
// non-degenerate rectangles.
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return interArea / unionArea
}
