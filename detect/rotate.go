package detect

// Rotation is a display rotation in degrees clockwise.
type Rotation int

// Supported display rotations.
const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// MapToDisplay maps a rectangle from sensor space into a display space
// rotated clockwise by the given angle. width and height are the sensor
// dimensions. Pure coordinate transform; it carries no pipeline state and an
// unrecognized angle maps to the identity.
func MapToDisplay(r Rect, rotation Rotation, width, height int) Rect {
	w, h := float32(width), float32(height)
	switch rotation {
	case Rotate90:
		return Rect{X1: h - r.Y2, Y1: r.X1, X2: h - r.Y1, Y2: r.X2}
	case Rotate180:
		return Rect{X1: w - r.X2, Y1: h - r.Y2, X2: w - r.X1, Y2: h - r.Y1}
	case Rotate270:
		return Rect{X1: r.Y1, Y1: w - r.X2, X2: r.Y2, Y2: w - r.X1}
	default:
		return r
	}
}

// MapPointToDisplay maps a single point the same way as MapToDisplay.
func MapPointToDisplay(p Point, rotation Rotation, width, height int) Point {
	w, h := float32(width), float32(height)
	switch rotation {
	case Rotate90:
		return Point{X: h - p.Y, Y: p.X}
	case Rotate180:
		return Point{X: w - p.X, Y: h - p.Y}
	case Rotate270:
		return Point{X: p.Y, Y: w - p.X}
	default:
		return p
	}
}
