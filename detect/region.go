package detect

// Chest band proportions relative to a subject bounding box (configurable for
// tuning). The band starts below the head and covers the upper torso, where
// respiratory displacement is strongest.
const (
	// ChestTopFraction is the offset of the band's top edge from the box top,
	// as a fraction of box height.
	ChestTopFraction = 0.15
	// ChestHeightFraction is the band height as a fraction of box height.
	ChestHeightFraction = 0.40
)

// Point is a 2-D position in pixel space.
type Point struct {
	X float32
	Y float32
}

// RegionOfInterest is the chest sub-rectangle derived from a subject
// detection, together with the center point fed to the motion tracker.
// One is produced per accepted detection per frame and owned transiently by
// the pipeline.
type RegionOfInterest struct {
	Box         Rect
	Center      Point
	Confidence  float32
	TimestampMS int64
}

// ChestRegion derives the chest band from a subject bounding box: top edge at
// 15% of the box height below the box top, band height 40% of box height,
// same horizontal extents. Pure function.
func ChestRegion(box Rect, confidence float32, timestampMS int64) RegionOfInterest {
	h := box.Height()
	band := Rect{
		X1: box.X1,
		Y1: box.Y1 + ChestTopFraction*h,
		X2: box.X2,
		Y2: box.Y1 + (ChestTopFraction+ChestHeightFraction)*h,
	}
	return RegionOfInterest{
		Box: band,
		Center: Point{
			X: (band.X1 + band.X2) / 2,
			Y: (band.Y1 + band.Y2) / 2,
		},
		Confidence:  confidence,
		TimestampMS: timestampMS,
	}
}
