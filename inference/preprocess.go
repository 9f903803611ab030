package inference

import (
	"image"

	"github.com/nfnt/resize"
)

// Preprocess converts an image into the CHW float32 tensor layout detection
// models expect: resized to width x height, RGB channel planes, pixel values
// scaled to [0, 1].
func Preprocess(img image.Image, width, height int) []float32 {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)

	data := make([]float32, 3*width*height)
	plane := width * height
	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[idx] = float32(r>>8) / 255.0
			data[plane+idx] = float32(g>>8) / 255.0
			data[2*plane+idx] = float32(b>>8) / 255.0
			idx++
		}
	}
	return data
}
