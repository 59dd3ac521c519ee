package filter

import (
	"image"
	"math"
)

// Quality thresholds below which Reduce applies the lossy passes.
const (
	ColorReductionThreshold = 0.6
	DitherThreshold         = 0.4
)

// Levels returns the number of buckets per channel for an encoding quality:
// max(2, floor(256*quality)).
func Levels(quality float64) int {
	levels := int(math.Floor(256 * quality))
	if levels < 2 {
		return 2
	}
	if levels > 256 {
		return 256
	}
	return levels
}

// ReduceColorDepth quantizes R, G and B to the given number of levels using
// value = floor(value/step)*step with step = 256/levels.
func ReduceColorDepth(img *image.NRGBA, levels int) {
	if levels < 2 {
		levels = 2
	}
	step := 256.0 / float64(levels)

	// Precompute the mapping; it only depends on the input byte.
	var table [256]uint8
	for v := 0; v < 256; v++ {
		table[v] = clampRound(math.Floor(float64(v)/step) * step)
	}

	forEachPixel(img, func(off int) {
		img.Pix[off] = table[img.Pix[off]]
		img.Pix[off+1] = table[img.Pix[off+1]]
		img.Pix[off+2] = table[img.Pix[off+2]]
	})
}

// FloydSteinberg thresholds every colour channel at 128 to 0 or 255 and diffuses
// the quantization error: 7/16 right, 3/16 bottom-left, 5/16 bottom, 1/16
// bottom-right. Pixels are visited top to bottom, left to right.
func FloydSteinberg(img *image.NRGBA) {
	bounds := img.Rect
	width := bounds.Dx()
	height := bounds.Dy()

	diffuse := func(x, y, c int, amount float64) {
		if x < 0 || x >= width || y >= height {
			return
		}
		off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y) + c
		img.Pix[off] = clampRound(float64(img.Pix[off]) + amount)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			for c := 0; c < 3; c++ {
				old := img.Pix[off+c]
				var next uint8
				if old >= 128 {
					next = 255
				}
				img.Pix[off+c] = next

				e := float64(int(old) - int(next))
				diffuse(x+1, y, c, e*7/16)
				diffuse(x-1, y+1, c, e*3/16)
				diffuse(x, y+1, c, e*5/16)
				diffuse(x+1, y+1, c, e*1/16)
			}
		}
	}
}

// Reduce applies the quality-driven lossy passes: colour-depth reduction below
// ColorReductionThreshold, then dithering below DitherThreshold.
func Reduce(img *image.NRGBA, quality float64) {
	if quality < ColorReductionThreshold {
		ReduceColorDepth(img, Levels(quality))
	}
	if quality < DitherThreshold {
		FloydSteinberg(img)
	}
}

func forEachPixel(img *image.NRGBA, fn func(off int)) {
	bounds := img.Rect
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		off := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			fn(off)
			off += 4
		}
	}
}
