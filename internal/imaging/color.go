package imaging

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// DominantColor returns the most common colour of an image as "#rrggbb".
//
// Pixels are grouped by quantizing each channel to 16 levels (value/16*16), which
// merges near-identical shades. The winning bucket is then averaged in linear RGB so
// the result is a real colour from the image rather than the bucket's corner.
// Fully transparent pixels are ignored. Returns an empty string when no opaque
// pixel exists.
//
// The result is meant as a placeholder background while the real image loads.
func DominantColor(img *image.NRGBA) string {
	type bucket struct {
		count   int
		r, g, b float64
	}

	buckets := make(map[uint32]*bucket)
	var best *bucket

	bounds := img.Rect
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		off := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.Pix[off : off+4 : off+4]
			off += 4
			if px[3] == 0 {
				continue
			}

			key := uint32(px[0]/16)<<8 | uint32(px[1]/16)<<4 | uint32(px[2]/16)
			bk, ok := buckets[key]
			if !ok {
				bk = &bucket{}
				buckets[key] = bk
			}

			c := colorful.Color{R: float64(px[0]) / 255, G: float64(px[1]) / 255, B: float64(px[2]) / 255}
			lr, lg, lb := c.LinearRgb()
			bk.r += lr
			bk.g += lg
			bk.b += lb
			bk.count++

			if best == nil || bk.count > best.count {
				best = bk
			}
		}
	}

	if best == nil {
		return ""
	}

	n := float64(best.count)
	return colorful.LinearRgb(best.r/n, best.g/n, best.b/n).Clamped().Hex()
}
