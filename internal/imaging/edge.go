package imaging

import (
	"image"
	"math"
)

// energyCrop returns the width x height window of img that carries the most edge
// energy. The window only slides along the axis where img overflows the box, which
// is the case after a cover-style upscale.
//
// # Algorithm
//
//  1. Grayscale conversion with ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B)
//  2. Sobel gradient magnitude per pixel, borders clamped
//  3. Column (or row) energy sums
//  4. Sliding window maximum; ties keep the earliest (top/left-most) offset
func energyCrop(img *image.NRGBA, width, height int) image.Rectangle {
	bounds := img.Rect
	w := bounds.Dx()
	h := bounds.Dy()
	width = min(width, w)
	height = min(height, h)

	if w == width && h == height {
		return bounds
	}

	magnitude := sobelMagnitude(luminance(img), w, h)

	if w > width {
		cols := make([]float64, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cols[x] += magnitude[y][x]
			}
		}
		x := bestWindow(cols, width)
		y := (h - height) / 2
		return image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+width, bounds.Min.Y+y+height)
	}

	rows := make([]float64, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rows[y] += magnitude[y][x]
		}
	}
	y := bestWindow(rows, height)
	x := (w - width) / 2
	return image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+width, bounds.Min.Y+y+height)
}

// bestWindow returns the start offset of the size-long run of sums with the largest
// total.
func bestWindow(sums []float64, size int) int {
	var current float64
	for i := 0; i < size; i++ {
		current += sums[i]
	}
	best, bestStart := current, 0
	for start := 1; start+size <= len(sums); start++ {
		current += sums[start+size-1] - sums[start-1]
		if current > best {
			best, bestStart = current, start
		}
	}
	return bestStart
}

// luminance converts the image to a [0,1] grayscale grid.
func luminance(img *image.NRGBA) [][]float64 {
	bounds := img.Rect
	gray := make([][]float64, bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		gray[y] = make([]float64, bounds.Dx())
		off := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < bounds.Dx(); x++ {
			r := float64(img.Pix[off]) / 255.0
			g := float64(img.Pix[off+1]) / 255.0
			b := float64(img.Pix[off+2]) / 255.0
			gray[y][x] = 0.299*r + 0.587*g + 0.114*b
			off += 4
		}
	}
	return gray
}

// sobelMagnitude computes sqrt(Gx² + Gy²) with replicated borders.
func sobelMagnitude(gray [][]float64, width, height int) [][]float64 {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += gray[py][px] * sobelX[ky+1][kx+1]
					gy += gray[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return magnitude
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
