package filter

import (
	"image"
	"math"
)

// Kernel is a 3x3 convolution matrix. Divisor normalizes the weighted sum; a divisor
// of 0 or 1 leaves the sum as is.
type Kernel struct {
	Weights [3][3]int
	Divisor int
}

// NoiseReductionKernel is the Gaussian-like smoothing kernel used after aggressive
// downscaling.
var NoiseReductionKernel = Kernel{
	Weights: [3][3]int{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	},
	Divisor: 16,
}

// SharpenKernel boosts local contrast for small outputs.
var SharpenKernel = Kernel{
	Weights: [3][3]int{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	},
	Divisor: 1,
}

// NoiseReduction smooths the image with NoiseReductionKernel.
func NoiseReduction(img *image.NRGBA) {
	Convolve(img, NoiseReductionKernel)
}

// Sharpen applies SharpenKernel.
func Sharpen(img *image.NRGBA) {
	Convolve(img, SharpenKernel)
}

// Convolve applies k to the colour channels of every interior pixel.
//
// Images narrower or shorter than 3 pixels have no interior and are left unchanged.
func Convolve(img *image.NRGBA, k Kernel) {
	bounds := img.Rect
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 3 || height < 3 {
		return
	}

	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)

	divisor := float64(k.Divisor)
	if divisor == 0 {
		divisor = 1
	}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			dst := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			for c := 0; c < 3; c++ {
				sum := 0
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						w := k.Weights[ky+1][kx+1]
						if w == 0 {
							continue
						}
						off := img.PixOffset(bounds.Min.X+x+kx, bounds.Min.Y+y+ky)
						sum += int(src[off+c]) * w
					}
				}
				img.Pix[dst+c] = clampRound(float64(sum) / divisor)
			}
		}
	}
}

// clampRound stores v the way a clamped 8-bit buffer would.
func clampRound(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}
