package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createStripeImage creates a flat gray image with a black/white checkerboard
// band covering columns [from, to).
func createStripeImage(width, height, from, to int) *image.NRGBA {
	img := createInMemoryImage(width, height, color.NRGBA{128, 128, 128, 255})
	for y := 0; y < height; y++ {
		for x := from; x < to; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func TestEnergyCrop_FollowsDetail(t *testing.T) {
	img := createStripeImage(300, 100, 200, 260)

	rect := energyCrop(img, 100, 100)

	if rect.Dx() != 100 || rect.Dy() != 100 {
		t.Fatalf("window size: got %dx%d, want 100x100", rect.Dx(), rect.Dy())
	}
	if rect.Min.X > 200 || rect.Max.X < 260 {
		t.Errorf("window %v does not cover the detailed band [200,260)", rect)
	}
}

func TestEnergyCrop_Vertical(t *testing.T) {
	// Transpose the stripe: detail in rows [20, 50).
	img := createInMemoryImage(60, 240, color.NRGBA{128, 128, 128, 255})
	for y := 20; y < 50; y++ {
		for x := 0; x < 60; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			}
		}
	}

	rect := energyCrop(img, 60, 60)

	if rect.Min.X != 0 || rect.Dx() != 60 || rect.Dy() != 60 {
		t.Fatalf("window: got %v, want 60x60 at x=0", rect)
	}
	if rect.Min.Y > 20 || rect.Max.Y < 50 {
		t.Errorf("window %v does not cover the detailed band [20,50)", rect)
	}
}

func TestEnergyCrop_FlatImageKeepsTopLeft(t *testing.T) {
	img := createInMemoryImage(200, 50, color.NRGBA{90, 90, 90, 255})

	rect := energyCrop(img, 50, 50)

	if rect != image.Rect(0, 0, 50, 50) {
		t.Errorf("window: got %v, want (0,0)-(50,50)", rect)
	}
}

func TestEnergyCrop_ExactSize(t *testing.T) {
	img := createPatternImage(40, 30)

	if rect := energyCrop(img, 40, 30); rect != img.Rect {
		t.Errorf("window: got %v, want %v", rect, img.Rect)
	}
}

func TestBestWindow(t *testing.T) {
	tests := []struct {
		name string
		sums []float64
		size int
		want int
	}{
		{"peak in middle", []float64{1, 2, 3, 10, 1}, 2, 2},
		{"ties keep earliest", []float64{5, 5, 5}, 1, 0},
		{"whole range", []float64{1, 2, 3}, 3, 0},
		{"peak at end", []float64{0, 0, 0, 1, 9}, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestWindow(tt.sums, tt.size); got != tt.want {
				t.Errorf("bestWindow = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSobelMagnitude(t *testing.T) {
	// Vertical step edge between columns 1 and 2.
	gray := [][]float64{
		{0, 0, 1, 1},
		{0, 0, 1, 1},
		{0, 0, 1, 1},
	}
	mag := sobelMagnitude(gray, 4, 3)

	if mag[1][0] != 0 {
		t.Errorf("flat region magnitude: got %v, want 0", mag[1][0])
	}
	if math.Abs(mag[1][1]-4) > 1e-9 {
		t.Errorf("edge magnitude: got %v, want 4", mag[1][1])
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
