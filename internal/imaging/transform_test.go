package imaging

import (
	"image/color"
	"testing"
)

func TestTransform_FitModes(t *testing.T) {
	src := SurfaceFromImage(createPatternImage(200, 100))

	tests := []struct {
		name       string
		opts       TransformOptions
		wantWidth  int
		wantHeight int
	}{
		{"cover", TransformOptions{Width: 50, Height: 50, Fit: FitCover}, 50, 50},
		{"default is cover", TransformOptions{Width: 50, Height: 50}, 50, 50},
		{"contain pads", TransformOptions{Width: 50, Height: 50, Fit: FitContain}, 50, 50},
		{"fill stretches", TransformOptions{Width: 30, Height: 90, Fit: FitFill}, 30, 90},
		{"inside keeps aspect", TransformOptions{Width: 50, Height: 50, Fit: FitInside}, 50, 25},
		{"outside covers both sides", TransformOptions{Width: 50, Height: 50, Fit: FitOutside}, 100, 50},
		{"width only", TransformOptions{Width: 100}, 100, 50},
		{"height only", TransformOptions{Height: 25}, 50, 25},
		{"no geometry", TransformOptions{}, 200, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transform(src, tt.opts)
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if out.Width() != tt.wantWidth || out.Height() != tt.wantHeight {
				t.Errorf("dimensions: got %dx%d, want %dx%d", out.Width(), out.Height(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestTransform_InsideNeverUpscales(t *testing.T) {
	src := SurfaceFromImage(createPatternImage(20, 10))

	out, err := Transform(src, TransformOptions{Width: 200, Height: 200, Fit: FitInside})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.Width() != 20 || out.Height() != 10 {
		t.Errorf("dimensions: got %dx%d, want 20x10", out.Width(), out.Height())
	}
}

func TestTransform_ContainIsTransparentOutside(t *testing.T) {
	src := SurfaceFromImage(createInMemoryImage(200, 100, color.NRGBA{255, 0, 0, 255}))

	out, err := Transform(src, TransformOptions{Width: 50, Height: 50, Fit: FitContain})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if a := out.Image().NRGBAAt(25, 0).A; a != 0 {
		t.Errorf("padding alpha: got %d, want 0", a)
	}
	if c := out.Image().NRGBAAt(25, 25); c.A != 255 || c.R < 250 {
		t.Errorf("centre pixel: got %v, want opaque red", c)
	}
}

func TestTransform_Gravity(t *testing.T) {
	// Tall image: top half red/green, bottom half blue/white.
	src := SurfaceFromImage(createPatternImage(100, 200))

	tests := []struct {
		gravity string
		want    color.NRGBA
	}{
		{"north", color.NRGBA{255, 0, 0, 255}},
		{"top", color.NRGBA{255, 0, 0, 255}},
		{"south", color.NRGBA{0, 0, 255, 255}},
		{"south-east", color.NRGBA{0, 0, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.gravity, func(t *testing.T) {
			out, err := Transform(src, TransformOptions{Width: 100, Height: 100, Fit: FitCover, Gravity: tt.gravity})
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			got := out.Image().NRGBAAt(10, 50)
			if absDelta(got.R, tt.want.R) > 8 || absDelta(got.G, tt.want.G) > 8 || absDelta(got.B, tt.want.B) > 8 {
				t.Errorf("pixel (10,50): got %v, want ~%v", got, tt.want)
			}
		})
	}
}

func TestTransform_AutoGravity(t *testing.T) {
	src := SurfaceFromImage(createPatternImage(300, 100))

	out, err := Transform(src, TransformOptions{Width: 80, Height: 80, Gravity: GravityAuto})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.Width() != 80 || out.Height() != 80 {
		t.Errorf("dimensions: got %dx%d, want 80x80", out.Width(), out.Height())
	}
}

func TestTransform_Errors(t *testing.T) {
	src := SurfaceFromImage(createPatternImage(20, 20))

	tests := []struct {
		name string
		opts TransformOptions
	}{
		{"negative width", TransformOptions{Width: -1, Height: 10}},
		{"unknown fit", TransformOptions{Width: 10, Height: 10, Fit: "squash"}},
		{"unknown gravity", TransformOptions{Width: 10, Height: 5, Gravity: "upward"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Transform(src, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Transform(NewSurface(0, 0), TransformOptions{Width: 10}); err == nil {
		t.Error("expected error for empty surface")
	}
}

func TestTransform_Grayscale(t *testing.T) {
	img := createPatternImage(20, 20)
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 128})
	src := SurfaceFromImage(img)

	out, err := Transform(src, TransformOptions{Grayscale: true})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	pix := out.Pixels()
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != pix[i+1] || pix[i+1] != pix[i+2] {
			t.Fatalf("pixel at byte %d is not gray: %v", i, pix[i:i+4])
		}
	}
	if a := out.Image().NRGBAAt(0, 0).A; a != 128 {
		t.Errorf("alpha: got %d, want 128", a)
	}
}

func TestTransform_BlurSoftensEdges(t *testing.T) {
	src := SurfaceFromImage(createPatternImage(40, 40))

	out, err := Transform(src, TransformOptions{Blur: 3})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// Right next to the red/green boundary the blurred pixel is a mix of both.
	got := out.Image().NRGBAAt(19, 5)
	if got.R == 255 || got.G == 0 {
		t.Errorf("pixel (19,5) should be blended, got %v", got)
	}
}

func TestTransform_DoesNotModifySource(t *testing.T) {
	src := SurfaceFromImage(createPatternImage(40, 40))
	before := append([]uint8(nil), src.Pixels()...)

	if _, err := Transform(src, TransformOptions{Width: 20, Height: 20, Sharpen: true, Grayscale: true, Blur: 1}); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	for i := range before {
		if before[i] != src.Pixels()[i] {
			t.Fatal("Transform modified the source surface")
		}
	}
}

func TestParseAnchor(t *testing.T) {
	valid := []string{"", "center", "North", "south_west", "top-left", "ne", "bottom_right"}
	for _, g := range valid {
		if _, err := parseAnchor(g); err != nil {
			t.Errorf("parseAnchor(%q) failed: %v", g, err)
		}
	}
	if _, err := parseAnchor("sideways"); err == nil {
		t.Error("parseAnchor should reject unknown gravity")
	}
}

func absDelta(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
