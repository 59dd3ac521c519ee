package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-optimizer/internal/filter"
)

// Fit selects how a surface is fitted into a width x height box.
type Fit string

// Fit modes, named after the CDN parameters they mirror.
const (
	// FitCover fills the box and crops the overflow according to the gravity.
	FitCover Fit = "cover"
	// FitContain fits inside the box and pads the remainder with transparency.
	FitContain Fit = "contain"
	// FitFill stretches to the exact box, ignoring the aspect ratio.
	FitFill Fit = "fill"
	// FitInside fits inside the box without padding. Never upscales.
	FitInside Fit = "inside"
	// FitOutside scales so that both sides reach the box, without cropping.
	FitOutside Fit = "outside"
)

// GravityAuto picks the crop window with the most edge energy.
const GravityAuto = "auto"

// TransformOptions is the local rendition of a CDN transformation request.
type TransformOptions struct {
	Width     int
	Height    int
	Fit       Fit
	Gravity   string
	Blur      float64
	Sharpen   bool
	Grayscale bool
}

// Transform renders CDN-style options against a surface and returns a new surface.
// The source is not modified. Metadata is not carried over.
//
// When only one of Width or Height is set, the other is derived from the aspect
// ratio and Fit is ignored. With neither set the geometry is unchanged.
func Transform(src *Surface, opts TransformOptions) (*Surface, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("invalid transform size %dx%d", opts.Width, opts.Height)
	}
	if src.Width() == 0 || src.Height() == 0 {
		return nil, &EncodeError{Err: ErrEmptySurface}
	}

	out, err := fitSurface(src.img, opts)
	if err != nil {
		return nil, err
	}

	if opts.Blur > 0 {
		out = imaging.Clone(blur.Gaussian(out, opts.Blur))
	}
	if opts.Sharpen {
		filter.Sharpen(out)
	}
	if opts.Grayscale {
		toGrayscale(out)
	}

	s := SurfaceFromImage(out)
	s.SourceFormat = src.SourceFormat
	return s, nil
}

func fitSurface(img *image.NRGBA, opts TransformOptions) (*image.NRGBA, error) {
	w, h := opts.Width, opts.Height
	srcW, srcH := img.Rect.Dx(), img.Rect.Dy()

	if w == 0 && h == 0 {
		return imaging.Clone(img), nil
	}
	if w == 0 || h == 0 {
		return imaging.Resize(img, w, h, imaging.CatmullRom), nil
	}

	switch opts.Fit {
	case FitCover, "":
		return cover(img, w, h, opts.Gravity)
	case FitFill:
		return imaging.Resize(img, w, h, imaging.CatmullRom), nil
	case FitInside:
		return imaging.Fit(img, w, h, imaging.CatmullRom), nil
	case FitContain:
		fitted := imaging.Fit(img, w, h, imaging.CatmullRom)
		return imaging.PasteCenter(imaging.New(w, h, color.NRGBA{}), fitted), nil
	case FitOutside:
		scale := math.Max(float64(w)/float64(srcW), float64(h)/float64(srcH))
		return imaging.Resize(img, scaledSide(srcW, scale), scaledSide(srcH, scale), imaging.CatmullRom), nil
	default:
		return nil, fmt.Errorf("unknown fit mode: %s", opts.Fit)
	}
}

func cover(img *image.NRGBA, w, h int, gravity string) (*image.NRGBA, error) {
	if strings.EqualFold(gravity, GravityAuto) {
		srcW, srcH := img.Rect.Dx(), img.Rect.Dy()
		scale := math.Max(float64(w)/float64(srcW), float64(h)/float64(srcH))
		scaled := imaging.Resize(img, max(w, scaledSide(srcW, scale)), max(h, scaledSide(srcH, scale)), imaging.CatmullRom)
		return imaging.Crop(scaled, energyCrop(scaled, w, h)), nil
	}

	anchor, err := parseAnchor(gravity)
	if err != nil {
		return nil, err
	}
	return imaging.Fill(img, w, h, anchor, imaging.CatmullRom), nil
}

func scaledSide(side int, scale float64) int {
	return max(1, int(math.Round(float64(side)*scale)))
}

// parseAnchor maps compass and edge names ("north", "top_left", "south-east", ...)
// onto imaging anchors. An empty gravity centres the crop.
func parseAnchor(gravity string) (imaging.Anchor, error) {
	g := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(gravity)), "-", "_")
	switch g {
	case "", "center", "centre":
		return imaging.Center, nil
	case "north", "top", "n":
		return imaging.Top, nil
	case "south", "bottom", "s":
		return imaging.Bottom, nil
	case "east", "right", "e":
		return imaging.Right, nil
	case "west", "left", "w":
		return imaging.Left, nil
	case "north_east", "northeast", "top_right", "ne":
		return imaging.TopRight, nil
	case "north_west", "northwest", "top_left", "nw":
		return imaging.TopLeft, nil
	case "south_east", "southeast", "bottom_right", "se":
		return imaging.BottomRight, nil
	case "south_west", "southwest", "bottom_left", "sw":
		return imaging.BottomLeft, nil
	default:
		return imaging.Center, fmt.Errorf("unknown gravity: %s", gravity)
	}
}

// toGrayscale replaces the colour channels with luminance and keeps alpha.
func toGrayscale(img *image.NRGBA) {
	gray := effect.Grayscale(img)
	bounds := img.Rect
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			v := gray.GrayAt(gray.Rect.Min.X+x, gray.Rect.Min.Y+y).Y
			off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			img.Pix[off] = v
			img.Pix[off+1] = v
			img.Pix[off+2] = v
		}
	}
}
