package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultMaxPixels caps the declared pixel count Decode accepts when
// DecodeOptions.MaxPixels is zero (about 400 MB of RGBA).
const DefaultMaxPixels = 100_000_000

// ErrTooManyPixels is wrapped by DecodeError when the declared dimensions exceed
// the pixel limit.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// ErrEmptySurface is wrapped by EncodeError when asked to encode a zero-area surface.
var ErrEmptySurface = errors.New("surface has zero area")

// DecodeOptions controls how input bytes are turned into a surface.
type DecodeOptions struct {
	// PreserveMetadata keeps the EXIF orientation untouched (the tag travels with the
	// output instead). When false, orientation is baked into the pixels.
	PreserveMetadata bool

	// MaxPixels rejects input whose header declares more than width*height pixels,
	// before any pixel memory is allocated. 0 means DefaultMaxPixels.
	MaxPixels int
}

// EncodeOptions controls output encoding.
type EncodeOptions struct {
	// Quality in [0,1]. Mapped to the encoder's 1-100 scale. Ignored for PNG.
	Quality float64

	// Progressive requests an interlaced/progressive bitstream where the encoder
	// supports one.
	Progressive bool

	// Exif is an APP1 segment to embed. Only honored for JPEG output.
	Exif []byte
}

// Engine is the raster surface contract used by the optimizer and the workers.
//
// Implementations must be deterministic: the same input and options always produce
// the same bytes.
type Engine interface {
	Decode(data []byte, opts DecodeOptions) (*Surface, error)
	Resize(src *Surface, width, height int) (*Surface, error)
	Draw(src *Surface, region image.Rectangle, width, height int) (*Surface, error)
	Encode(s *Surface, format Format, opts EncodeOptions) ([]byte, error)
}

// Codec is the Engine backed by disintegration/imaging and chai2010/webp.
//
// A Codec holds no mutable state; workers still get their own instance so that no
// two execution contexts share one.
type Codec struct{}

// NewCodec returns a ready to use Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode parses PNG, JPEG, GIF, BMP, TIFF or WebP bytes into a surface.
//
// Returns *DecodeError for empty, truncated or unrecognized input.
func (c *Codec) Decode(data []byte, opts DecodeOptions) (*Surface, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty input")}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	limit := opts.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(limit) {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %dx%d declared, limit %d", ErrTooManyPixels, cfg.Width, cfg.Height, limit)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(!opts.PreserveMetadata))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	s := SurfaceFromImage(imaging.Clone(img))
	s.SourceFormat = format
	if format == "jpeg" {
		s.Exif = extractExif(data)
	}
	return s, nil
}

// Resize resamples the whole surface to width x height using Catmull-Rom (bicubic)
// interpolation. A same-size request returns a copy.
func (c *Codec) Resize(src *Surface, width, height int) (*Surface, error) {
	return c.Draw(src, image.Rect(0, 0, src.Width(), src.Height()), width, height)
}

// Draw resamples region of src into a new width x height surface.
//
// The region is clipped to the source bounds; an empty intersection is an error.
func (c *Codec) Draw(src *Surface, region image.Rectangle, width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, &EncodeError{Format: "", Err: ErrEmptySurface}
	}
	region = region.Intersect(src.img.Rect)
	if region.Empty() {
		return nil, &EncodeError{Format: "", Err: ErrEmptySurface}
	}

	full := region == src.img.Rect
	if full && width == src.Width() && height == src.Height() {
		return src.Clone(), nil
	}

	var cropped image.Image = src.img
	if !full {
		cropped = imaging.Crop(src.img, region)
	}
	resized := imaging.Resize(cropped, width, height, imaging.CatmullRom)

	out := SurfaceFromImage(resized)
	out.SourceFormat = src.SourceFormat
	out.Exif = src.Exif
	return out, nil
}

// Encode writes the surface in the requested format.
//
// Returns *EncodeError for zero-area surfaces, unknown formats and encoder failures.
func (c *Codec) Encode(s *Surface, format Format, opts EncodeOptions) ([]byte, error) {
	if s == nil || s.Width() == 0 || s.Height() == 0 {
		return nil, &EncodeError{Format: format, Err: ErrEmptySurface}
	}

	quality := qualityPercent(opts.Quality)
	var buf bytes.Buffer

	switch format {
	case WebP:
		if err := webp.Encode(&buf, s.img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, &EncodeError{Format: format, Err: err}
		}
	case JPEG:
		if opts.Progressive {
			out, err := encodeProgressiveJPEG(s.img, quality)
			if err == nil {
				return withExif(out, opts.Exif), nil
			}
			// Fall through to a baseline stream when no progressive encoder is built in.
		}
		if err := imaging.Encode(&buf, s.img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, &EncodeError{Format: format, Err: err}
		}
		return withExif(buf.Bytes(), opts.Exif), nil
	case PNG:
		if err := imaging.Encode(&buf, s.img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, &EncodeError{Format: format, Err: err}
		}
	case AVIF:
		out, err := encodeAVIF(s.img, quality, opts.Progressive)
		if err != nil {
			return nil, &EncodeError{Format: format, Err: err}
		}
		return out, nil
	default:
		return nil, &EncodeError{Format: format, Err: errors.New("unsupported output format")}
	}

	return buf.Bytes(), nil
}

// qualityPercent maps [0,1] onto the 1-100 scale encoders expect.
func qualityPercent(q float64) int {
	p := int(math.Round(q * 100))
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}

func withExif(jpegData, exif []byte) []byte {
	if len(exif) == 0 {
		return jpegData
	}
	return injectExif(jpegData, exif)
}
