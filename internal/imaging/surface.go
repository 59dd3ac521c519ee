package imaging

import (
	"fmt"
	"image"
	"strings"
)

// Format is an output container format understood by the encoder.
type Format string

// Supported output formats.
const (
	WebP Format = "webp"
	JPEG Format = "jpeg"
	PNG  Format = "png"
	AVIF Format = "avif"
)

// ParseFormat converts a format name such as "webp" or "jpg" into a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "webp":
		return WebP, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "avif":
		return AVIF, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", name)
	}
}

// MimeType returns the MIME type used when serving the encoded bytes.
func (f Format) MimeType() string {
	return "image/" + string(f)
}

// Surface is an in-memory pixel buffer with known dimensions.
//
// Pixels are stored row-major as non-premultiplied RGBA, 4 bytes per pixel, with the
// origin at (0,0). A Surface is not safe for concurrent mutation.
type Surface struct {
	img *image.NRGBA

	// SourceFormat is the format name reported by the decoder ("jpeg", "png", ...).
	// Empty for surfaces that were not decoded from bytes.
	SourceFormat string

	// Exif holds the raw APP1 segment of a decoded JPEG, if present.
	Exif []byte
}

// NewSurface allocates a blank (transparent black) surface.
func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// SurfaceFromImage wraps an NRGBA image. Images whose bounds do not start at the
// origin are copied so that the surface always addresses pixels from (0,0).
func SurfaceFromImage(img *image.NRGBA) *Surface {
	if img.Rect.Min != (image.Point{}) {
		dst := image.NewNRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
		for y := 0; y < img.Rect.Dy(); y++ {
			src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src[:dst.Stride])
		}
		img = dst
	}
	return &Surface{img: img}
}

// SurfaceFromPixels builds a surface over an existing RGBA byte slice. The slice is
// used directly, not copied.
func SurfaceFromPixels(pix []uint8, width, height int) (*Surface, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%d RGBA", len(pix), width, height)
	}
	return &Surface{img: &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}}, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Image exposes the underlying buffer. Mutating it mutates the surface.
func (s *Surface) Image() *image.NRGBA { return s.img }

// Pixels returns the backing RGBA slice.
func (s *Surface) Pixels() []uint8 { return s.img.Pix }

// Clone returns a deep copy of the surface, metadata included.
func (s *Surface) Clone() *Surface {
	pix := make([]uint8, len(s.img.Pix))
	copy(pix, s.img.Pix)
	c := &Surface{
		img:          &image.NRGBA{Pix: pix, Stride: s.img.Stride, Rect: s.img.Rect},
		SourceFormat: s.SourceFormat,
	}
	if s.Exif != nil {
		c.Exif = append([]byte(nil), s.Exif...)
	}
	return c
}

// DecodeError reports input bytes that could not be decoded into a surface.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a surface that could not be encoded to the requested format.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s image: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
