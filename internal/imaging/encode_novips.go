//go:build !vips

package imaging

import (
	"errors"
	"image"
)

// VipsEnabled reports whether the libvips-backed encoders are compiled in.
const VipsEnabled = false

// ErrVipsDisabled is returned by encoders that need libvips when the binary was built
// without the vips tag.
var ErrVipsDisabled = errors.New("encoder requires libvips; rebuild with -tags vips")

func encodeAVIF(image.Image, int, bool) ([]byte, error) {
	return nil, ErrVipsDisabled
}

func encodeProgressiveJPEG(image.Image, int) ([]byte, error) {
	return nil, ErrVipsDisabled
}
