//go:build vips

package imaging

import (
	"bytes"
	"image"
	"image/png"

	"github.com/h2non/bimg"
)

// VipsEnabled reports whether the libvips-backed encoders are compiled in.
const VipsEnabled = true

func encodeAVIF(img image.Image, quality int, progressive bool) ([]byte, error) {
	return encodeWithVips(img, bimg.AVIF, quality, progressive)
}

func encodeProgressiveJPEG(img image.Image, quality int) ([]byte, error) {
	return encodeWithVips(img, bimg.JPEG, quality, true)
}

// encodeWithVips hands the pixels to libvips through a lossless PNG intermediate.
func encodeWithVips(img image.Image, t bimg.ImageType, quality int, interlace bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}

	return bimg.NewImage(buf.Bytes()).Process(bimg.Options{
		Type:          t,
		Quality:       quality,
		Interlace:     interlace,
		StripMetadata: true,
	})
}
