package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/ironsheep/image-optimizer/internal/imaging"
)

var validate = validator.New()

// Options controls a single optimization call.
type Options struct {
	// Quality in [0,1]. Below 0.6 colour depth is reduced, below 0.4 the output is
	// dithered.
	Quality float64 `json:"quality" validate:"gte=0,lte=1"`

	// MaxWidth and MaxHeight bound the output when EnableResize is set.
	MaxWidth  int `json:"max_width" validate:"gt=0"`
	MaxHeight int `json:"max_height" validate:"gt=0"`

	Format imaging.Format `json:"format" validate:"oneof=webp jpeg png avif"`

	// Progressive requests a progressive bitstream where the encoder has one.
	Progressive bool `json:"progressive"`

	// PreserveMetadata copies the source EXIF block into JPEG output. Other
	// combinations always strip metadata. Pixels then stay in stored order, and
	// for orientations 5-8 MaxWidth and MaxHeight bound the displayed axes.
	PreserveMetadata bool `json:"preserve_metadata"`

	// EnableResize fits the output into MaxWidth x MaxHeight.
	EnableResize bool `json:"enable_resize"`
}

// DefaultOptions returns quality 0.8, 1920x1080 bounds, WebP, resize enabled.
func DefaultOptions() Options {
	return Options{
		Quality:      0.8,
		MaxWidth:     1920,
		MaxHeight:    1080,
		Format:       imaging.WebP,
		EnableResize: true,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid optimization options: %w", err)
	}
	return nil
}

// TargetDimensions fits ow x oh into maxW x maxH, keeping the aspect ratio.
//
// Width is clamped first and height derived from it; if the height still exceeds
// its bound it is clamped and width derived again. Both sides are then rounded.
// Images already inside the box keep their size. Sides never round below 1.
func TargetDimensions(ow, oh, maxW, maxH int) (int, int) {
	aspect := float64(ow) / float64(oh)
	w, h := float64(ow), float64(oh)

	if w > float64(maxW) {
		w = float64(maxW)
		h = w / aspect
	}
	if h > float64(maxH) {
		h = float64(maxH)
		w = h * aspect
	}

	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

// CompressionRatio returns (1 - compressed/original) * 100. The result is negative
// when the output is larger than the input and is not clamped.
func CompressionRatio(original, compressed int) float64 {
	if original == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(original)) * 100
}

// UseCase names a preset.
type UseCase string

// Built-in presets.
const (
	UseCaseThumbnail UseCase = "thumbnail"
	UseCaseGallery   UseCase = "gallery"
	UseCaseHero      UseCase = "hero"
	UseCaseProfile   UseCase = "profile"
	UseCaseContent   UseCase = "content"
)

var presets = map[UseCase]Options{
	UseCaseThumbnail: {Quality: 0.70, MaxWidth: 150, MaxHeight: 150, Format: imaging.WebP, EnableResize: true},
	UseCaseGallery:   {Quality: 0.80, MaxWidth: 800, MaxHeight: 600, Format: imaging.WebP, EnableResize: true},
	UseCaseHero:      {Quality: 0.90, MaxWidth: 1920, MaxHeight: 1080, Format: imaging.WebP, Progressive: true, EnableResize: true},
	UseCaseProfile:   {Quality: 0.85, MaxWidth: 400, MaxHeight: 400, Format: imaging.WebP, EnableResize: true},
	UseCaseContent:   {Quality: 0.80, MaxWidth: 1200, MaxHeight: 800, Format: imaging.WebP, EnableResize: true},
}

// Preset returns the options for a use case.
func Preset(uc UseCase) (Options, error) {
	opts, ok := presets[uc]
	if !ok {
		return Options{}, fmt.Errorf("unknown use case: %q", uc)
	}
	return opts, nil
}

// UseCases lists the preset names in alphabetical order.
func UseCases() []UseCase {
	out := make([]UseCase, 0, len(presets))
	for uc := range presets {
		out = append(out, uc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
