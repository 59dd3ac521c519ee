// Package cdn builds image delivery URLs for Cloudinary, ImageKit, Cloudflare and
// custom query-string CDNs, plus responsive URL sets and <picture> markup.
//
// Every function here is pure: the same path and options always yield the same
// string, and nothing is fetched.
package cdn

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ironsheep/image-optimizer/internal/imaging"
)

var validate = validator.New()

// Options describes a CDN-side transformation. Zero values are omitted from URLs.
type Options struct {
	Width     int    `json:"width,omitempty" validate:"gte=0"`
	Height    int    `json:"height,omitempty" validate:"gte=0"`
	Quality   int    `json:"quality,omitempty" validate:"gte=0,lte=100"`
	Format    string `json:"format,omitempty" validate:"omitempty,oneof=auto webp avif jpeg png"`
	Fit       string `json:"fit,omitempty" validate:"omitempty,oneof=cover contain fill inside outside"`
	Gravity   string `json:"gravity,omitempty"`
	Blur      int    `json:"blur,omitempty" validate:"gte=0"`
	Sharpen   bool   `json:"sharpen,omitempty"`
	Grayscale bool   `json:"grayscale,omitempty"`
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid CDN options: %w", err)
	}
	return nil
}

// Transform converts the options into a local transformation, for rendering what a
// custom CDN would serve.
func (o Options) Transform() imaging.TransformOptions {
	return imaging.TransformOptions{
		Width:     o.Width,
		Height:    o.Height,
		Fit:       imaging.Fit(o.Fit),
		Gravity:   o.Gravity,
		Blur:      float64(o.Blur),
		Sharpen:   o.Sharpen,
		Grayscale: o.Grayscale,
	}
}

// query returns the options as a flat query string, one key per supplied option.
func (o Options) query() string {
	var p params
	p.addInt("width", o.Width)
	p.addInt("height", o.Height)
	p.addInt("quality", o.Quality)
	p.add("format", o.Format)
	p.add("fit", o.Fit)
	p.add("gravity", o.Gravity)
	p.addInt("blur", o.Blur)
	p.addBool("sharpen", o.Sharpen)
	p.addBool("grayscale", o.Grayscale)
	return p.join("&", "=", url.QueryEscape)
}

// ParseQuery reads options from a query string in the custom provider format.
// Unknown keys are ignored.
func ParseQuery(values url.Values) (Options, error) {
	var o Options
	var err error

	ints := []struct {
		key string
		dst *int
	}{
		{"width", &o.Width},
		{"height", &o.Height},
		{"quality", &o.Quality},
		{"blur", &o.Blur},
	}
	for _, f := range ints {
		if v := values.Get(f.key); v != "" {
			if *f.dst, err = strconv.Atoi(v); err != nil {
				return Options{}, fmt.Errorf("invalid %s: %q", f.key, v)
			}
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"sharpen", &o.Sharpen},
		{"grayscale", &o.Grayscale},
	}
	for _, f := range bools {
		if v := values.Get(f.key); v != "" {
			if *f.dst, err = strconv.ParseBool(v); err != nil {
				return Options{}, fmt.Errorf("invalid %s: %q", f.key, v)
			}
		}
	}

	o.Format = strings.ToLower(values.Get("format"))
	o.Fit = strings.ToLower(values.Get("fit"))
	o.Gravity = values.Get("gravity")

	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

type param struct {
	key, value string
}

// params keeps parameters in insertion order.
type params []param

func (p *params) add(key, value string) {
	if value != "" {
		*p = append(*p, param{key, value})
	}
}

func (p *params) addInt(key string, value int) {
	if value > 0 {
		p.add(key, strconv.Itoa(value))
	}
}

func (p *params) addBool(key string, value bool) {
	if value {
		p.add(key, "true")
	}
}

func (p params) join(sep, assign string, escape func(string) string) string {
	parts := make([]string, len(p))
	for i, kv := range p {
		v := kv.value
		if escape != nil {
			v = escape(v)
		}
		parts[i] = kv.key + assign + v
	}
	return strings.Join(parts, sep)
}
