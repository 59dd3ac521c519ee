package cdn

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Provider selects the URL syntax.
type Provider string

// Supported providers.
const (
	Cloudinary Provider = "cloudinary"
	ImageKit   Provider = "imagekit"
	Cloudflare Provider = "cloudflare"
	Custom     Provider = "custom"
)

// ParseProvider converts a provider name into a Provider.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := strategies[p]; !ok {
		return "", fmt.Errorf("unknown CDN provider: %q", name)
	}
	return p, nil
}

// strategy renders one provider's URL syntax.
type strategy interface {
	build(base, path string, opts Options) string
}

var strategies = map[Provider]strategy{
	Cloudinary: cloudinary{},
	ImageKit:   imageKit{},
	Cloudflare: cloudflare{},
	Custom:     custom{},
}

// cloudinary puts comma-separated transformations in a path segment:
// <base>/w_300,q_80,f_webp/photo.jpg
type cloudinary struct{}

func (cloudinary) build(base, path string, opts Options) string {
	var parts []string
	add := func(prefix string, value int) {
		if value > 0 {
			parts = append(parts, prefix+strconv.Itoa(value))
		}
	}
	addString := func(prefix, value string) {
		if value != "" {
			parts = append(parts, prefix+value)
		}
	}

	add("w_", opts.Width)
	add("h_", opts.Height)
	add("q_", opts.Quality)
	addString("f_", opts.Format)
	addString("c_", opts.Fit)
	addString("g_", opts.Gravity)
	add("e_blur:", opts.Blur)
	if opts.Sharpen {
		parts = append(parts, "e_sharpen")
	}
	if opts.Grayscale {
		parts = append(parts, "e_grayscale")
	}

	return joinPath(base, strings.Join(parts, ","), path)
}

// imageKit appends query parameters: <base>/photo.jpg?w=300&q=80
type imageKit struct{}

func (imageKit) build(base, path string, opts Options) string {
	var p params
	p.addInt("w", opts.Width)
	p.addInt("h", opts.Height)
	p.addInt("q", opts.Quality)
	p.add("f", opts.Format)
	p.add("c", opts.Fit)
	p.add("fo", opts.Gravity)
	p.addInt("bl", opts.Blur)
	p.addBool("e-sharpen", opts.Sharpen)
	p.addBool("e-grayscale", opts.Grayscale)
	return withQuery(joinPath(base, "", path), p.join("&", "=", url.QueryEscape))
}

// cloudflare uses the image resizing path prefix:
// <base>/cdn-cgi/image/width=300,quality=80/photo.jpg
type cloudflare struct{}

func (cloudflare) build(base, path string, opts Options) string {
	var p params
	p.addInt("width", opts.Width)
	p.addInt("height", opts.Height)
	p.addInt("quality", opts.Quality)
	p.add("format", opts.Format)
	p.add("fit", opts.Fit)
	p.add("gravity", opts.Gravity)
	p.addInt("blur", opts.Blur)
	if opts.Sharpen {
		p.add("sharpen", "1")
	}
	if opts.Grayscale {
		p.add("saturation", "0")
	}

	segment := p.join(",", "=", nil)
	if segment == "" {
		return joinPath(base, "", path)
	}
	return joinPath(base, "cdn-cgi/image/"+segment, path)
}

// custom appends every supplied option as a flat query string.
type custom struct{}

func (custom) build(base, path string, opts Options) string {
	return withQuery(joinPath(base, "", path), opts.query())
}

// joinPath joins the non-empty parts with single slashes, keeping the base's
// scheme and a leading slash on relative bases.
func joinPath(base, segment, path string) string {
	parts := make([]string, 0, 3)
	if b := strings.TrimRight(base, "/"); b != "" {
		parts = append(parts, b)
	}
	if s := strings.Trim(segment, "/"); s != "" {
		parts = append(parts, s)
	}
	if p := strings.TrimLeft(path, "/"); p != "" {
		parts = append(parts, p)
	}
	joined := strings.Join(parts, "/")
	if base == "" || strings.HasPrefix(base, "/") {
		return "/" + strings.TrimLeft(joined, "/")
	}
	return joined
}

func withQuery(u, query string) string {
	if query == "" {
		return u
	}
	if strings.Contains(u, "?") {
		return u + "&" + query
	}
	return u + "?" + query
}
