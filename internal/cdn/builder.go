package cdn

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
)

// Config holds the per-provider base URLs.
type Config struct {
	Provider Provider `env:"PROVIDER" envDefault:"cloudinary"`

	CloudinaryBaseURL string `env:"CLOUDINARY_BASE_URL" envDefault:"https://res.cloudinary.com/demo/image/upload"`
	ImageKitBaseURL   string `env:"IMAGEKIT_BASE_URL" envDefault:"https://ik.imagekit.io/demo"`
	CloudflareBaseURL string `env:"CLOUDFLARE_BASE_URL" envDefault:""`
	CustomBaseURL     string `env:"CUSTOM_BASE_URL" envDefault:""`
}

// Builder renders URLs against configured base URLs.
type Builder struct {
	cfg Config
}

// NewBuilder creates a Builder. An empty Provider defaults to Cloudinary.
func NewBuilder(cfg Config) *Builder {
	if cfg.Provider == "" {
		cfg.Provider = Cloudinary
	}
	return &Builder{cfg: cfg}
}

// DefaultProvider returns the provider used when a call passes an empty one.
func (b *Builder) DefaultProvider() Provider { return b.cfg.Provider }

func (b *Builder) base(p Provider) string {
	switch p {
	case Cloudinary:
		return b.cfg.CloudinaryBaseURL
	case ImageKit:
		return b.cfg.ImageKitBaseURL
	case Cloudflare:
		return b.cfg.CloudflareBaseURL
	default:
		return b.cfg.CustomBaseURL
	}
}

// BuildURL returns the delivery URL of path with opts applied, in the provider's
// native syntax. An empty provider uses DefaultProvider.
//
//	b.BuildURL("photo.jpg", cdn.Options{Width: 300, Quality: 80, Format: "webp"}, cdn.Cloudinary)
//	// https://res.cloudinary.com/demo/image/upload/w_300,q_80,f_webp/photo.jpg
func (b *Builder) BuildURL(path string, opts Options, provider Provider) (string, error) {
	if provider == "" {
		provider = b.cfg.Provider
	}
	s, ok := strategies[provider]
	if !ok {
		return "", fmt.Errorf("unknown CDN provider: %q", provider)
	}
	if err := opts.Validate(); err != nil {
		return "", err
	}
	return s.build(b.base(provider), path, opts), nil
}

// Breakpoint is a named responsive width.
type Breakpoint struct {
	Name  string `json:"name"`
	Width int    `json:"width"`

	// Density adds a "<name>_<density>x" URL at Width*Density when greater than 1.
	Density int `json:"density,omitempty"`

	// Media is the media query used in <picture> markup. Empty means
	// "(max-width: <Width>px)".
	Media string `json:"media,omitempty"`
}

func (bp Breakpoint) media() string {
	if bp.Media != "" {
		return bp.Media
	}
	return "(max-width: " + strconv.Itoa(bp.Width) + "px)"
}

func (bp Breakpoint) densityKey() string {
	return bp.Name + "_" + strconv.Itoa(bp.Density) + "x"
}

func validateBreakpoints(breakpoints []Breakpoint) error {
	seen := make(map[string]bool, len(breakpoints))
	for _, bp := range breakpoints {
		if bp.Name == "" {
			return errors.New("breakpoint name is required")
		}
		if bp.Width <= 0 {
			return fmt.Errorf("breakpoint %q: width must be positive", bp.Name)
		}
		if bp.Density < 0 {
			return fmt.Errorf("breakpoint %q: density must not be negative", bp.Name)
		}
		if seen[bp.Name] {
			return fmt.Errorf("duplicate breakpoint %q", bp.Name)
		}
		seen[bp.Name] = true
	}
	return nil
}

// BuildResponsiveURLs returns one URL per breakpoint, keyed by name, with the
// breakpoint width applied over opts. Breakpoints with a density above 1 also get
// a "<name>_<density>x" entry, e.g. "mobile_2x".
func (b *Builder) BuildResponsiveURLs(path string, breakpoints []Breakpoint, opts Options, provider Provider) (map[string]string, error) {
	if err := validateBreakpoints(breakpoints); err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(breakpoints))
	for _, bp := range breakpoints {
		o := opts
		o.Width = bp.Width
		u, err := b.BuildURL(path, o, provider)
		if err != nil {
			return nil, err
		}
		urls[bp.Name] = u

		if bp.Density > 1 {
			o.Width = bp.Width * bp.Density
			u, err := b.BuildURL(path, o, provider)
			if err != nil {
				return nil, err
			}
			urls[bp.densityKey()] = u
		}
	}
	return urls, nil
}

// PictureOptions configures GeneratePictureMarkup.
type PictureOptions struct {
	Breakpoints []Breakpoint `json:"breakpoints"`

	// Quality applies to every source. 0 leaves it to the CDN.
	Quality int `json:"quality,omitempty"`

	// Sizes is the <img> sizes attribute. Empty means "100vw".
	Sizes string `json:"sizes,omitempty"`

	Provider Provider `json:"provider,omitempty"`
}

// GeneratePictureMarkup returns a <picture> element with a WebP and a JPEG
// <source> per breakpoint, narrowest first, and a lazy-loaded JPEG <img> fallback
// at the widest breakpoint width.
func (b *Builder) GeneratePictureMarkup(path, alt string, opts PictureOptions) (string, error) {
	if err := validateBreakpoints(opts.Breakpoints); err != nil {
		return "", err
	}

	breakpoints := append([]Breakpoint(nil), opts.Breakpoints...)
	sort.SliceStable(breakpoints, func(i, j int) bool { return breakpoints[i].Width < breakpoints[j].Width })

	sizes := opts.Sizes
	if sizes == "" {
		sizes = "100vw"
	}

	var sb strings.Builder
	sb.WriteString("<picture>\n")

	for _, bp := range breakpoints {
		for _, format := range []string{"webp", "jpeg"} {
			srcset, err := b.srcset(path, bp, Options{Quality: opts.Quality, Format: format}, opts.Provider)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "  <source media=\"%s\" srcset=\"%s\" type=\"image/%s\">\n",
				html.EscapeString(bp.media()), html.EscapeString(srcset), format)
		}
	}

	fallback := Options{Quality: opts.Quality, Format: "jpeg"}
	if n := len(breakpoints); n > 0 {
		fallback.Width = breakpoints[n-1].Width
	}
	src, err := b.BuildURL(path, fallback, opts.Provider)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "  <img src=\"%s\" alt=\"%s\" loading=\"lazy\" sizes=\"%s\">\n",
		html.EscapeString(src), html.EscapeString(alt), html.EscapeString(sizes))
	sb.WriteString("</picture>")

	return sb.String(), nil
}

// srcset lists the 1x URL and, with a density above 1, the high-density URL.
func (b *Builder) srcset(path string, bp Breakpoint, opts Options, provider Provider) (string, error) {
	opts.Width = bp.Width
	u, err := b.BuildURL(path, opts, provider)
	if err != nil {
		return "", err
	}
	if bp.Density <= 1 {
		return u, nil
	}

	opts.Width = bp.Width * bp.Density
	hi, err := b.BuildURL(path, opts, provider)
	if err != nil {
		return "", err
	}
	return u + " 1x, " + hi + " " + strconv.Itoa(bp.Density) + "x", nil
}
