package optimizer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Breakpoint is a named target width for a responsive variant.
type Breakpoint struct {
	Name  string `json:"name" validate:"required"`
	Width int    `json:"width" validate:"gt=0"`

	// Quality overrides the base quality when non-zero.
	Quality float64 `json:"quality,omitempty" validate:"gte=0,lte=1"`
}

// CreateResponsiveVariants optimizes data once per breakpoint with MaxWidth set to
// the breakpoint width. The map is keyed by breakpoint name.
//
// Any failure fails the whole call; variants already produced are released.
func (o *Optimizer) CreateResponsiveVariants(ctx context.Context, data []byte, breakpoints []Breakpoint, base Options) (map[string]*OptimizedImage, error) {
	if err := o.check(base); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(breakpoints))
	variants := make([]Options, len(breakpoints))
	for i, bp := range breakpoints {
		if err := validate.Struct(bp); err != nil {
			return nil, fmt.Errorf("invalid breakpoint %q: %w", bp.Name, err)
		}
		if seen[bp.Name] {
			return nil, fmt.Errorf("duplicate breakpoint %q", bp.Name)
		}
		seen[bp.Name] = true

		opts := base
		opts.MaxWidth = bp.Width
		if bp.Quality > 0 {
			opts.Quality = bp.Quality
		}
		variants[i] = opts
	}

	images := make([]*OptimizedImage, len(breakpoints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Capacity())

	for i := range breakpoints {
		i := i
		g.Go(func() error {
			img, err := o.optimize(gctx, uuid.NewString(), i, data, variants[i])
			if err != nil {
				return fmt.Errorf("breakpoint %q: %w", breakpoints[i].Name, err)
			}
			images[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, img := range images {
			img.Release()
		}
		return nil, err
	}

	out := make(map[string]*OptimizedImage, len(breakpoints))
	for i, bp := range breakpoints {
		out[bp.Name] = images[i]
	}
	return out, nil
}
