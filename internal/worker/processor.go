// Package worker executes pool tasks against an imaging engine.
//
// A Processor is the per-worker execution context: the pool builds one per worker
// and the optimizer builds one more for inline execution when no pool is
// available. Both paths run the same code, so they produce the same pixels.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/image-optimizer/internal/filter"
	"github.com/ironsheep/image-optimizer/internal/imaging"
	"github.com/ironsheep/image-optimizer/internal/pool"
)

const (
	// NoiseReductionRatio is the pixel-count downsize ratio above which an optimize
	// task smooths the resampled image.
	NoiseReductionRatio = 4.0

	// SharpenBelow is the output side length under which an optimize task sharpens.
	SharpenBelow = 400
)

// Processor runs optimize, resize and compress tasks. It is not safe for
// concurrent use; each worker owns one.
type Processor struct {
	engine imaging.Engine
	logger *zap.Logger
}

// NewProcessor returns a Processor that resamples with engine.
func NewProcessor(engine imaging.Engine, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{engine: engine, logger: logger}
}

// Factory returns a pool.Factory giving every worker its own Codec.
func Factory(logger *zap.Logger) pool.Factory {
	return func(n int) (pool.Handler, error) {
		l := logger
		if l != nil {
			l = l.With(zap.Int("worker", n))
		}
		return NewProcessor(imaging.NewCodec(), l), nil
	}
}

// Handle implements pool.Handler.
func (p *Processor) Handle(ctx context.Context, task pool.Task) pool.Result {
	data, err := p.Process(ctx, task)
	if err != nil {
		return pool.Failed(task.ID, err)
	}
	return pool.Result{ID: task.ID, Success: true, Data: data}
}

// Process executes a task and returns a newly allocated pixel buffer. The input
// buffer is never modified.
//
// OriginalSize and CompressedSize are the input and output buffer lengths in bytes.
func (p *Processor) Process(ctx context.Context, task pool.Task) (*pool.ResultData, error) {
	src, err := imaging.SurfaceFromPixels(task.Data.Pixels, task.Data.Width, task.Data.Height)
	if err != nil {
		return nil, err
	}
	if src.Width() == 0 || src.Height() == 0 {
		return nil, &imaging.EncodeError{Err: imaging.ErrEmptySurface}
	}

	opts := task.Data.Options
	var out *imaging.Surface

	switch task.Kind {
	case pool.KindOptimize:
		out, err = p.optimize(ctx, src, opts)
	case pool.KindResize:
		out, err = p.engine.Resize(src, opts.Width, opts.Height)
	case pool.KindCompress:
		out, err = p.compress(ctx, src, opts)
	default:
		err = fmt.Errorf("unknown task kind: %q", task.Kind)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Debug("task processed",
		zap.String("id", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.Int("width", out.Width()),
		zap.Int("height", out.Height()))

	return &pool.ResultData{
		Pixels:         out.Pixels(),
		Width:          out.Width(),
		Height:         out.Height(),
		OriginalSize:   len(task.Data.Pixels),
		CompressedSize: len(out.Pixels()),
	}, nil
}

// optimize resamples to the target size and applies the conditional filters:
// noise reduction after a large downscale, sharpening for small outputs, then the
// quality-driven colour passes.
func (p *Processor) optimize(ctx context.Context, src *imaging.Surface, opts pool.Options) (*imaging.Surface, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("optimize task needs a target size")
	}

	out, err := p.engine.Resize(src, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := out.Image()
	if DownsizeRatio(src.Width(), src.Height(), out.Width(), out.Height()) > NoiseReductionRatio {
		filter.NoiseReduction(img)
	}
	if out.Width() < SharpenBelow || out.Height() < SharpenBelow {
		filter.Sharpen(img)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter.Reduce(img, opts.Quality)
	return out, nil
}

func (p *Processor) compress(ctx context.Context, src *imaging.Surface, opts pool.Options) (*imaging.Surface, error) {
	out := src.Clone()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter.Reduce(out.Image(), opts.Quality)
	return out, nil
}

// DownsizeRatio returns (ow*oh)/(w*h).
func DownsizeRatio(ow, oh, w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	return float64(ow) * float64(oh) / (float64(w) * float64(h))
}
