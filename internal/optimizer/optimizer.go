// Package optimizer turns arbitrary raster input into size- and format-optimized
// variants.
//
// An Optimizer decodes and encodes on the calling goroutine and hands the pixel
// work (resampling and filters) to a worker pool. When the pool cannot be built it
// runs the same worker code inline, one task at a time, producing the same bytes.
//
// Every Optimizer is independent; construct one per use and call Dispose when done.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ironsheep/image-optimizer/internal/blob"
	"github.com/ironsheep/image-optimizer/internal/imaging"
	"github.com/ironsheep/image-optimizer/internal/pool"
	"github.com/ironsheep/image-optimizer/internal/worker"
)

// Config configures an Optimizer.
type Config struct {
	Pool pool.Config `envPrefix:"POOL_"`

	// BlobOrigin is embedded in the URLs of optimized images.
	BlobOrigin string `env:"BLOB_ORIGIN" envDefault:"image-optimizer"`

	// MaxPixels rejects inputs whose declared width*height exceeds it before
	// decoding. 0 means imaging.DefaultMaxPixels.
	MaxPixels int `env:"MAX_PIXELS" envDefault:"0"`
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used by the optimizer and its workers.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer registers the pool metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Optimizer) { o.registerer = reg }
}

// WithWorkerFactory replaces the factory that builds pool workers.
func WithWorkerFactory(f pool.Factory) Option {
	return func(o *Optimizer) { o.factory = f }
}

// WithBlobStore shares an existing blob store.
func WithBlobStore(s *blob.Store) Option {
	return func(o *Optimizer) {
		if s != nil {
			o.blobs = s
		}
	}
}

// Optimizer is the orchestrator for all optimization operations.
//
// Optimizer is safe for concurrent use by multiple goroutines.
type Optimizer struct {
	engine     imaging.Engine
	logger     *zap.Logger
	registerer prometheus.Registerer
	factory    pool.Factory
	blobs      *blob.Store
	maxPixels  int

	pool *pool.Pool

	// inline runs tasks on the calling goroutine when pool is nil.
	inlineMu sync.Mutex
	inline   *worker.Processor

	disposed atomic.Bool
}

// New creates an Optimizer and starts its worker pool.
//
// A pool that cannot be constructed is logged and replaced by inline execution;
// New itself does not fail.
func New(cfg Config, opts ...Option) *Optimizer {
	o := &Optimizer{
		engine:    imaging.NewCodec(),
		logger:    zap.NewNop(),
		maxPixels: cfg.MaxPixels,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.blobs == nil {
		o.blobs = blob.NewStore(cfg.BlobOrigin)
	}
	if o.factory == nil {
		o.factory = worker.Factory(o.logger)
	}

	p, err := pool.New(cfg.Pool, o.factory, pool.WithLogger(o.logger), pool.WithRegisterer(o.registerer))
	if err != nil {
		o.logger.Warn("worker pool unavailable, processing inline", zap.Error(err))
		o.inline = worker.NewProcessor(imaging.NewCodec(), o.logger)
	} else {
		o.pool = p
	}
	return o
}

// Pooled reports whether tasks run on a worker pool.
func (o *Optimizer) Pooled() bool { return o.pool != nil }

// Capacity is the number of tasks processed in parallel: the pool size, or 1
// when running inline.
func (o *Optimizer) Capacity() int {
	if o.pool == nil {
		return 1
	}
	return o.pool.Size()
}

// Blobs returns the store resolving OptimizedImage URLs.
func (o *Optimizer) Blobs() *blob.Store { return o.blobs }

// Dispose stops the worker pool. Images already returned stay valid until their
// owners release them. Dispose is idempotent.
func (o *Optimizer) Dispose() {
	if !o.disposed.CompareAndSwap(false, true) {
		return
	}
	if o.pool != nil {
		_ = o.pool.Close()
	}
}

// Optimize decodes data, fits it into the option bounds, runs the filter policy
// and encodes the result.
//
// Errors are *imaging.DecodeError, *imaging.EncodeError or *TaskFailure; nothing
// is retried.
func (o *Optimizer) Optimize(ctx context.Context, data []byte, opts Options) (*OptimizedImage, error) {
	if err := o.check(opts); err != nil {
		return nil, err
	}
	return o.optimize(ctx, uuid.NewString(), 0, data, opts)
}

// OptimizeForUseCase runs Optimize with a named preset.
func (o *Optimizer) OptimizeForUseCase(ctx context.Context, data []byte, uc UseCase) (*OptimizedImage, error) {
	opts, err := Preset(uc)
	if err != nil {
		return nil, err
	}
	return o.Optimize(ctx, data, opts)
}

// Resize resamples data to exactly width x height and encodes it with opts.
// No filters run and the option bounds are ignored.
func (o *Optimizer) Resize(ctx context.Context, data []byte, width, height int, opts Options) (*OptimizedImage, error) {
	if err := o.check(opts); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}

	src, err := o.decode(data, opts)
	if err != nil {
		return nil, err
	}
	task := newTask(uuid.NewString(), pool.KindResize, src, width, height, opts.Quality)
	return o.process(ctx, 0, task, src, data, opts)
}

// Compress applies the quality-driven colour passes at the source size and
// encodes the result with opts.
func (o *Optimizer) Compress(ctx context.Context, data []byte, opts Options) (*OptimizedImage, error) {
	if err := o.check(opts); err != nil {
		return nil, err
	}

	src, err := o.decode(data, opts)
	if err != nil {
		return nil, err
	}
	task := newTask(uuid.NewString(), pool.KindCompress, src, src.Width(), src.Height(), opts.Quality)
	return o.process(ctx, 0, task, src, data, opts)
}

// Transform renders CDN-style transformation options locally and encodes the
// result with opts. It runs on the calling goroutine.
func (o *Optimizer) Transform(ctx context.Context, data []byte, t imaging.TransformOptions, opts Options) (*OptimizedImage, error) {
	if err := o.check(opts); err != nil {
		return nil, err
	}

	src, err := o.decode(data, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := imaging.Transform(src, t)
	if err != nil {
		return nil, err
	}
	return o.finish(out, src, data, opts)
}

func (o *Optimizer) check(opts Options) error {
	if o.disposed.Load() {
		return ErrDisposed
	}
	return opts.Validate()
}

func (o *Optimizer) optimize(ctx context.Context, id string, index int, data []byte, opts Options) (*OptimizedImage, error) {
	src, err := o.decode(data, opts)
	if err != nil {
		return nil, err
	}

	w, h := src.Width(), src.Height()
	if opts.EnableResize {
		maxW, maxH := opts.MaxWidth, opts.MaxHeight
		// A kept orientation tag of 5-8 makes viewers swap the stored axes.
		if keepsExif(opts) && imaging.ExifOrientation(src.Exif) >= 5 {
			maxW, maxH = maxH, maxW
		}
		w, h = TargetDimensions(w, h, maxW, maxH)
	}

	task := newTask(id, pool.KindOptimize, src, w, h, opts.Quality)
	return o.process(ctx, index, task, src, data, opts)
}

func (o *Optimizer) decode(data []byte, opts Options) (*imaging.Surface, error) {
	return o.engine.Decode(data, imaging.DecodeOptions{
		PreserveMetadata: keepsExif(opts),
		MaxPixels:        o.maxPixels,
	})
}

// process runs the task and encodes its pixels.
func (o *Optimizer) process(ctx context.Context, index int, task pool.Task, src *imaging.Surface, data []byte, opts Options) (*OptimizedImage, error) {
	res, err := o.run(ctx, task)
	if err != nil {
		return nil, &TaskFailure{Index: index, TaskID: task.ID, Kind: task.Kind, Err: err}
	}
	if !res.Success {
		return nil, &TaskFailure{Index: index, TaskID: task.ID, Kind: task.Kind, Err: errors.New(res.Error)}
	}

	out, err := imaging.SurfaceFromPixels(res.Data.Pixels, res.Data.Width, res.Data.Height)
	if err != nil {
		return nil, &TaskFailure{Index: index, TaskID: task.ID, Kind: task.Kind, Err: err}
	}
	return o.finish(out, src, data, opts)
}

// run executes a task on the pool, or inline when there is none.
func (o *Optimizer) run(ctx context.Context, task pool.Task) (pool.Result, error) {
	if o.pool != nil {
		f, err := o.pool.Submit(ctx, task)
		if err != nil {
			return pool.Result{}, err
		}
		return f.Wait(ctx)
	}

	o.inlineMu.Lock()
	defer o.inlineMu.Unlock()
	if err := ctx.Err(); err != nil {
		return pool.Result{}, err
	}
	res := o.inline.Handle(ctx, task)
	if !res.Success {
		res.Data = nil
	}
	return res, nil
}

// finish encodes out and assembles the result metrics.
func (o *Optimizer) finish(out, src *imaging.Surface, data []byte, opts Options) (*OptimizedImage, error) {
	enc := imaging.EncodeOptions{
		Quality:     opts.Quality,
		Progressive: opts.Progressive,
	}
	if keepsExif(opts) {
		enc.Exif = src.Exif
	}

	encoded, err := o.engine.Encode(out, opts.Format, enc)
	if err != nil {
		return nil, err
	}

	url := o.blobs.Register(encoded, opts.Format.MimeType())
	img := &OptimizedImage{
		Data:             encoded,
		URL:              url,
		OriginalSize:     len(data),
		CompressedSize:   len(encoded),
		CompressionRatio: CompressionRatio(len(data), len(encoded)),
		Width:            out.Width(),
		Height:           out.Height(),
		Format:           opts.Format,
		Progressive:      opts.Progressive,
		DominantColor:    imaging.DominantColor(out.Image()),
		release:          func() { o.blobs.Release(url) },
	}

	o.logger.Debug("image optimized",
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.String("format", string(img.Format)),
		zap.Int("original_size", img.OriginalSize),
		zap.Int("compressed_size", img.CompressedSize),
		zap.Float64("compression_ratio", img.CompressionRatio))

	return img, nil
}

func newTask(id string, kind pool.Kind, src *imaging.Surface, w, h int, quality float64) pool.Task {
	return pool.Task{
		ID:   id,
		Kind: kind,
		Data: pool.Payload{
			Pixels: src.Pixels(),
			Width:  src.Width(),
			Height: src.Height(),
			Options: pool.Options{
				Width:   w,
				Height:  h,
				Quality: quality,
			},
		},
	}
}

// keepsExif reports whether the source EXIF block travels to the output. Only a
// JPEG target can carry it.
func keepsExif(opts Options) bool {
	return opts.PreserveMetadata && opts.Format == imaging.JPEG
}
