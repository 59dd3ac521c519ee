package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MaxDefaultSize caps the worker count picked by DefaultSize.
const MaxDefaultSize = 4

// DefaultSize returns min(4, GOMAXPROCS).
func DefaultSize() int {
	return min(MaxDefaultSize, runtime.GOMAXPROCS(0))
}

// Config sizes the pool.
type Config struct {
	// Size is the number of workers. 0 means DefaultSize().
	Size int `env:"SIZE" envDefault:"0"`

	// QueueSize bounds the number of queued tasks; Submit blocks while the queue is
	// full. 0 means four slots per worker.
	QueueSize int `env:"QUEUE_SIZE" envDefault:"0"`

	// Disabled makes New report the pool as unavailable.
	Disabled bool `env:"DISABLED" envDefault:"false"`
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRegisterer registers the pool metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Pool) {
		p.registerer = reg
	}
}

type job struct {
	task   Task
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	future *Future
}

// Pool is a fixed-size worker pool with a bounded queue.
type Pool struct {
	size       int
	logger     *zap.Logger
	registerer prometheus.Registerer
	metrics    *metrics

	queue   chan *job
	done    chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup // Submit calls past the closed check

	mu      sync.Mutex
	pending map[string]*Future
	closed  bool

	closeOnce sync.Once
}

// New builds one Handler per worker with factory and starts the workers.
//
// Returns *UnavailableError when the pool is disabled or the factory fails.
func New(cfg Config, factory Factory, opts ...Option) (*Pool, error) {
	if cfg.Disabled {
		return nil, &UnavailableError{Reason: "disabled by configuration"}
	}
	if factory == nil {
		return nil, &UnavailableError{Reason: "no handler factory"}
	}

	size := cfg.Size
	if size <= 0 {
		size = DefaultSize()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = size * 4
	}

	p := &Pool{
		size:    size,
		logger:  zap.NewNop(),
		queue:   make(chan *job, queueSize),
		done:    make(chan struct{}),
		pending: make(map[string]*Future),
	}
	for _, opt := range opts {
		opt(p)
	}

	handlers := make([]Handler, size)
	for i := range handlers {
		h, err := factory(i)
		if err != nil {
			return nil, &UnavailableError{Reason: fmt.Sprintf("worker %d", i), Err: err}
		}
		handlers[i] = h
	}

	p.metrics = newMetrics(p.registerer)

	for i, h := range handlers {
		p.wg.Add(1)
		go p.run(i, h)
	}

	p.logger.Debug("worker pool started", zap.Int("workers", size), zap.Int("queue", queueSize))
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Pending returns the number of submitted tasks that have not resolved yet.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Submit queues a task and returns its Future.
//
// The pixel buffer is copied, so the caller may reuse task.Data.Pixels once Submit
// returns. Submit blocks while the queue is full; it gives up when ctx is done or
// the pool closes. ctx and task.Deadline also bound the task after it is queued.
func (p *Pool) Submit(ctx context.Context, task Task) (*Future, error) {
	if !task.Kind.Valid() {
		return nil, fmt.Errorf("unknown task kind: %q", task.Kind)
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.Data.Pixels = append([]byte(nil), task.Data.Pixels...)

	future := newFuture(task.ID, task.Kind)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := p.pending[task.ID]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("task %s is already pending", task.ID)
	}
	p.pending[task.ID] = future
	p.senders.Add(1)
	p.mu.Unlock()
	defer p.senders.Done()

	p.metrics.submitted.WithLabelValues(string(task.Kind)).Inc()
	p.metrics.pending.Inc()

	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if task.Deadline.IsZero() {
		jobCtx, cancel = context.WithCancel(ctx)
	} else {
		jobCtx, cancel = context.WithDeadline(ctx, task.Deadline)
	}

	j := &job{task: task, ctx: jobCtx, cancel: cancel, future: future}
	j.stop = context.AfterFunc(jobCtx, func() {
		p.drop(task.ID, context.Cause(jobCtx))
	})

	select {
	case p.queue <- j:
		return future, nil
	case <-jobCtx.Done():
		j.release()
		err := context.Cause(jobCtx)
		p.drop(task.ID, err)
		return nil, fmt.Errorf("failed to queue task %s: %w", task.ID, err)
	case <-p.done:
		j.release()
		p.drop(task.ID, ErrClosed)
		return nil, ErrClosed
	}
}

// Close stops the workers, waits for in-flight tasks and fails everything still
// pending with ErrClosed. Close is idempotent.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		close(p.done)
		p.wg.Wait()
		// No Submit can enqueue after this, so the drain below is final.
		p.senders.Wait()

	drain:
		for {
			select {
			case j := <-p.queue:
				j.release()
			default:
				break drain
			}
		}

		p.mu.Lock()
		ids := make([]string, 0, len(p.pending))
		for id := range p.pending {
			ids = append(ids, id)
		}
		p.mu.Unlock()

		for _, id := range ids {
			p.drop(id, ErrClosed)
		}
		p.logger.Debug("worker pool closed", zap.Int("failed_pending", len(ids)))
	})
	return nil
}

func (p *Pool) run(n int, h Handler) {
	defer p.wg.Done()
	for {
		// Prefer shutdown over picking up more work.
		select {
		case <-p.done:
			return
		default:
		}

		select {
		case <-p.done:
			return
		case j := <-p.queue:
			p.execute(n, h, j)
		}
	}
}

func (p *Pool) execute(n int, h Handler, j *job) {
	defer j.release()

	if !j.future.dispatch() {
		return
	}
	if err := j.ctx.Err(); err != nil {
		p.drop(j.task.ID, context.Cause(j.ctx))
		return
	}

	start := time.Now()
	res := safeHandle(j.ctx, h, j.task)
	p.metrics.duration.WithLabelValues(string(j.task.Kind)).Observe(time.Since(start).Seconds())

	if res.ID == "" {
		res.ID = j.task.ID
	}
	if !res.Success {
		p.logger.Debug("task failed",
			zap.Int("worker", n),
			zap.String("id", res.ID),
			zap.String("kind", string(j.task.Kind)),
			zap.String("error", res.Error))
	}
	p.deliver(res)
}

// deliver resolves the Future registered for res.ID.
func (p *Pool) deliver(res Result) {
	future := p.take(res.ID)
	if future == nil {
		p.metrics.dropped.Inc()
		p.logger.Debug("dropping result for unknown task", zap.String("id", res.ID))
		return
	}
	if !res.Success {
		res.Data = nil
	}
	future.resolve(res, nil)
	p.finish(future)
}

// drop fails a pending task without a worker Result.
func (p *Pool) drop(id string, err error) {
	future := p.take(id)
	if future == nil {
		return
	}
	if err == nil {
		err = errors.New("task dropped")
	}
	future.resolve(Failed(id, err), err)
	p.finish(future)
}

func (p *Pool) take(id string) *Future {
	p.mu.Lock()
	defer p.mu.Unlock()
	future, ok := p.pending[id]
	if !ok {
		return nil
	}
	delete(p.pending, id)
	return future
}

func (p *Pool) finish(f *Future) {
	p.metrics.pending.Dec()
	p.metrics.finished.WithLabelValues(string(f.kind), f.State().String()).Inc()
}

func (j *job) release() {
	j.stop()
	j.cancel()
}
