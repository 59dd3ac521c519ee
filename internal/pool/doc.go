// Package pool runs image processing tasks on a fixed set of workers.
//
// Each worker owns a Handler built by a Factory, so no two workers share an
// imaging engine or any other mutable state. Work crosses the pool boundary as
// values: Submit copies the pixel buffer into the task and handlers return freshly
// allocated buffers in their Result.
//
// # Correlation
//
// Task.ID is the only link between a submitted task and its Result. The pool keeps
// an id → Future table guarded by a mutex; a Result resolves the matching Future and
// removes the entry. Results for unknown IDs (already cancelled, or never
// submitted) are dropped.
//
// # Lifecycle
//
// Every task moves Queued → Dispatched → Completed | Failed and never back. The
// submitting context and Task.Deadline bound a task's life: when either expires the
// Future fails with the context error and its table entry is freed, even if a
// worker is still running the task. A worker that picks up an expired task skips it.
//
// # Example Usage
//
//	p, err := pool.New(pool.Config{}, func(n int) (pool.Handler, error) {
//	    return worker.NewProcessor(imaging.NewCodec()), nil
//	})
//	if err != nil {
//	    // errors.Is(err, pool.ErrUnavailable): run the handler inline instead
//	}
//	defer p.Close()
//
//	f, err := p.Submit(ctx, task)
//	res, err := f.Wait(ctx)
package pool
