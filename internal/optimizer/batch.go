package optimizer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OptimizeBatch optimizes every input with the same options.
//
// Inputs are split into chunks of Capacity items. Chunks run one after another;
// the items of a chunk run in parallel. A failing item is recorded as a
// *TaskFailure in its BatchItem and does not affect its siblings. The result
// always has one item per input, in input order.
//
// The returned error is only non-nil for invalid options or a disposed optimizer.
func (o *Optimizer) OptimizeBatch(ctx context.Context, inputs [][]byte, opts Options) (*BatchResult, error) {
	if err := o.check(opts); err != nil {
		return nil, err
	}

	result := &BatchResult{Items: make([]BatchItem, len(inputs))}
	chunk := o.Capacity()

	for start := 0; start < len(inputs); start += chunk {
		end := min(start+chunk, len(inputs))
		o.runChunk(ctx, inputs, start, end, opts, result)
	}

	o.logger.Debug("batch optimized",
		zap.Int("items", len(inputs)),
		zap.Int("failed", len(result.Failed())),
		zap.Int("chunk", chunk))

	return result, nil
}

type outcome struct {
	id  string
	img *OptimizedImage
	err error
}

// runChunk processes inputs[start:end] and stores each outcome at the index its
// task ID was registered under.
func (o *Optimizer) runChunk(ctx context.Context, inputs [][]byte, start, end int, opts Options, result *BatchResult) {
	index := make(map[string]int, end-start)
	outcomes := make(chan outcome, end-start)

	var g errgroup.Group
	for i := start; i < end; i++ {
		i := i
		id := uuid.NewString()
		index[id] = i
		data := inputs[i]
		g.Go(func() error {
			img, err := o.optimize(ctx, id, i, data, opts)
			outcomes <- outcome{id: id, img: img, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	for out := range outcomes {
		i := index[out.id]
		item := BatchItem{Index: i, TaskID: out.id, Image: out.img, Err: out.err}
		var failure *TaskFailure
		if out.err != nil && !errors.As(out.err, &failure) {
			item.Err = &TaskFailure{Index: i, TaskID: out.id, Err: out.err}
		}
		result.Items[i] = item
	}
}
