package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a submitted task.
type State int32

// Task states. Transitions only move forward; a task cancelled while still queued
// goes straight to StateFailed.
const (
	StateQueued State = iota
	StateDispatched
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateDispatched:
		return "dispatched"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Future is the pending outcome of a submitted task.
type Future struct {
	id    string
	kind  Kind
	state atomic.Int32
	done  chan struct{}
	once  sync.Once

	// Written once before done is closed.
	result Result
	err    error
}

func newFuture(id string, kind Kind) *Future {
	return &Future{id: id, kind: kind, done: make(chan struct{})}
}

// ID returns the task ID.
func (f *Future) ID() string { return f.id }

// State returns the current task state.
func (f *Future) State() State { return State(f.state.Load()) }

// Done is closed once the task has completed or failed.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the task finishes or ctx is done.
//
// The error is non-nil when the task never produced a Result: it was cancelled,
// passed its deadline or the pool closed. A Result with Success false is not an
// error at this level; inspect Result.Error.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{ID: f.id}, ctx.Err()
	}
}

// dispatch moves the task from Queued to Dispatched. It fails if the task has
// already been resolved.
func (f *Future) dispatch() bool {
	return f.state.CompareAndSwap(int32(StateQueued), int32(StateDispatched))
}

// resolve settles the Future exactly once.
func (f *Future) resolve(res Result, err error) bool {
	settled := false
	f.once.Do(func() {
		state := StateCompleted
		if err != nil || !res.Success {
			state = StateFailed
			res.Data = nil
		}
		f.result = res
		f.err = err
		f.state.Store(int32(state))
		close(f.done)
		settled = true
	})
	return settled
}
