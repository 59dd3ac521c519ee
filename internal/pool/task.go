package pool

import (
	"context"
	"fmt"
	"time"
)

// Kind names the operation a worker performs on a task.
type Kind string

// Task kinds.
const (
	KindOptimize Kind = "optimize"
	KindResize   Kind = "resize"
	KindCompress Kind = "compress"
)

// Valid reports whether k is a known task kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOptimize, KindResize, KindCompress:
		return true
	}
	return false
}

// Options carries the per-task processing parameters.
type Options struct {
	// Width and Height are the target dimensions. Ignored by compress tasks.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Quality in [0,1] drives the lossy filter passes.
	Quality float64 `json:"quality"`
}

// Payload is the data a task carries across the pool boundary.
type Payload struct {
	Pixels  []byte  `json:"pixelBuffer"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Options Options `json:"options"`
}

// Task is a unit of work submitted to the pool.
type Task struct {
	// ID correlates the task with its Result. Submit assigns a UUID when empty.
	ID   string  `json:"id"`
	Kind Kind    `json:"kind"`
	Data Payload `json:"data"`

	// Deadline, when set, fails the task if it has not completed by then.
	Deadline time.Time `json:"deadline,omitzero"`
}

// ResultData is the output of a successful task.
type ResultData struct {
	Pixels         []byte `json:"pixelBuffer"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalSize   int    `json:"originalSize"`
	CompressedSize int    `json:"compressedSize"`
}

// Result is what a worker reports for a task.
//
// A Result with Success false never carries Data; the pool clears it before the
// Future resolves.
type Result struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Data    *ResultData `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Failed builds an unsuccessful Result for the task.
func Failed(id string, err error) Result {
	return Result{ID: id, Error: err.Error()}
}

// Handler executes tasks inside a single worker. Handle is never called
// concurrently on the same Handler.
type Handler interface {
	Handle(ctx context.Context, task Task) Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task Task) Result

// Handle calls f(ctx, task).
func (f HandlerFunc) Handle(ctx context.Context, task Task) Result {
	return f(ctx, task)
}

// Factory builds the Handler for worker n (0-based).
type Factory func(n int) (Handler, error)

// safeHandle runs h and turns a panic into a failed Result.
func safeHandle(ctx context.Context, h Handler, task Task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{ID: task.ID, Error: fmt.Sprintf("worker panic: %v", r)}
		}
	}()
	return h.Handle(ctx, task)
}
