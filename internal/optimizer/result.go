package optimizer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ironsheep/image-optimizer/internal/imaging"
	"github.com/ironsheep/image-optimizer/internal/pool"
)

// ErrDisposed is returned by every operation after Dispose.
var ErrDisposed = errors.New("optimizer disposed")

// OptimizedImage is the encoded output of an optimization.
//
// The caller owns it. Data stays reachable through URL until Release is called.
type OptimizedImage struct {
	Data []byte `json:"-"`

	// URL is a "blob:" handle resolvable through Optimizer.Blobs.
	URL string `json:"url"`

	OriginalSize     int     `json:"original_size"`
	CompressedSize   int     `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`

	Width  int            `json:"width"`
	Height int            `json:"height"`
	Format imaging.Format `json:"format"`

	Progressive bool `json:"progressive"`

	// DominantColor is a "#rrggbb" placeholder colour for the image.
	DominantColor string `json:"dominant_color,omitempty"`

	releaseOnce sync.Once
	release     func()
}

// Release frees the URL. Data remains usable by the caller.
func (img *OptimizedImage) Release() {
	if img == nil {
		return
	}
	img.releaseOnce.Do(func() {
		if img.release != nil {
			img.release()
		}
	})
}

// TaskFailure reports that one task failed. Inside a batch it only affects its
// own item.
type TaskFailure struct {
	// Index is the input position inside a batch, or 0 for single calls.
	Index  int
	TaskID string
	Kind   pool.Kind
	Err    error
}

func (e *TaskFailure) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("item %d failed: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("%s task %s (item %d) failed: %v", e.Kind, e.TaskID, e.Index, e.Err)
}

func (e *TaskFailure) Unwrap() error { return e.Err }

// BatchItem is the outcome for one batch input. Exactly one of Image and Err is
// set.
type BatchItem struct {
	Index  int
	TaskID string
	Image  *OptimizedImage
	Err    error
}

// BatchResult holds one item per input, in input order.
type BatchResult struct {
	Items []BatchItem
}

// Succeeded returns the images of all successful items, in input order.
func (r *BatchResult) Succeeded() []*OptimizedImage {
	var out []*OptimizedImage
	for _, it := range r.Items {
		if it.Err == nil {
			out = append(out, it.Image)
		}
	}
	return out
}

// Failed returns the failed items, in input order.
func (r *BatchResult) Failed() []BatchItem {
	var out []BatchItem
	for _, it := range r.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Err joins the item errors, or returns nil when every item succeeded.
func (r *BatchResult) Err() error {
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, it.Err)
		}
	}
	return errors.Join(errs...)
}

// Release releases every successful image.
func (r *BatchResult) Release() {
	for _, it := range r.Items {
		it.Image.Release()
	}
}
