package assets

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

/**
 * @brief Error reported by a single asset of a ProgressCounter.
 */
type AssetError struct {
	Name string
	Err  error
}

func (e AssetError) Error() string {
	return fmt.Sprintf("asset '%s': %s", e.Name, e.Err)
}

func (e AssetError) Unwrap() error {
	return e.Err
}

/**
 * @brief Counts the assets submitted for one load and how many of them are done.
 * Safe for use from worker goroutines.
 */
type ProgressCounter struct {
	numAssets   atomic.Int64
	numLoading  atomic.Int64
	numFinished atomic.Int64
	numFailed   atomic.Int64

	mu     sync.Mutex
	errors []AssetError
}

func NewProgressCounter() *ProgressCounter {
	return &ProgressCounter{}
}

// CreateTracker registers one more outstanding asset. A nil counter returns a nil tracker.
func (p *ProgressCounter) CreateTracker() *Tracker {
	if p == nil {
		return nil
	}
	p.numAssets.Add(1)
	p.numLoading.Add(1)
	return &Tracker{progress: p}
}

func (p *ProgressCounter) NumAssets() int {
	return int(p.numAssets.Load())
}

func (p *ProgressCounter) NumLoading() int {
	return int(p.numLoading.Load())
}

func (p *ProgressCounter) NumFinished() int {
	return int(p.numFinished.Load())
}

func (p *ProgressCounter) NumFailed() int {
	return int(p.numFailed.Load())
}

// IsComplete reports whether every tracked asset has either finished or failed.
func (p *ProgressCounter) IsComplete() bool {
	return p.numLoading.Load() == 0
}

func (p *ProgressCounter) Errors() []AssetError {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AssetError, len(p.errors))
	copy(out, p.errors)
	return out
}

// Err joins all asset errors, or returns nil when nothing failed.
func (p *ProgressCounter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.errors) == 0 {
		return nil
	}
	errs := make([]error, len(p.errors))
	for i, e := range p.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

/**
 * @brief Completion token for a single asset. Only the first call to
 * Success or Fail has an effect.
 */
type Tracker struct {
	progress *ProgressCounter
	done     atomic.Bool
}

func (t *Tracker) Success() {
	if t == nil || !t.done.CompareAndSwap(false, true) {
		return
	}
	t.progress.numFinished.Add(1)
	t.progress.numLoading.Add(-1)
}

func (t *Tracker) Fail(name string, err error) {
	if t == nil || !t.done.CompareAndSwap(false, true) {
		return
	}
	t.progress.mu.Lock()
	t.progress.errors = append(t.progress.errors, AssetError{Name: name, Err: err})
	t.progress.mu.Unlock()
	t.progress.numFailed.Add(1)
	t.progress.numLoading.Add(-1)
}
