package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is called after each artifact finishes. current counts
// finished artifacts, total is the number expected so far.
type ProgressFunc func(current, total int, name string)

// Tracker counts finished artifacts. It is safe for concurrent use.
type Tracker struct {
	total    atomic.Int32
	current  atomic.Int32
	failed   atomic.Int32
	callback ProgressFunc
}

// NewTracker creates a tracker that reports through callback.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int32(n))
}

// SetTotal replaces the expected total.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int32(n))
}

// Tick marks one artifact as finished.
func (t *Tracker) Tick(name string) {
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), name)
	}
}

// Fail marks one artifact as finished and abandoned.
func (t *Tracker) Fail(name string) {
	t.failed.Add(1)
	t.Tick(name)
}

// Current returns the number of finished artifacts.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Failed returns the number of abandoned artifacts.
func (t *Tracker) Failed() int {
	return int(t.failed.Load())
}

// Total returns the expected total.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the context's tracker, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
