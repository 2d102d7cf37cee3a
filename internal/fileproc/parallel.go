// Package fileproc provides concurrent artifact processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing an
// artifact.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d artifacts failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns nil (ProcessingErrors doesn't wrap a single error).
func (e *ProcessingErrors) Unwrap() error {
	return nil
}

// PanicError is returned for a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// DefaultWorkers returns the default pool size: one worker per available
// processor.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// DoneFunc is called after each item finishes, with a nil error on
// success.
type DoneFunc func(name string, err error)

// ForEachN runs fn for every item on a pool of at most maxWorkers
// goroutines (DefaultWorkers when <= 0). Errors and panics are collected
// per item and never stop sibling items. It returns after every item has
// finished; the result is nil when nothing failed.
func ForEachN[T any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	name func(T) string,
	fn func(context.Context, T) error,
	onDone DoneFunc,
) *ProcessingErrors {
	if len(items) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers()
	}

	errs := &ProcessingErrors{}
	p := pool.New().WithMaxGoroutines(maxWorkers)
	for _, item := range items {
		p.Go(func() {
			id := name(item)
			err := runGuarded(ctx, item, fn)
			if err != nil {
				errs.Add(id, err)
			}
			if onDone != nil {
				onDone(id, err)
			}
		})
	}
	p.Wait()

	if !errs.HasErrors() {
		return nil
	}
	return errs
}

func runGuarded[T any](ctx context.Context, item T, fn func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, item)
}
