package async

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SafeGo] PANIC in %s: %v\nStack trace:\n%s",
					taskName, r, string(debug.Stack()))
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("[SafeGo] Error in %s: %v", taskName, err)
		}
	}()
}

// ForEach processes a slice of items concurrently with a bounded number of
// workers and a per-item timeout. Each item's error, if any, lands at the
// item's index in the returned slice, so callers can act per item.
//
// Panics in fn are recovered and reported as errors rather than crashing
// the process.
func ForEach[T any](ctx context.Context, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	errs := make([]error, len(items))
	indexCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				errs[i] = runOne(ctx, timeout, taskName, items[i], fn)
			}
		}()
	}

	for i := range items {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			errs[i] = ctx.Err()
		}
	}
	close(indexCh)
	wg.Wait()

	return errs
}

func runOne[T any](parentCtx context.Context, timeout time.Duration, taskName string, item T,
	fn func(context.Context, T) error) (err error) {

	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ForEach] PANIC in %s: %v\nStack trace:\n%s",
				taskName, r, string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(ctx, item)
}
