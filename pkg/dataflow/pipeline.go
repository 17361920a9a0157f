// Package dataflow runs channel based stages with worker pools and retries.
package dataflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Stream is a read-only channel of items.
type Stream[T any] <-chan T

// ErrSkip makes Map drop an item without reporting an error.
var ErrSkip = errors.New("skip item")

// From streams items in order.
func From[T any](ctx context.Context, items ...T) Stream[T] {
	out := make(chan T, len(items))
	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case out <- item:
			}
		}
	}()
	return out
}

// run calls fn with the configured retries. It reports false when ctx was
// cancelled while waiting to retry.
func run(ctx context.Context, cfg *config, fn func() error) (bool, error) {
	err := fn()
	for i := 1; err != nil && !errors.Is(err, ErrSkip) && i <= cfg.maxRetries; i++ {
		if cfg.backoff != nil {
			select {
			case <-ctx.Done():
				return false, err
			case <-time.After(cfg.backoff(i)):
			}
		}
		err = fn()
	}
	return true, err
}

// Map transforms every item of input. Items whose fn fails after retries
// are dropped and reported to the error handler.
func Map[In, Out any](ctx context.Context, input Stream[In], fn func(In) (Out, error), opts ...Option) Stream[Out] {
	cfg := apply(opts)
	out := make(chan Out, cfg.bufferSize)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-input:
				if !ok {
					return
				}
				var res Out
				alive, err := run(ctx, cfg, func() (err error) {
					res, err = fn(msg)
					return err
				})
				if !alive {
					return
				}
				if err != nil {
					if !errors.Is(err, ErrSkip) && cfg.errorHandler != nil {
						cfg.errorHandler(err)
					}
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- res:
				}
			}
		}
	}

	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go worker()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Filter keeps the items for which keep is true.
func Filter[T any](ctx context.Context, input Stream[T], keep func(T) bool, opts ...Option) Stream[T] {
	return Map(ctx, input, func(msg T) (T, error) {
		if keep(msg) {
			return msg, nil
		}
		var zero T
		return zero, ErrSkip
	}, opts...)
}

// ForEach runs fn for every item and blocks until input is drained. The
// first error not swallowed by the error handler is returned once every
// item was tried.
func ForEach[T any](ctx context.Context, input Stream[T], fn func(T) error, opts ...Option) error {
	cfg := apply(opts)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-input:
				if !ok {
					return
				}
				alive, err := run(ctx, cfg, func() error { return fn(msg) })
				if !alive {
					return
				}
				if err == nil || (cfg.errorHandler != nil && cfg.errorHandler(err)) {
					continue
				}
				errOnce.Do(func() { firstErr = err })
			}
		}
	}

	wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go worker()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return firstErr
}

// Collect drains input into a slice.
func Collect[T any](ctx context.Context, input Stream[T]) ([]T, error) {
	var out []T
	err := ForEach(ctx, input, func(item T) error {
		out = append(out, item)
		return nil
	})
	return out, err
}
