package dataflow

import (
	"context"
	"sync"
)

// FanIn merges streams into one that closes once every input is drained or
// ctx is done. Items of one stream keep their relative order; streams
// interleave freely.
func FanIn[T any](ctx context.Context, streams ...Stream[T]) Stream[T] {
	out := make(chan T)
	var wg sync.WaitGroup
	wg.Add(len(streams))
	for _, s := range streams {
		go func(s Stream[T]) {
			defer wg.Done()
			forward(ctx, s, out)
		}(s)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// forward copies in to out until in closes or ctx is done.
func forward[T any](ctx context.Context, in Stream[T], out chan<- T) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}
}
