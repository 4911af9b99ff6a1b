package future

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

var ErrConsumed = errors.New("observable already consumed")

// Observable exposes the outcome of a Future as a sequence that emits once
// and completes. It can be consumed a single time.
type Observable[T any] struct {
	f        *Future[T]
	consumed atomic.Bool
}

func Observe[T any](f *Future[T]) *Observable[T] {
	return &Observable[T]{f: f}
}

// Seq returns the sequence. Nothing is awaited until the caller starts ranging
// over it. The value is yielded with a nil error on fulfillment, or the zero
// value with the rejection reason. Consuming a second time yields ErrConsumed.
func (o *Observable[T]) Seq(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if !o.consumed.CompareAndSwap(false, true) {
			var zero T
			yield(zero, ErrConsumed)
			return
		}
		yield(o.f.Await(ctx))
	}
}

// Subscribe consumes o with callbacks. Exactly one of next or fail runs; when
// next runs it is followed by complete. Nil callbacks are skipped.
func (o *Observable[T]) Subscribe(ctx context.Context, next func(T), fail func(error), complete func()) {
	for v, err := range o.Seq(ctx) {
		if err != nil {
			if fail != nil {
				fail(err)
			}
			return
		}
		if next != nil {
			next(v)
		}
	}
	if complete != nil {
		complete()
	}
}
