package future

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// All joins fs into one Future. It fulfills with the results in input order
// once every input has fulfilled, and rejects with the first rejection as soon
// as one happens. Inputs still pending at that point are neither awaited nor
// cancelled; their outcomes are dropped.
func All[T any](ctx context.Context, fs ...*Future[T]) *Future[[]T] {
	joined := New[[]T]()
	if len(fs) == 0 {
		joined.Resolve([]T{})
		return joined
	}

	results := make([]T, len(fs))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fs {
		g.Go(func() error {
			v, err := f.Await(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			joined.Reject(err)
			return
		}
		joined.Resolve(results)
	}()
	return joined
}
