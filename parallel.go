package peaks

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallel calls fn for each index in [0, n) using at most workers
// goroutines. worker identifies a slot that no other concurrent call holds,
// so fn may keep per-worker state in a slice of length workers. The first
// error returned by fn cancels the remaining work and is returned.
func parallel(ctx context.Context, n, workers int, fn func(ctx context.Context, worker, index int) error) error {
	workers = min(workers, n)
	if workers <= 0 {
		return ctx.Err()
	}

	slots := make(chan int, workers)
	for worker := range workers {
		slots <- worker
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for index := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			worker := <-slots
			defer func() {
				slots <- worker
			}()
			return fn(gctx, worker, index)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
