package runcontrol

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Collect fans inputs across a bounded worker pool and hands every
// result to collect on the caller's goroutine, in arrival order rather
// than submission order. Grouping therefore happens single-threaded;
// no task output is shared between goroutines.
//
// The gate is consulted before each task starts. Once ctx is canceled
// no new task begins; in-flight tasks observe the same context. Collect
// returns ctx.Err() after all started tasks have drained, so a stopped
// run still sees every fully finished result and nothing partial.
func Collect[T, R any](ctx context.Context, workers int, gate *Gate, inputs []T, task func(context.Context, T) R, collect func(R)) error {
	if workers <= 0 {
		workers = 1
	}

	results := make(chan R)
	var grp errgroup.Group
	grp.SetLimit(workers)

	go func() {
		defer close(results)
		for _, input := range inputs {
			input := input
			if gate.Wait(ctx) != nil {
				break
			}
			grp.Go(func() error {
				if gate.Wait(ctx) != nil {
					return nil
				}
				result := task(ctx, input)
				select {
				case results <- result:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = grp.Wait()
	}()

	for result := range results {
		collect(result)
	}
	return ctx.Err()
}
