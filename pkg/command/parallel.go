package command

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// RunParallel executes commands over at most limit duplicates of runner and
// returns the results in input order. runner itself is not used for
// execution. Every duplicate is closed before RunParallel returns.
func RunParallel(
	ctx context.Context,
	runner CommandRunner,
	commands []string,
	limit int,
) ([]*ExecuteResult, error) {
	if len(commands) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > len(commands) {
		limit = len(commands)
	}

	results := make([]*ExecuteResult, len(commands))
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range commands {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < limit; w++ {
		g.Go(func() (err error) {
			dup, err := runner.Duplicate(gctx)
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, dup.Close())
			}()

			for i := range jobs {
				res, err := dup.Execute(gctx, commands[i])
				if err != nil {
					return err
				}
				results[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
