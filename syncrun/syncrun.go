package syncrun

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Run starts n workers, numbered 0 to n-1, and waits for all of them to return.
// The first failing worker cancels the context seen by the others. A panicking worker is
// reported as an error. All worker errors are combined into the returned error.
func Run(ctx context.Context, n int, worker func(ctx context.Context, rank int) error) error {
	var cancel func()
	ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		errs error
	)
	endGroup := &sync.WaitGroup{}
	for i := 0; i < n; i++ {
		endGroup.Add(1)
		go func(rank int) {
			defer endGroup.Done()
			err := protect(ctx, rank, worker)
			if err == nil {
				return
			}
			cancel()
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
		}(i)
	}
	endGroup.Wait()
	return errs
}

func protect(ctx context.Context, rank int, worker func(ctx context.Context, rank int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("worker %d panic: %v", rank, r)
		}
	}()
	if err = worker(ctx, rank); err != nil {
		return errors.WithMessagef(err, "worker %d", rank)
	}
	return nil
}
