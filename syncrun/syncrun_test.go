package syncrun

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

func TestRunWaitsForAll(t *testing.T) {
	var count int32
	err := Run(context.Background(), 10, func(ctx context.Context, rank int) error {
		time.Sleep(time.Duration(rank) * time.Millisecond)
		atomic.AddInt32(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if count != 10 {
		t.Fatal("bad worker count", count)
	}
}

func TestRunCancelsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), 4, func(ctx context.Context, rank int) error {
		if rank == 0 {
			return boom
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("not cancelled")
		}
	})
	errs := multierr.Errors(err)
	if len(errs) != 1 || errors.Cause(errs[0]) != boom {
		t.Fatal("expect the single worker error", err)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	err := Run(context.Background(), 2, func(ctx context.Context, rank int) error {
		if rank == 1 {
			panic("bad worker")
		}
		return nil
	})
	if err == nil {
		t.Fatal("panic should be reported as error")
	}
}
