// Package bench drives a list.Set with a fixed operation mix from several workers and
// measures the wall-clock time of the run.
package bench

import (
	"context"
	"time"

	"github.com/feynman-go/lockchain/list"
	"github.com/feynman-go/lockchain/record"
	"github.com/feynman-go/lockchain/syncrun"
	"github.com/pkg/errors"
	"github.com/valyala/fastrand"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RunOption struct {
	Logger *zap.Logger
	// Recorders wraps each worker in a record. Nil records nothing.
	Recorders record.Factory
}

type Result struct {
	Policy     string
	Threads    int
	Operations int64
	Members    int64
	Inserts    int64
	Deletes    int64
	// Hits counts operations that returned true.
	Hits    int64
	Elapsed time.Duration
	Len     int
}

func (r Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Operations) / r.Elapsed.Seconds()
}

// NewList builds the list described by cfg.
func NewList(cfg Config, logger *zap.Logger) (*list.List, error) {
	policy, err := list.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return list.New(list.Option{
		Policy:   policy,
		Capacity: cfg.Capacity,
		Logger:   logger,
	}), nil
}

// Prefill inserts random distinct values until set holds n of them.
func Prefill(set list.Set, n int, valueRange int) error {
	for set.Len() < n {
		if _, err := set.Insert(int(fastrand.Uint32n(uint32(valueRange)))); err != nil {
			return errors.WithMessage(err, "prefill")
		}
	}
	return nil
}

type counters struct {
	members atomic.Int64
	inserts atomic.Int64
	deletes atomic.Int64
	hits    atomic.Int64
}

// Run issues cfg.Operations operations from each of cfg.Threads workers against set.
// The context is checked between operations only; an operation in flight always completes.
func Run(ctx context.Context, set list.Set, cfg Config, option RunOption) (Result, error) {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	result := Result{Policy: cfg.Policy, Threads: cfg.Threads}
	if err := cfg.Validate(); err != nil {
		return result, err
	}
	if err := Prefill(set, cfg.Prefill, cfg.ValueRange); err != nil {
		return result, err
	}

	logger := option.Logger.With(zap.String("policy", cfg.Policy))
	logger.Info("bench start",
		zap.Int("threads", cfg.Threads),
		zap.Int("operations", cfg.Operations),
		zap.Int("valueRange", cfg.ValueRange),
		zap.Int("len", set.Len()))

	cs := &counters{}
	start := time.Now()
	err := syncrun.Run(ctx, cfg.Threads, func(ctx context.Context, rank int) error {
		w := &worker{set: set, cfg: cfg, counters: cs}
		if cfg.Rate > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
		}
		if option.Recorders == nil {
			return w.run(ctx)
		}
		return record.Do(ctx, option.Recorders, "worker", w.run, record.IntField("rank", rank))
	})
	result.Elapsed = time.Since(start)
	result.Members = cs.members.Load()
	result.Inserts = cs.inserts.Load()
	result.Deletes = cs.deletes.Load()
	result.Hits = cs.hits.Load()
	result.Operations = result.Members + result.Inserts + result.Deletes
	result.Len = set.Len()

	if err != nil {
		logger.Error("bench failed", zap.Error(err), zap.Int64("operations", result.Operations))
		return result, err
	}
	logger.Info("bench finish",
		zap.Duration("elapsed", result.Elapsed),
		zap.Int64("operations", result.Operations),
		zap.Float64("opsPerSecond", result.OpsPerSecond()),
		zap.Int("len", result.Len))
	return result, nil
}

type worker struct {
	set      list.Set
	cfg      Config
	limiter  *rate.Limiter
	counters *counters
}

func (w *worker) run(ctx context.Context) error {
	var members, inserts, deletes, hits int64
	defer func() {
		w.counters.members.Add(members)
		w.counters.inserts.Add(inserts)
		w.counters.deletes.Add(deletes)
		w.counters.hits.Add(hits)
	}()

	memberBound := w.cfg.Mix.Member
	insertBound := memberBound + w.cfg.Mix.Insert
	for i := 0; i < w.cfg.Operations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		v := int(fastrand.Uint32n(uint32(w.cfg.ValueRange)))
		var (
			ok  bool
			err error
		)
		switch roll := fastrand.Uint32n(PartsPerMillion); {
		case roll < memberBound:
			ok, err = w.set.Member(v)
			members++
		case roll < insertBound:
			ok, err = w.set.Insert(v)
			inserts++
		default:
			ok, err = w.set.Delete(v)
			deletes++
		}
		if err != nil {
			return err
		}
		if ok {
			hits++
		}
	}
	return nil
}
