// Command listbench times concurrent workers against the sorted list under each
// synchronization policy.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/feynman-go/lockchain/bench"
	"github.com/feynman-go/lockchain/list"
	"github.com/feynman-go/lockchain/list/listprom"
	"github.com/feynman-go/lockchain/record"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash|flags.PrintErrors)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	policies, err := opts.policies(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	recorders := record.EasyRecorders("listbench_worker_seconds", logger, reg)

	fmt.Fprintf(out, "%-10s %8s %12s %14s %14s %8s\n", "policy", "threads", "operations", "elapsed", "ops/s", "len")
	for _, policy := range policies {
		cfg.Policy = policy
		result, err := runPolicy(ctx, cfg, logger, reg, recorders)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-10s %8d %12d %14s %14.0f %8d\n",
			result.Policy, result.Threads, result.Operations, result.Elapsed, result.OpsPerSecond(), result.Len)
	}

	if opts.Metrics {
		mfs, err := reg.Gather()
		if err != nil {
			return errors.Wrap(err, "gather metrics")
		}
		for _, mf := range mfs {
			if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
				return errors.Wrap(err, "write metrics")
			}
		}
	}
	return nil
}

func runPolicy(ctx context.Context, cfg bench.Config, logger *zap.Logger, reg prometheus.Registerer, recorders record.Factory) (bench.Result, error) {
	l, err := bench.NewList(cfg, logger)
	if err != nil {
		return bench.Result{}, err
	}
	listprom.New(l, "listbench").MustRegister(reg)

	result, err := bench.Run(ctx, l, cfg, bench.RunOption{
		Logger:    logger,
		Recorders: recorders,
	})
	if err != nil {
		return result, err
	}
	if err = checkQuiescent(l); err != nil {
		return result, err
	}
	l.Clear()
	return result, nil
}

// checkQuiescent verifies the chain after all workers have returned.
func checkQuiescent(l *list.List) error {
	stats := l.Stats()
	if stats.HeldLocks != 0 {
		return errors.Errorf("%v: %d locks still held after the run", stats.Policy, stats.HeldLocks)
	}
	vs, err := l.Values()
	if err != nil {
		return err
	}
	for i := 1; i < len(vs); i++ {
		if vs[i-1] >= vs[i] {
			return errors.Errorf("%v: chain out of order at %d", stats.Policy, i)
		}
	}
	if len(vs) != stats.Len {
		return errors.Errorf("%v: chain holds %d values but %d nodes are live", stats.Policy, len(vs), stats.Len)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}
