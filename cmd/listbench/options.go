package main

import (
	"github.com/feynman-go/lockchain/bench"
	"github.com/feynman-go/lockchain/list"
)

// Options are interpreted by github.com/jessevdk/go-flags. Zero values keep the config file
// (or default) setting.
type Options struct {
	Config     string  `short:"f" long:"config" description:"benchmark YAML config path"`
	Policy     string  `short:"p" long:"policy" description:"coupling, exclusive, rwlock or all"`
	Threads    int     `short:"t" long:"threads" description:"number of workers"`
	Operations int     `short:"n" long:"operations" description:"operations per worker"`
	ValueRange int     `short:"r" long:"range" description:"values are drawn from [0, range)"`
	Prefill    int     `long:"prefill" description:"distinct values inserted before timing"`
	Capacity   int     `long:"capacity" description:"maximum live nodes, 0 for unbounded"`
	MemberPPM  uint32  `long:"member-ppm" description:"member operations per million"`
	InsertPPM  uint32  `long:"insert-ppm" description:"insert operations per million"`
	Rate       float64 `long:"rate" description:"operations per second per worker, 0 for unlimited"`
	Metrics    bool    `short:"m" long:"metrics" description:"print collected metrics after the run"`
	Verbose    bool    `short:"v" long:"verbose" description:"debug logging"`
}

// config applies the options over the file (or default) configuration.
func (o *Options) config() (bench.Config, error) {
	cfg := bench.DefaultConfig()
	if o.Config != "" {
		var err error
		if cfg, err = bench.LoadConfig(o.Config); err != nil {
			return cfg, err
		}
	}
	if o.Threads != 0 {
		cfg.Threads = o.Threads
	}
	if o.Operations != 0 {
		cfg.Operations = o.Operations
	}
	if o.ValueRange != 0 {
		cfg.ValueRange = o.ValueRange
	}
	if o.Prefill != 0 {
		cfg.Prefill = o.Prefill
	}
	if o.Capacity != 0 {
		cfg.Capacity = o.Capacity
	}
	if o.MemberPPM != 0 {
		cfg.Mix.Member = o.MemberPPM
	}
	if o.InsertPPM != 0 {
		cfg.Mix.Insert = o.InsertPPM
	}
	if o.Rate != 0 {
		cfg.Rate = o.Rate
	}
	return cfg, nil
}

// policies returns the policies to run. "all" runs every policy in turn.
func (o *Options) policies(cfg bench.Config) ([]string, error) {
	name := o.Policy
	if name == "" {
		name = cfg.Policy
	}
	if name == "all" {
		var ret []string
		for _, p := range list.Policies() {
			ret = append(ret, p.String())
		}
		return ret, nil
	}
	p, err := list.ParsePolicy(name)
	if err != nil {
		return nil, err
	}
	return []string{p.String()}, nil
}
