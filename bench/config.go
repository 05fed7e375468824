package bench

import (
	"io/ioutil"

	"github.com/feynman-go/lockchain/list"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PartsPerMillion is the denominator of the operation mix.
const PartsPerMillion = 1000000

// Mix splits operations between member, insert and delete in parts per million.
// Delete gets whatever member and insert leave.
type Mix struct {
	Member uint32 `yaml:"member"`
	Insert uint32 `yaml:"insert"`
}

func (m Mix) Delete() uint32 {
	return PartsPerMillion - m.Member - m.Insert
}

type Config struct {
	Policy string `yaml:"policy"`
	// Threads is the number of concurrent workers.
	Threads int `yaml:"threads"`
	// Operations is the number of operations issued by each worker.
	Operations int `yaml:"operations"`
	// ValueRange bounds the values used: [0, ValueRange).
	ValueRange int `yaml:"valueRange"`
	// Prefill is the number of distinct values inserted before timing starts.
	Prefill  int `yaml:"prefill"`
	Capacity int `yaml:"capacity"`
	Mix      Mix `yaml:"mix"`
	// Rate limits each worker to that many operations per second. Zero means unlimited.
	Rate float64 `yaml:"rate"`
}

// DefaultConfig is four workers issuing 100000 operations each over [0, 1000),
// 99.9% member, 0.05% insert and 0.05% delete, starting from an empty list.
func DefaultConfig() Config {
	return Config{
		Policy:     list.Coupling.String(),
		Threads:    4,
		Operations: 100000,
		ValueRange: 1000,
		Mix: Mix{
			Member: 999000,
			Insert: 500,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if _, err := list.ParsePolicy(cfg.Policy); err != nil {
		return err
	}
	switch {
	case cfg.Threads <= 0:
		return errors.Errorf("threads must be positive, got %d", cfg.Threads)
	case cfg.Operations < 0:
		return errors.Errorf("operations must not be negative, got %d", cfg.Operations)
	case cfg.ValueRange <= 0:
		return errors.Errorf("value range must be positive, got %d", cfg.ValueRange)
	case cfg.Prefill < 0 || cfg.Prefill > cfg.ValueRange:
		return errors.Errorf("prefill must be within [0, %d], got %d", cfg.ValueRange, cfg.Prefill)
	case cfg.Capacity > 0 && cfg.Prefill > cfg.Capacity:
		return errors.Errorf("prefill %d exceeds capacity %d", cfg.Prefill, cfg.Capacity)
	case uint64(cfg.Mix.Member)+uint64(cfg.Mix.Insert) > PartsPerMillion:
		return errors.Errorf("mix exceeds %d parts per million", PartsPerMillion)
	case cfg.Rate < 0:
		return errors.Errorf("rate must not be negative, got %v", cfg.Rate)
	}
	return nil
}
