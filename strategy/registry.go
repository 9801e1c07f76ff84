package strategy

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/velvetrope/doorman/game"
)

// Options configures strategy construction. Every session gets its own
// random stream derived from Seed, so sessions replay deterministically
// and share no mutable state.
type Options struct {
	Tolerance    ToleranceConfig
	Seed         uint64
	RandomRate   float64 // acceptance probability for the random baseline
	SafetyMargin float64 // quota headroom for the constraint-aware strategy
	Logger       *slog.Logger
	Metrics      *Metrics
}

func (o *Options) setDefaults() {
	if o.Tolerance == (ToleranceConfig{}) {
		o.Tolerance = DefaultToleranceConfig()
	}
	if o.RandomRate == 0 {
		o.RandomRate = 0.5
	}
	if o.SafetyMargin == 0 {
		o.SafetyMargin = 0.1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type builder func(info game.SessionInfo, opts Options) (game.Strategy, error)

var registry = map[string]builder{
	"adaptive": func(info game.SessionInfo, opts Options) (game.Strategy, error) {
		return NewAdaptive(info, opts.Tolerance, newRand(opts.Seed), opts.Logger, opts.Metrics)
	},
	"acceptall": func(info game.SessionInfo, opts Options) (game.Strategy, error) {
		return &AcceptAll{metrics: opts.Metrics}, nil
	},
	"constraintaware": func(info game.SessionInfo, opts Options) (game.Strategy, error) {
		return NewConstraintAware(info, opts.SafetyMargin, opts.Metrics)
	},
	"random": func(info game.SessionInfo, opts Options) (game.Strategy, error) {
		if opts.RandomRate < 0 || opts.RandomRate > 1 {
			return nil, fmt.Errorf("random rate %v outside [0,1]", opts.RandomRate)
		}
		return &Random{rate: opts.RandomRate, rng: newRand(opts.Seed), metrics: opts.Metrics}, nil
	},
}

// New builds a strategy by name.
func New(name string, info game.SessionInfo, opts Options) (game.Strategy, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v)", name, Names())
	}
	opts.setDefaults()
	return b(info, opts)
}

// Factory returns a game.StrategyFactory for the named strategy.
func Factory(name string, opts Options) (game.StrategyFactory, error) {
	if _, ok := registry[name]; !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v)", name, Names())
	}
	return func(info game.SessionInfo) (game.Strategy, error) {
		return New(name, info, opts)
	}, nil
}

// Names lists the registered strategies, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
