// Package experiment orchestrates batches of isolated sessions so
// strategies and configurations can be compared. Sessions share no
// mutable state: each gets its own source connection, tracker, and
// random stream, and one session's failure never aborts its siblings.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/velvetrope/doorman/api"
	"github.com/velvetrope/doorman/game"
	"github.com/velvetrope/doorman/resultstore"
	"github.com/velvetrope/doorman/strategy"
)

// Config describes one batch.
type Config struct {
	Scenario        int
	Strategies      []string
	Runs            int // sessions per strategy
	Workers         int
	Seed            uint64
	Capacity        int
	RejectionBudget int
	Tolerance       strategy.ToleranceConfig
	SafetyMargin    float64
	Metrics         *strategy.Metrics
}

func (cfg *Config) setDefaults() error {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = []string{"adaptive"}
	}
	if cfg.Runs == 0 {
		cfg.Runs = 1
	}
	if cfg.Runs < 0 {
		return fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return nil
}

// Result is the outcome of one session.
type Result struct {
	ID       string
	Strategy string
	Seed     uint64
	Summary  *game.Summary
	Duration time.Duration
	Err      error
}

// Aggregate summarizes all runs of one strategy.
type Aggregate struct {
	Strategy     string
	Runs         int
	Errored      int
	Satisfied    int
	AvgRejected  float64
	BestRejected int // -1 when no run satisfied its quotas
}

// Report is the outcome of a batch.
type Report struct {
	Results    []Result
	Aggregates []Aggregate
	// Best is the quota-satisfying completed run with the fewest
	// rejections, or nil.
	Best *Result
}

// retrySource retries opening a session with exponential backoff.
// Decisions are never retried; once submitted they are irreversible.
type retrySource struct {
	inner game.Source
}

func (r retrySource) NewGame(ctx context.Context, scenario int) (*api.NewGameResponse, error) {
	return backoff.Retry(ctx, func() (*api.NewGameResponse, error) {
		return r.inner.NewGame(ctx, scenario)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
}

func (r retrySource) DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*api.DecideResponse, error) {
	return r.inner.DecideAndNext(ctx, gameID, personIndex, accept)
}

// Run executes the batch. newSource is called once per session so each
// session has its own physical connection. Results are saved to the
// store when one is provided.
func Run(ctx context.Context, cfg Config, newSource func() (game.Source, error), store *resultstore.Store, log *slog.Logger) (*Report, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	if newSource == nil {
		return nil, fmt.Errorf("source constructor is required")
	}
	if log == nil {
		log = slog.Default()
	}

	type job struct {
		idx      int
		strategy string
		seed     uint64
	}

	jobs := make([]job, 0, len(cfg.Strategies)*cfg.Runs)
	for _, name := range cfg.Strategies {
		for i := 0; i < cfg.Runs; i++ {
			jobs = append(jobs, job{
				idx:      len(jobs),
				strategy: name,
				seed:     cfg.Seed + uint64(len(jobs))*0x9e3779b97f4a7c15,
			})
		}
	}

	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, j := range jobs {
		g.Go(func() error {
			res := Result{
				ID:       ulid.Make().String(),
				Strategy: j.strategy,
				Seed:     j.seed,
			}

			start := time.Now()
			summary, err := runOne(gctx, cfg, j.strategy, j.seed, newSource, log)
			res.Duration = time.Since(start)
			res.Summary = summary
			res.Err = err

			if err != nil {
				// Contain the failure; siblings keep running.
				log.Warn("session failed",
					"runID", res.ID,
					"strategy", j.strategy,
					"err", err)
			}

			results[j.idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if store != nil {
		for _, res := range results {
			if res.Summary == nil {
				continue
			}
			if err := store.Save(ctx, res.ID, res.Summary, res.Duration); err != nil {
				log.Warn("could not save run", "runID", res.ID, "err", err)
			}
		}
	}

	return buildReport(results), nil
}

func runOne(ctx context.Context, cfg Config, name string, seed uint64, newSource func() (game.Source, error), log *slog.Logger) (*game.Summary, error) {
	source, err := newSource()
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}

	factory, err := strategy.Factory(name, strategy.Options{
		Tolerance:    cfg.Tolerance,
		Seed:         seed,
		SafetyMargin: cfg.SafetyMargin,
		Logger:       log,
		Metrics:      cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	runner, err := game.NewRunner(retrySource{inner: source}, factory, game.RunnerConfig{
		Scenario:        cfg.Scenario,
		Capacity:        cfg.Capacity,
		RejectionBudget: cfg.RejectionBudget,
	}, log)
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx)
}

func buildReport(results []Result) *Report {
	report := &Report{Results: results}

	byStrategy := map[string]*Aggregate{}
	var order []string

	for i := range results {
		res := &results[i]

		agg, ok := byStrategy[res.Strategy]
		if !ok {
			agg = &Aggregate{Strategy: res.Strategy, BestRejected: -1}
			byStrategy[res.Strategy] = agg
			order = append(order, res.Strategy)
		}
		agg.Runs++

		if res.Err != nil || res.Summary == nil {
			agg.Errored++
			continue
		}

		agg.AvgRejected += float64(res.Summary.Rejected)

		satisfied := res.Summary.AllSatisfied && res.Summary.Status == game.StatusCompleted.String()
		if satisfied {
			agg.Satisfied++
			if agg.BestRejected < 0 || res.Summary.Rejected < agg.BestRejected {
				agg.BestRejected = res.Summary.Rejected
			}
			if report.Best == nil || res.Summary.Rejected < report.Best.Summary.Rejected {
				report.Best = res
			}
		}
	}

	sort.Strings(order)
	for _, name := range order {
		agg := byStrategy[name]
		if n := agg.Runs - agg.Errored; n > 0 {
			agg.AvgRejected /= float64(n)
		}
		report.Aggregates = append(report.Aggregates, *agg)
	}

	return report
}
