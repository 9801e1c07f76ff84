package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/velvetrope/doorman/api"
	"github.com/velvetrope/doorman/game"
	"github.com/velvetrope/doorman/logger"
	"github.com/velvetrope/doorman/metricsserver"
	"github.com/velvetrope/doorman/resultstore"
	"github.com/velvetrope/doorman/simulator"
	"github.com/velvetrope/doorman/strategy"
)

type sessionFlags struct {
	Scenario        int    `default:"1" help:"Scenario to play"`
	Capacity        int    `default:"1000" help:"Admission capacity"`
	RejectionBudget int    `default:"20000" help:"Maximum rejections before the session fails" name:"rejection-budget"`
	Seed            uint64 `default:"1" help:"Random seed"`

	InitialTolerance float64 `default:"0.20" help:"Quota tolerance while the session is young" name:"initial-tolerance"`
	FinalTolerance   float64 `default:"0.02" help:"Quota tolerance near capacity" name:"final-tolerance"`
	StrictnessStart  float64 `default:"0.10" help:"Progress fraction where tolerance starts tightening" name:"strictness-start"`
	SafetyMargin     float64 `default:"0.10" help:"Quota headroom for the constraintaware strategy" name:"safety-margin"`

	BaseURL  string `help:"Game service base URL (overrides DOORMAN_BASE_URL)" name:"base-url"`
	PlayerID string `help:"Player ID (overrides DOORMAN_PLAYER_ID)" name:"player-id"`
	Local    bool   `help:"Play against an in-process simulator instead of the remote service"`

	Store       string `help:"Path to a sqlite result store" type:"path"`
	MetricsPort int    `default:"0" help:"Metrics server port (0 disables)" name:"metrics-port"`
}

func (f *sessionFlags) tolerance() strategy.ToleranceConfig {
	return strategy.ToleranceConfig{
		InitialTolerance: f.InitialTolerance,
		FinalTolerance:   f.FinalTolerance,
		StrictnessStart:  f.StrictnessStart,
	}
}

// sourceFactory returns a constructor yielding one source per session
// plus a cleanup function. With --local a single simulator backs every
// session, each through its own client.
func (f *sessionFlags) sourceFactory(log *slog.Logger) (func() (game.Source, error), func(), error) {
	if f.Local {
		sim := simulator.New(log, f.Seed)
		baseURL, stop, err := sim.Start()
		if err != nil {
			return nil, nil, fmt.Errorf("starting simulator: %w", err)
		}
		return func() (game.Source, error) {
			return api.NewClient(api.Config{BaseURL: baseURL, PlayerID: "local"})
		}, stop, nil
	}

	cfg, err := api.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if len(f.BaseURL) > 0 {
		cfg.BaseURL = f.BaseURL
	}
	if len(f.PlayerID) > 0 {
		cfg.PlayerID = f.PlayerID
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return func() (game.Source, error) {
		return api.NewClient(cfg)
	}, func() {}, nil
}

func (f *sessionFlags) openStore() (*resultstore.Store, error) {
	if len(f.Store) == 0 {
		return nil, nil
	}
	return resultstore.Open(f.Store)
}

func (f *sessionFlags) startMetrics(ctx context.Context, log *slog.Logger) *strategy.Metrics {
	if f.MetricsPort == 0 {
		return nil
	}
	srv := metricsserver.New()
	go func() {
		if err := srv.ListenAndServe(ctx, f.MetricsPort); err != nil {
			log.Error("metrics server error", "err", err)
		}
	}()
	return strategy.NewMetrics(srv.Registry())
}

// RunCmd plays a single session.
type RunCmd struct {
	sessionFlags
	Strategy string `default:"adaptive" help:"Admission strategy"`
}

func (cmd RunCmd) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	newSource, cleanup, err := cmd.sourceFactory(log)
	if err != nil {
		return err
	}
	defer cleanup()

	source, err := newSource()
	if err != nil {
		return err
	}

	store, err := cmd.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	metrics := cmd.startMetrics(ctx, log)

	factory, err := strategy.Factory(cmd.Strategy, strategy.Options{
		Tolerance:    cmd.tolerance(),
		Seed:         cmd.Seed,
		SafetyMargin: cmd.SafetyMargin,
		Logger:       log,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}

	runner, err := game.NewRunner(source, factory, game.RunnerConfig{
		Scenario:        cmd.Scenario,
		Capacity:        cmd.Capacity,
		RejectionBudget: cmd.RejectionBudget,
	}, log)
	if err != nil {
		return err
	}

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(summary)

	if store != nil {
		id := ulid.Make().String()
		if err := store.Save(ctx, id, summary, time.Since(start)); err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		fmt.Printf("saved as %s\n", id)
	}

	return nil
}

func printSummary(s *game.Summary) {
	fmt.Printf("session %s: %s\n", s.GameID, s.Status)
	fmt.Printf("  strategy:  %s\n", s.Strategy)
	fmt.Printf("  admitted:  %d\n", s.Admitted)
	fmt.Printf("  rejected:  %d\n", s.Rejected)
	fmt.Printf("  seen:      %d (%.1f%% accepted)\n", s.TotalSeen, s.AcceptanceRate*100)
	for _, q := range s.Quotas {
		mark := "MISSED"
		if q.Satisfied {
			mark = "ok"
		}
		fmt.Printf("  quota %-20s %4d/%-4d %s\n", q.Attribute, q.Actual, q.Required, mark)
	}
	fmt.Printf("  all quotas satisfied: %v\n", s.AllSatisfied)
}
