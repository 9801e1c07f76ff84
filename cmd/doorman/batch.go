package main

import (
	"context"
	"fmt"

	"github.com/velvetrope/doorman/experiment"
	"github.com/velvetrope/doorman/logger"
	"github.com/velvetrope/doorman/version"
)

// BatchCmd runs several isolated sessions and compares strategies.
type BatchCmd struct {
	sessionFlags
	Strategies []string `default:"adaptive" help:"Strategies to compare"`
	Runs       int      `default:"3" help:"Sessions per strategy"`
	Workers    int      `default:"4" help:"Concurrent sessions"`
}

func (cmd BatchCmd) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	log.InfoContext(ctx, "starting batch",
		"version", version.Version(),
		"scenario", cmd.Scenario,
		"strategies", cmd.Strategies,
		"runs", cmd.Runs)

	store, err := cmd.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	metrics := cmd.startMetrics(ctx, log)

	newSource, cleanup, err := cmd.sourceFactory(log)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := experiment.Run(ctx, experiment.Config{
		Scenario:        cmd.Scenario,
		Strategies:      cmd.Strategies,
		Runs:            cmd.Runs,
		Workers:         cmd.Workers,
		Seed:            cmd.Seed,
		Capacity:        cmd.Capacity,
		RejectionBudget: cmd.RejectionBudget,
		Tolerance:       cmd.tolerance(),
		SafetyMargin:    cmd.SafetyMargin,
		Metrics:         metrics,
	}, newSource, store, log)
	if err != nil {
		return err
	}

	fmt.Printf("batch complete: %d sessions\n", len(report.Results))
	for _, agg := range report.Aggregates {
		fmt.Printf("  %-12s runs=%d errored=%d satisfied=%d avgRejected=%.1f",
			agg.Strategy, agg.Runs, agg.Errored, agg.Satisfied, agg.AvgRejected)
		if agg.BestRejected >= 0 {
			fmt.Printf(" bestRejected=%d", agg.BestRejected)
		}
		fmt.Println()
	}
	if report.Best != nil {
		fmt.Printf("best run: %s (%s, %d rejections)\n",
			report.Best.ID, report.Best.Strategy, report.Best.Summary.Rejected)
	} else {
		fmt.Println("no run satisfied all quotas")
	}

	return nil
}
