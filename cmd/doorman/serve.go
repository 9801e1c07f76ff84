package main

import (
	"context"

	"github.com/velvetrope/doorman/logger"
	"github.com/velvetrope/doorman/simulator"
	"github.com/velvetrope/doorman/version"
)

// ServeCmd runs the local game simulator as a standalone service.
type ServeCmd struct {
	Port int    `default:"8090" help:"Port to listen on"`
	Seed uint64 `default:"1" help:"Seed for the candidate streams"`
}

func (cmd ServeCmd) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	log.InfoContext(ctx, "simulator starting",
		"version", version.Version(),
		"port", cmd.Port)

	sim := simulator.New(log, cmd.Seed)
	return sim.ListenAndServe(ctx, cmd.Port)
}
