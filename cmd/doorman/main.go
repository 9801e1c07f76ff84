package main

import (
	"github.com/MakeNowJust/heredoc"

	rootcmd "github.com/velvetrope/doorman/cmd"
)

// CLI is the top-level command structure.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run one admission session"`
	Batch   BatchCmd   `cmd:"" help:"Run a batch of sessions and compare strategies"`
	Serve   ServeCmd   `cmd:"" help:"Run the local game simulator"`
	Version VersionCmd `cmd:"" help:"Print version and build information"`
}

func main() {
	rootcmd.Run(&CLI{}, "doorman",
		heredoc.Doc(`
			Admission-control client for the gate game service.

			doorman plays sessions against the remote service (or a
			local simulator), deciding in real time which candidates
			to admit so every attribute quota is met by the time
			capacity fills.
		`),
	)
}
