package main

import (
	"fmt"

	"github.com/velvetrope/doorman/version"
)

// VersionCmd prints version and build information.
type VersionCmd struct{}

func (cmd VersionCmd) Run() error {
	fmt.Printf("doorman %s\n", version.Version())
	return nil
}
