// Package main is the entry point for the ordeal self-check runner.
package main

import (
	"os"

	"github.com/ordeal-dev/ordeal/cli"
	"github.com/ordeal-dev/ordeal/internal/buildinfo"
	"github.com/ordeal-dev/ordeal/internal/selfcheck"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
)

func main() {
	buildinfo.Version = version
	buildinfo.Commit = commit

	os.Exit(cli.Main("ordeal", selfcheck.Suite()))
}
