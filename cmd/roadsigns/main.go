// Package main is the roadsigns command line entry point.
package main

import (
	"cmp"

	"github.com/atinyakov/roadsigns/internal/cmd"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	cmd.Execute(cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
}
