// Command railmap inspects rail networks offline: glyph maps, single-cell
// decisions, reconciliation event logs and the sqlite index.
package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type rootCmd struct {
	Map    mapCmd    `command:"map" description:"Render a glyph map of a world's network"`
	Cell   cellCmd   `command:"cell" description:"Show the terrain-adjusted decision for one cell"`
	Events eventsCmd `command:"events" description:"Summarize reconciliation event logs"`
	Runs   runsCmd   `command:"runs" description:"List runs and outcomes from a sqlite index"`
}

func main() {
	var root rootCmd
	parser := flags.NewParser(&root, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
