package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"railnet.ai/internal/persistence/indexdb"
)

type runsCmd struct {
	Args struct {
		DB string `positional-arg-name:"DB" required:"true" description:"Path to a world.sqlite index"`
	} `positional-args:"true"`

	Run string `short:"r" long:"run" description:"Show kind counts and outcomes for this run id"`
}

// Execute lists runs, or details one run.
func (c *runsCmd) Execute(_ []string) error {
	if _, err := os.Stat(c.Args.DB); err != nil {
		return err
	}
	idx, err := indexdb.OpenSQLite(c.Args.DB)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	if c.Run == "" {
		runs, err := idx.Runs(ctx)
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Println(id)
		}
		return nil
	}

	counts, err := idx.KindCounts(ctx, c.Run)
	if err != nil {
		return err
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("kind %s: %d\n", k, counts[k])
	}
	rows, err := idx.Outcomes(ctx, c.Run)
	if err != nil {
		return err
	}
	for _, r := range rows {
		fmt.Printf("%d %s %s delta=%d %s\n", r.Seq, r.ID, r.Outcome, r.Delta, r.Err)
	}
	return nil
}
