package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	persistlog "railnet.ai/internal/persistence/log"
	"railnet.ai/internal/sim/rail/reconcile"
)

type eventsCmd struct {
	Args struct {
		Paths []string `positional-arg-name:"PATH" required:"1" description:"Event log files or directories holding reconcile-*.jsonl.zst"`
	} `positional-args:"true"`

	Outcome string `long:"outcome" description:"Only count events with this outcome"`
	List    bool   `short:"l" long:"list" description:"Print every matching event"`
}

type eventSummary struct {
	Total     int
	ByOutcome map[reconcile.Outcome]int
	MaxAgeMs  int64
}

// Execute summarizes the given event logs.
func (c *eventsCmd) Execute(_ []string) error {
	files, err := expandEventPaths(c.Args.Paths)
	if err != nil {
		return err
	}
	var list io.Writer
	if c.List {
		list = os.Stdout
	}
	sum, err := summarizeEvents(files, reconcile.Outcome(c.Outcome), list)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, sum)
	return nil
}

func expandEventPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "reconcile-*.jsonl.zst"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

func summarizeEvents(files []string, only reconcile.Outcome, list io.Writer) (eventSummary, error) {
	sum := eventSummary{ByOutcome: map[reconcile.Outcome]int{}}
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var rec persistlog.EventRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if only != "" && rec.Outcome != only {
				return nil
			}
			sum.Total++
			sum.ByOutcome[rec.Outcome]++
			sum.MaxAgeMs = max(sum.MaxAgeMs, rec.AgeMs)
			if list != nil {
				_, err := fmt.Fprintf(list, "%s %s %-9s %d->%d %s\n", rec.Namespace, rec.ID, rec.Outcome, rec.FromHeight, rec.ToHeight, rec.Err)
				return err
			}
			return nil
		})
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func printSummary(w io.Writer, sum eventSummary) {
	outcomes := make([]string, 0, len(sum.ByOutcome))
	for o := range sum.ByOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	fmt.Fprintf(w, "events: %d\n", sum.Total)
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s: %d\n", o, sum.ByOutcome[reconcile.Outcome(o)])
	}
	fmt.Fprintf(w, "max age: %dms\n", sum.MaxAgeMs)
}
