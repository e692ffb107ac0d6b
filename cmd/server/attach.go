package main

import (
	"errors"
	"log"
	"path/filepath"
	"sync"

	"railnet.ai/internal/persistence/indexdb"
	persistlog "railnet.ai/internal/persistence/log"
	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/rail/topology"
	"railnet.ai/internal/sim/tuning"
)

type attacher struct {
	dataDir   string
	disableDB bool
	tune      tuning.Tuning
	logger    *log.Logger

	mu      sync.Mutex
	indexes map[string]*indexdb.SQLiteIndex
}

func newAttacher(dataDir string, disableDB bool, tune tuning.Tuning, logger *log.Logger) *attacher {
	return &attacher{
		dataDir:   dataDir,
		disableDB: disableDB,
		tune:      tune,
		logger:    logger,
		indexes:   map[string]*indexdb.SQLiteIndex{},
	}
}

// Attach wires one namespace's outputs: reconciliation events and adjusted
// decisions go to JSONL logs under <data>/worlds, and, unless indexing is off,
// every decision and outcome goes to the namespace's SQLite index.
func (a *attacher) Attach(ns string, seed int64) multiworld.Attachment {
	worldsDir := filepath.Join(a.dataDir, "worlds")
	events := persistlog.NewEventLogger(worldsDir, ns, a.logger)
	decisions := persistlog.NewDecisionLogger(worldsDir, ns)
	sinks := reconcile.Sinks{events}

	idx, err := openRuntimeIndex(filepath.Join(worldsDir, ns), a.disableDB)
	if err != nil {
		a.logger.Printf("index db (%s): %v", ns, err)
		idx = nil
	}
	runID := ""
	if idx != nil {
		runID, err = idx.BeginRun(ns, seed, a.tune)
		if err != nil {
			a.logger.Printf("index db begin run (%s): %v", ns, err)
			_ = idx.Close()
			idx = nil
		} else {
			sinks = append(sinks, idx.Sink(runID, ns))
			a.mu.Lock()
			a.indexes[ns] = idx
			a.mu.Unlock()
		}
	}

	return multiworld.Attachment{
		Sink: sinks,
		Decision: func(d topology.Decision) {
			if idx != nil {
				idx.RecordDecision(runID, ns, d)
			}
			if !d.Adjusted() {
				return
			}
			if err := decisions.WriteDecision(d); err != nil {
				a.logger.Printf("decision log (%s): %v", ns, err)
			}
		},
		Close: func() error {
			errs := []error{events.Close(), decisions.Close()}
			if idx != nil {
				a.mu.Lock()
				delete(a.indexes, ns)
				a.mu.Unlock()
				errs = append(errs, idx.Close())
			}
			return errors.Join(errs...)
		},
	}
}

// IndexStats reports the write queue of every open namespace index.
func (a *attacher) IndexStats() map[string]indexdb.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]indexdb.Stats, len(a.indexes))
	for ns, idx := range a.indexes {
		out[ns] = idx.Stats()
	}
	return out
}
