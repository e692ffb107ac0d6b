package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/rail/topology"
	"railnet.ai/internal/sim/tuning"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqDecision}

	s.RecordDecision("run", "ns", topology.Decision{})
	s.RecordOutcome("run", "ns", reconcile.Event{})
	s.Sink("run", "ns").Record(reconcile.Event{})

	st := s.Stats()
	if st.DropDecisionTotal != 1 {
		t.Fatalf("DropDecisionTotal=%d want=1", st.DropDecisionTotal)
	}
	if st.DropOutcomeTotal != 2 {
		t.Fatalf("DropOutcomeTotal=%d want=2", st.DropOutcomeTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_RunRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "railnet.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	run, err := s.BeginRun("overworld", 42, tuning.Defaults())
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if run == "" {
		t.Fatalf("empty run id")
	}

	s.RecordDecision(run, "overworld", topology.Decision{
		Coord: model.Coord{X: 1, Z: 2},
		Base:  model.Cell{Kind: model.StraightNS},
		Cell:  model.Cell{Kind: model.TunnelNS, Height: 50},
	})
	s.RecordDecision(run, "overworld", topology.Decision{
		Coord: model.Coord{X: 1, Z: 3},
		Base:  model.Cell{Kind: model.StraightNS},
		Cell:  model.Cell{Kind: model.StraightNS, Height: 70},
	})
	sink := s.Sink(run, "overworld")
	sink.Record(reconcile.Event{
		ID: "0,0->1,0", From: model.Coord{X: 0, Z: 0}, To: model.Coord{X: 1, Z: 0},
		FromHeight: 64, ToHeight: 70, Outcome: reconcile.OutcomeConnected,
	})
	sink.Record(reconcile.Event{
		ID: "0,1->0,2", From: model.Coord{X: 0, Z: 2}, To: model.Coord{X: 0, Z: 1},
		FromHeight: 70, ToHeight: 66, Outcome: reconcile.OutcomeFailed, Err: "blocked",
	})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	got, err := s.Outcomes(ctx, run)
	if err != nil {
		t.Fatalf("outcomes: %v", err)
	}
	want := []OutcomeRow{
		{RunID: run, Namespace: "overworld", Seq: 0, ID: "0,0->1,0", Outcome: reconcile.OutcomeConnected, FromX: 0, FromZ: 0, ToX: 1, ToZ: 0, Delta: 6},
		{RunID: run, Namespace: "overworld", Seq: 1, ID: "0,1->0,2", Outcome: reconcile.OutcomeFailed, FromX: 0, FromZ: 2, ToX: 0, ToZ: 1, Delta: 4, Err: "blocked"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcomes (-want +got):\n%s", diff)
	}

	counts, err := s.KindCounts(ctx, run)
	if err != nil {
		t.Fatalf("kind counts: %v", err)
	}
	wantCounts := map[string]int{model.TunnelNS.String(): 1, model.StraightNS.String(): 1}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Fatalf("kind counts (-want +got):\n%s", diff)
	}
}
