package main

import (
	"bytes"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	persistlog "railnet.ai/internal/persistence/log"
	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/tuning"
)

func testRuntime(t *testing.T) *multiworld.Runtime {
	t.Helper()
	cfg, _ := multiworld.Load("")
	tune := tuning.Defaults()
	tune.Network.StationChance = 1
	mgr, err := multiworld.NewManager(cfg, multiworld.Options{Seed: 11, Tuning: tune})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.CloseAll() })
	rt, err := mgr.Get("OVERWORLD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return rt
}

func TestCoordFlag(t *testing.T) {
	var c coordFlag
	if err := c.UnmarshalFlag("-4,9"); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if model.Coord(c) != (model.Coord{X: -4, Z: 9}) {
		t.Fatalf("coord = %v", c)
	}
	if s, _ := c.MarshalFlag(); s != "-4,9" {
		t.Fatalf("marshal = %q", s)
	}
	if err := c.UnmarshalFlag("nope"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderMap_BaseAroundStation(t *testing.T) {
	rt := testRuntime(t)
	var buf bytes.Buffer
	if err := renderMap(&buf, rt, model.Coord{X: -1, Z: -1}, 1, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "# world=OVERWORLD") {
		t.Fatalf("output:\n%s", buf.String())
	}
	if lines[2] != "-S-" {
		t.Fatalf("station row = %q", lines[2])
	}
}

func TestRenderMap_AdjustedLoadsCells(t *testing.T) {
	rt := testRuntime(t)
	var buf bytes.Buffer
	if err := renderMap(&buf, rt, model.Coord{X: -1, Z: -1}, 1, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !rt.Store.CellReady(model.Coord{X: 0, Z: 0}) {
		t.Fatalf("adjusted map did not load terrain")
	}
	if !strings.Contains(buf.String(), "# track_cells=") {
		t.Fatalf("missing stats footer:\n%s", buf.String())
	}
}

func TestInspectCell_Station(t *testing.T) {
	rt := testRuntime(t)
	rep, err := inspectCell(rt, model.Coord{X: -1, Z: -1})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if rep.Kind != model.Station.String() || rep.Platforms != 64 || rep.Terrain == nil || rep.Track == 0 {
		t.Fatalf("report = %+v", rep)
	}
	var buf bytes.Buffer
	if err := encodeReport(&buf, rep, "yaml"); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "-1,-1") {
		t.Fatalf("yaml output:\n%s", buf.String())
	}
	if err := encodeReport(&buf, rep, "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestSummarizeEvents(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewEventLogger(dir, "OVERWORLD", log.New(io.Discard, "", 0))
	at := time.Now()
	for _, ev := range []reconcile.Event{
		{ID: "0,0->1,0", Outcome: reconcile.OutcomeConnected, AgeMs: 10, At: at},
		{ID: "0,0->0,1", Outcome: reconcile.OutcomeLevel, AgeMs: 5, At: at},
		{ID: "1,0->1,1", Outcome: reconcile.OutcomeConnected, AgeMs: 40, At: at},
	} {
		l.Record(ev)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := expandEventPaths([]string{filepath.Join(dir, "OVERWORLD", "events")})
	if err != nil || len(files) == 0 {
		t.Fatalf("files = %v, %v", files, err)
	}
	sum, err := summarizeEvents(files, "", nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	want := map[reconcile.Outcome]int{reconcile.OutcomeConnected: 2, reconcile.OutcomeLevel: 1}
	if diff := cmp.Diff(want, sum.ByOutcome); diff != "" || sum.Total != 3 || sum.MaxAgeMs != 40 {
		t.Fatalf("summary total=%d max=%d (-want +got):\n%s", sum.Total, sum.MaxAgeMs, diff)
	}

	var list bytes.Buffer
	only, err := summarizeEvents(files, reconcile.OutcomeLevel, &list)
	if err != nil || only.Total != 1 || !strings.Contains(list.String(), "0,0->0,1") {
		t.Fatalf("filtered = %+v, %v, %q", only, err, list.String())
	}
}
