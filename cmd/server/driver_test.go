package main

import (
	"io"
	"log"
	"testing"
	"time"

	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/timeutil"
)

func TestSpiral_RingsNearestFirst(t *testing.T) {
	cells := spiral(2)
	if len(cells) != 25 {
		t.Fatalf("len = %d, want 25", len(cells))
	}
	seen := map[model.Coord]bool{}
	ring := 0
	for _, c := range cells {
		if seen[c] {
			t.Fatalf("duplicate cell %v", c)
		}
		seen[c] = true
		r := max(abs(c.X), abs(c.Z))
		if r < ring {
			t.Fatalf("cell %v (ring %d) after ring %d", c, r, ring)
		}
		ring = r
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestDriver_PreloadThenGrow(t *testing.T) {
	cfg, _ := multiworld.Load("")
	mgr, err := multiworld.NewManager(cfg, multiworld.Options{Seed: 3, Tuning: tuning.Defaults()})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer mgr.CloseAll()

	logger := log.New(io.Discard, "", 0)
	d := newDriver(mgr, timeutil.NewMockClock(time.Unix(0, 0)), logger, 2, 1, 4)
	if err := d.Start("OVERWORLD"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if d.next["OVERWORLD"] != 9 {
		t.Fatalf("preloaded %d cells, want 9", d.next["OVERWORLD"])
	}
	rt, _ := mgr.Get("OVERWORLD")
	if !rt.Store.CellReady(model.Coord{X: 1, Z: 1}) {
		t.Fatalf("preload core not ready")
	}

	for i := 0; i < 4; i++ {
		d.Step()
	}
	if !d.Done("OVERWORLD") {
		t.Fatalf("not done after growth: next=%d", d.next["OVERWORLD"])
	}
	if !rt.Store.CellReady(model.Coord{X: -2, Z: 2}) {
		t.Fatalf("outer ring not loaded")
	}
	d.Step()
	if d.next["OVERWORLD"] != 25 {
		t.Fatalf("grew past radius: %d", d.next["OVERWORLD"])
	}
}

func TestDriver_StartUnknownWorld(t *testing.T) {
	cfg, _ := multiworld.Load("")
	mgr, _ := multiworld.NewManager(cfg, multiworld.Options{Tuning: tuning.Defaults()})
	d := newDriver(mgr, timeutil.RealClock{}, log.New(io.Discard, "", 0), 1, 1, 1)
	if err := d.Start("NOPE"); err == nil {
		t.Fatalf("expected error")
	}
}
