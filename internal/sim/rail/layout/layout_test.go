package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
)

type flatGround struct{ surface int }

func (g flatGround) SurfaceHeight(x, z int) int { return g.surface }
func (g flatGround) FloorHeight(x, z int) int   { return g.surface }
func (g flatGround) IsSupport(x, y, z int) bool { return y <= g.surface }

func build(t *testing.T, c model.Coord, cell model.Cell) Plan {
	t.Helper()
	return NewBuilder(tuning.Defaults()).Build(c, cell, flatGround{surface: 60})
}

func TestBuild_Empty(t *testing.T) {
	p := build(t, model.Coord{}, model.Empty)
	if !p.Empty() || len(p.TrackPositions()) != 0 {
		t.Fatalf("empty cell produced %+v", p)
	}
}

func TestBuild_StraightLanes(t *testing.T) {
	c := model.Coord{X: 2, Z: -1}
	p := build(t, c, model.Cell{Kind: model.StraightNS, Flow: model.NorthSouth, Height: 70, Lanes: 2})
	if len(p.Track) != 32 {
		t.Fatalf("track points = %d, want 32", len(p.Track))
	}
	xs := map[int]int{}
	for _, pt := range p.Track {
		if pt.Pos.Cell() != c || pt.Pos.Y != 70 || pt.Dir != model.North {
			t.Fatalf("bad point %+v", pt)
		}
		xs[pt.Pos.X-c.X*model.CellSize]++
	}
	if diff := cmp.Diff(map[int]int{6: 16, 8: 16}, xs); diff != "" {
		t.Fatalf("lane columns (-want +got):\n%s", diff)
	}

	single := build(t, c, model.Cell{Kind: model.StraightEW, Flow: model.EastWest, Height: 70, Lanes: 1})
	for _, pt := range single.Track {
		if pt.Pos.Z-c.Z*model.CellSize != 8 {
			t.Fatalf("single lane off the midline: %v", pt.Pos)
		}
	}
}

func TestBuild_CurveClippedToCell(t *testing.T) {
	c := model.Coord{X: -3, Z: 4}
	for _, k := range []model.Kind{model.CurveNE, model.CurveNW, model.CurveSE, model.CurveSW} {
		p := build(t, c, model.Cell{Kind: k, Flow: k.Arms(), Height: 64, Lanes: 1})
		if len(p.Track) == 0 {
			t.Fatalf("%v: no curve points", k)
		}
		for _, pt := range p.Track {
			if pt.Pos.Cell() != c || pt.Pos.Y != 64 {
				t.Fatalf("%v: point %v outside cell", k, pt.Pos)
			}
		}
	}
}

func TestBuild_JunctionArms(t *testing.T) {
	c := model.Coord{}
	p := build(t, c, model.Cell{Kind: model.Junction3N, Flow: model.All, Height: 70, Lanes: 1})
	if p.Junction == nil || *p.Junction != (model.Pos{X: 8, Y: 70, Z: 8}) {
		t.Fatalf("junction centre = %v", p.Junction)
	}
	if len(p.Track) != 21 {
		t.Fatalf("arm points = %d, want 21", len(p.Track))
	}
	for _, pt := range p.Track {
		if pt.Dir == model.North {
			t.Fatalf("3-way without north has a north arm point %v", pt.Pos)
		}
	}
	if got := len(p.TrackPositions()); got != 22 {
		t.Fatalf("track positions = %d, want 22", got)
	}

	four := build(t, c, model.Cell{Kind: model.Junction4, Flow: model.All, Height: 70, Lanes: 1})
	if len(four.Track) != 28 {
		t.Fatalf("4-way arm points = %d, want 28", len(four.Track))
	}
}

func TestBuild_Station(t *testing.T) {
	c := model.Coord{X: -1, Z: -1}
	p := build(t, c, model.Cell{Kind: model.Station, Flow: model.All, Height: 66, Lanes: 1})
	if len(p.Platform) != 64 {
		t.Fatalf("platform = %d, want 64", len(p.Platform))
	}
	for _, q := range p.Platform {
		lx, lz := q.X-c.X*model.CellSize, q.Z-c.Z*model.CellSize
		if q.Y != 65 || lx < 4 || lx > 11 || lz < 4 || lz > 11 {
			t.Fatalf("platform block %v out of place", q)
		}
	}
	if len(p.Track) != 32 {
		t.Fatalf("station track = %d, want 32", len(p.Track))
	}
}

func TestBuild_Tunnel(t *testing.T) {
	p := build(t, model.Coord{}, model.Cell{Kind: model.TunnelEW, Flow: model.EastWest, Height: 50, Lanes: 1})
	if len(p.Clearance) != 16*3*3 {
		t.Fatalf("clearance = %d, want 144", len(p.Clearance))
	}
	for _, q := range p.Clearance {
		if q.Y < 50 || q.Y > 52 || q.Z < 7 || q.Z > 9 {
			t.Fatalf("clearance %v outside the 3x3 box", q)
		}
	}
	if len(p.Track) != 16 {
		t.Fatalf("tunnel track = %d, want 16", len(p.Track))
	}
}

func TestBuild_Bridge(t *testing.T) {
	p := build(t, model.Coord{}, model.Cell{Kind: model.BridgeNS, Flow: model.NorthSouth, Height: 80, Lanes: 1})
	if len(p.Bridge.Deck) != 16 {
		t.Fatalf("deck = %d, want 16", len(p.Bridge.Deck))
	}
	for _, q := range p.Bridge.Deck {
		if q.X != 8 || q.Y != 79 {
			t.Fatalf("deck block %v off the track line", q)
		}
	}
	if len(p.Bridge.Pillars) != 2 {
		t.Fatalf("pillars = %d, want 2", len(p.Bridge.Pillars))
	}
	for _, pl := range p.Bridge.Pillars {
		if pl.Top.Y != 78 || pl.Bottom != 61 {
			t.Fatalf("pillar %+v, want top 78 bottom 61", pl)
		}
	}

	bare := NewBuilder(tuning.Defaults()).Build(model.Coord{}, model.Cell{Kind: model.BridgeNS, Height: 80}, nil)
	if len(bare.Bridge.Deck) != 16 || len(bare.Bridge.Pillars) != 0 {
		t.Fatalf("bridge without ground = %d deck, %d pillars", len(bare.Bridge.Deck), len(bare.Bridge.Pillars))
	}
}

func TestBuild_Incline(t *testing.T) {
	cases := []struct {
		kind        model.Kind
		first, last model.Pos
	}{
		{model.InclineUpN, model.Pos{X: 8, Y: 70, Z: 15}, model.Pos{X: 8, Y: 75, Z: 0}},
		{model.InclineDownE, model.Pos{X: 0, Y: 70, Z: 8}, model.Pos{X: 15, Y: 65, Z: 8}},
	}
	for _, tc := range cases {
		p := build(t, model.Coord{}, model.Cell{Kind: tc.kind, Flow: tc.kind.Arms(), Height: 70, Lanes: 1})
		if len(p.Track) < 2 {
			t.Fatalf("%v: %d points", tc.kind, len(p.Track))
		}
		if got := p.Track[0].Pos; got != tc.first {
			t.Fatalf("%v: first = %v, want %v", tc.kind, got, tc.first)
		}
		if got := p.Track[len(p.Track)-1].Pos; got != tc.last {
			t.Fatalf("%v: last = %v, want %v", tc.kind, got, tc.last)
		}
	}
}
