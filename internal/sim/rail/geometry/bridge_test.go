package geometry

import (
	"testing"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
)

type fakeGround struct {
	surface func(x, z int) int
	floor   func(x, z int) int
	support func(x, y, z int) bool
}

func (g fakeGround) SurfaceHeight(x, z int) int { return g.surface(x, z) }

func (g fakeGround) FloorHeight(x, z int) int {
	if g.floor == nil {
		return g.surface(x, z)
	}
	return g.floor(x, z)
}

func (g fakeGround) IsSupport(x, y, z int) bool {
	if g.support == nil {
		return y <= g.surface(x, z)
	}
	return g.support(x, y, z)
}

func flatGround(h int) fakeGround {
	return fakeGround{surface: func(x, z int) int { return h }}
}

func TestNeedsBridgeThreshold(t *testing.T) {
	b := NewBridgeBuilder(tuning.Defaults())
	g := flatGround(60)
	at := model.Pos{X: 3, Z: 9}
	if !b.NeedsBridge(g, at, 66) {
		t.Fatalf("track 66 over ground 60 should need a bridge")
	}
	if b.NeedsBridge(g, at, 64) {
		t.Fatalf("track 64 over ground 60 should not need a bridge")
	}
	if b.NeedsBridge(g, at, 65) {
		t.Fatalf("exactly the threshold is not a bridge")
	}
	tune := tuning.Defaults()
	tune.Terrain.UseBridges = false
	if NewBridgeBuilder(tune).NeedsBridge(g, at, 90) {
		t.Fatalf("bridges disabled")
	}
}

func TestCrossesLiquid(t *testing.T) {
	b := NewBridgeBuilder(tuning.Defaults())
	start := model.Pos{X: 0, Z: 0}
	end := model.Pos{X: 16, Z: 0}
	if b.CrossesLiquid(flatGround(60), start, end) {
		t.Fatalf("dry span reported liquid")
	}
	pond := fakeGround{
		surface: func(x, z int) int { return 62 },
		floor: func(x, z int) int {
			if x == 8 {
				return 55
			}
			return 62
		},
	}
	if !b.CrossesLiquid(pond, start, end) {
		t.Fatalf("pond at x=8 not detected")
	}
}

func TestBridgeHeight(t *testing.T) {
	b := NewBridgeBuilder(tuning.Defaults())
	g := fakeGround{surface: func(x, z int) int {
		if x == 12 {
			return 70
		}
		return 60
	}}
	if got := b.Height(g, model.Pos{}, model.Pos{X: 16}); got != 75 {
		t.Fatalf("height=%d want 75", got)
	}
}

func TestBuildEastWestBridge(t *testing.T) {
	b := NewBridgeBuilder(tuning.Defaults())
	br := b.Build(flatGround(60), model.Pos{X: 0, Y: 70}, model.Pos{X: 16, Y: 70}, 70)
	if len(br.Deck) != 17 {
		t.Fatalf("deck has %d blocks want 17", len(br.Deck))
	}
	for i, p := range br.Deck {
		if p != (model.Pos{X: i, Y: 69, Z: 0}) {
			t.Fatalf("deck %d at %v", i, p)
		}
	}
	if len(br.Supports) != 34 {
		t.Fatalf("supports=%d want 34", len(br.Supports))
	}
	if br.Supports[0] != (model.Pos{X: 0, Y: 69, Z: -1}) || br.Supports[1] != (model.Pos{X: 0, Y: 69, Z: 1}) {
		t.Fatalf("supports must flank the deck across travel: %v %v", br.Supports[0], br.Supports[1])
	}
	if len(br.Pillars) != 2 {
		t.Fatalf("pillars=%d want 2", len(br.Pillars))
	}
	want := []Pillar{
		{Top: model.Pos{X: 5, Y: 68, Z: 0}, Bottom: 61},
		{Top: model.Pos{X: 10, Y: 68, Z: 0}, Bottom: 61},
	}
	for i := range want {
		if br.Pillars[i] != want[i] {
			t.Fatalf("pillar %d=%+v want %+v", i, br.Pillars[i], want[i])
		}
	}
	if n := len(br.Pillars[0].Column()); n != 8 {
		t.Fatalf("column length %d want 8", n)
	}
}

func TestBuildNorthSouthSupportsAndFloor(t *testing.T) {
	tune := tuning.Defaults()
	b := NewBridgeBuilder(tune)
	void := fakeGround{
		surface: func(x, z int) int { return 0 },
		support: func(x, y, z int) bool { return false },
	}
	br := b.Build(void, model.Pos{X: 4, Z: -8}, model.Pos{X: 4, Z: 0}, 40)
	if br.Supports[0] != (model.Pos{X: 3, Y: 39, Z: -8}) || br.Supports[1] != (model.Pos{X: 5, Y: 39, Z: -8}) {
		t.Fatalf("north-south supports %v %v", br.Supports[0], br.Supports[1])
	}
	if len(br.Pillars) != 1 {
		t.Fatalf("pillars=%d want 1", len(br.Pillars))
	}
	if br.Pillars[0].Bottom != tune.Geometry.MinBuildHeight {
		t.Fatalf("unsupported pillar should stop at the build floor, got %d", br.Pillars[0].Bottom)
	}
}

func TestBuildZeroSpanIsEmpty(t *testing.T) {
	b := NewBridgeBuilder(tuning.Defaults())
	if br := b.Build(flatGround(60), model.Pos{X: 2, Z: 2}, model.Pos{X: 2, Y: 80, Z: 2}, 70); !br.Empty() || len(br.Pillars) != 0 {
		t.Fatalf("zero span built %+v", br)
	}
}

func TestBuildWithoutPillars(t *testing.T) {
	tune := tuning.Defaults()
	tune.Geometry.UsePillars = false
	br := NewBridgeBuilder(tune).Build(flatGround(60), model.Pos{}, model.Pos{X: 16}, 70)
	if len(br.Pillars) != 0 || len(br.Deck) == 0 {
		t.Fatalf("deck=%d pillars=%d", len(br.Deck), len(br.Pillars))
	}
}

func TestLineIsOrderedAndConnected(t *testing.T) {
	a := model.Pos{X: 0, Z: 0}
	b := model.Pos{X: 7, Z: -3}
	pts := line(a, b, 5)
	if pts[0] != a.AtY(5) || pts[len(pts)-1] != b.AtY(5) {
		t.Fatalf("endpoints %v %v", pts[0], pts[len(pts)-1])
	}
	if len(pts) != 8 {
		t.Fatalf("got %d points want 8", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		dx := pts[i].X - pts[i-1].X
		dz := pts[i].Z - pts[i-1].Z
		if dx < -1 || dx > 1 || dz < -1 || dz > 1 || (dx == 0 && dz == 0) {
			t.Fatalf("gap between %v and %v", pts[i-1], pts[i])
		}
	}
}

func TestAlongFloorsNegativeCoordinates(t *testing.T) {
	a := model.Pos{X: -10, Y: 70, Z: 3}
	b := model.Pos{X: -5, Y: 70, Z: 3}
	if x, z := along(a, b, 0.5); x != -8 || z != 3 {
		t.Fatalf("along(-10..-5, 0.5) = (%d,%d), want (-8,3)", x, z)
	}
	if x, _ := along(b.AtY(0), model.Pos{X: 0, Z: 3}, 0.5); x != -3 {
		t.Fatalf("along(-5..0, 0.5) x = %d, want -3", x)
	}
}
