package heightmap

import (
	"sync"
	"sync/atomic"
	"testing"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
)

type fakeTerrain struct {
	surface func(x, z int) int
	water   func(x, y, z int) bool
	calls   atomic.Int64
}

func (f *fakeTerrain) SurfaceHeight(x, z int) int {
	f.calls.Add(1)
	return f.surface(x, z)
}

func (f *fakeTerrain) IsLiquid(x, y, z int) bool {
	if f.water == nil {
		return false
	}
	return f.water(x, y, z)
}

func (f *fakeTerrain) MaxBuildHeight() int { return 320 }

func flat(h int) *fakeTerrain {
	return &fakeTerrain{surface: func(x, z int) int { return h }}
}

func TestProfileFlatStats(t *testing.T) {
	a := New(flat(64), tuning.Defaults())
	p := a.Profile(model.Coord{X: 2, Z: -3})
	if p.Min != 64 || p.Max != 64 || p.Average != 64 {
		t.Fatalf("unexpected stats: min=%d max=%d avg=%d", p.Min, p.Max, p.Average)
	}
	if !p.Flat() || p.Rugged() {
		t.Fatalf("flat terrain classified wrong: flat=%v rugged=%v", p.Flat(), p.Rugged())
	}
	if p.HeightAt(-1, 3) != 64 || p.HeightAt(16, 0) != 64 {
		t.Fatalf("out-of-cell samples should fall back to the average")
	}
}

func TestProfileIsMemoized(t *testing.T) {
	ft := flat(70)
	a := New(ft, tuning.Defaults())
	c := model.Coord{X: 1, Z: 1}
	first := a.Profile(c)
	for i := 0; i < 10; i++ {
		if a.Profile(c) != first {
			t.Fatalf("profile pointer changed on call %d", i)
		}
	}
	if got := ft.calls.Load(); got != 256 {
		t.Fatalf("terrain sampled %d times, want 256", got)
	}
	a.Forget(c)
	_ = a.Profile(c)
	if got := ft.calls.Load(); got != 512 {
		t.Fatalf("forget should force one resample, sampled %d", got)
	}
	a.Clear()
	if a.Len() != 0 {
		t.Fatalf("clear left %d entries", a.Len())
	}
}

func TestProfileConcurrentReadersAgree(t *testing.T) {
	a := New(&fakeTerrain{surface: func(x, z int) int { return 60 + (x*7+z*3)%11 }}, tuning.Defaults())
	c := model.Coord{X: -4, Z: 9}
	want := a.Profile(c).Average
	a.Clear()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := a.Profile(c).Average; got != want {
				t.Errorf("average %d want %d", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestProfileLiquidClearance(t *testing.T) {
	// Column x=0 is a pond from y=60 to y=62; the rest is dry land at 60.
	ft := &fakeTerrain{
		surface: func(x, z int) int { return 60 },
		water: func(x, y, z int) bool {
			return x == 0 && y >= 60 && y <= 62
		},
	}
	p := New(ft, tuning.Defaults()).Profile(model.Coord{})
	if got := p.HeightAt(0, 5); got != 65 {
		t.Fatalf("liquid column height %d want 65", got)
	}
	if got := p.HeightAt(1, 5); got != 60 {
		t.Fatalf("dry column height %d want 60", got)
	}
}

func TestProfileSlopeAndRugged(t *testing.T) {
	// Rises 2 per block southward.
	ft := &fakeTerrain{surface: func(x, z int) int { return 60 + 2*z }}
	p := New(ft, tuning.Defaults()).Profile(model.Coord{})
	if got := p.Slope(model.North); got != 30.0/16.0 {
		t.Fatalf("ns slope %v", got)
	}
	if got := p.Slope(model.East); got != 0 {
		t.Fatalf("ew slope %v", got)
	}
	if !p.Rugged() {
		t.Fatalf("variation %d should be rugged", p.Variation())
	}
}

func TestNeedsBridgeBetween(t *testing.T) {
	ft := &fakeTerrain{surface: func(x, z int) int {
		if x >= 16 {
			return 50
		}
		return 70
	}}
	tune := tuning.Defaults()
	a := New(ft, tune)
	if !a.NeedsBridgeBetween(model.Coord{X: 0}, model.Coord{X: 1}, model.East) {
		t.Fatalf("20 block drop should need a bridge")
	}
	if a.NeedsBridgeBetween(model.Coord{X: 0, Z: 0}, model.Coord{X: 0, Z: 1}, model.South) {
		t.Fatalf("level crossing should not need a bridge")
	}
	tune.Terrain.UseBridges = false
	if New(ft, tune).NeedsBridgeBetween(model.Coord{X: 0}, model.Coord{X: 1}, model.East) {
		t.Fatalf("bridges disabled")
	}
}

func TestHasSignificantGapOnEdge(t *testing.T) {
	ft := &fakeTerrain{surface: func(x, z int) int {
		if z == 15 {
			return 40
		}
		return 70
	}}
	p := New(ft, tuning.Defaults()).Profile(model.Coord{})
	if !HasSignificantGap(p, model.South, 5) {
		t.Fatalf("south edge drop not detected (avg=%d)", p.Average)
	}
	if HasSignificantGap(p, model.North, 5) {
		t.Fatalf("north edge is level")
	}
}

func TestSmoothedHeight(t *testing.T) {
	a := New(flat(0), tuning.Defaults())
	if got := a.SmoothedHeight(60, 70); got != 67 {
		t.Fatalf("smoothed %d want 67", got)
	}
}

func TestScaffoldingPositions(t *testing.T) {
	a := New(flat(0), tuning.Defaults())
	got := a.ScaffoldingPositions(model.Pos{X: 0, Z: 0}, model.Pos{X: 16, Z: 0}, 80)
	if len(got) != 2 {
		t.Fatalf("got %d pillars want 2", len(got))
	}
	if got[0] != (model.Pos{X: 5, Y: 80, Z: 0}) || got[1] != (model.Pos{X: 10, Y: 80, Z: 0}) {
		t.Fatalf("unexpected pillars %v", got)
	}
	if n := len(a.ScaffoldingPositions(model.Pos{}, model.Pos{}, 80)); n != 0 {
		t.Fatalf("zero span produced %d pillars", n)
	}
}
