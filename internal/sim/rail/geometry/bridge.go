package geometry

import (
	"math"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// Ground is the host's view of terrain under a span.
type Ground interface {
	SurfaceHeight(x, z int) int
	// FloorHeight is the top of the first solid block, below any liquid.
	FloorHeight(x, z int) int
	// IsSupport reports a solid, non-liquid block a pillar may rest on.
	IsSupport(x, y, z int) bool
}

const (
	liquidSamples = 8
	heightStride  = 4
)

// Pillar is a vertical support column from Top down to Bottom inclusive.
type Pillar struct {
	Top    model.Pos `json:"top"`
	Bottom int       `json:"bottom"`
}

func (p Pillar) Column() []model.Pos {
	out := make([]model.Pos, 0, p.Top.Y-p.Bottom+1)
	for y := p.Top.Y; y >= p.Bottom; y-- {
		out = append(out, p.Top.AtY(y))
	}
	return out
}

type Bridge struct {
	Deck     []model.Pos `json:"deck"`
	Supports []model.Pos `json:"supports"`
	Pillars  []Pillar    `json:"pillars"`
}

func (b Bridge) Empty() bool { return len(b.Deck) == 0 }

type BridgeBuilder struct {
	useBridges     bool
	threshold      int
	usePillars     bool
	pillarSpacing  int
	minBuildHeight int
}

func NewBridgeBuilder(tune tuning.Tuning) *BridgeBuilder {
	return &BridgeBuilder{
		useBridges:     tune.Terrain.UseBridges,
		threshold:      tune.Terrain.BridgeThreshold,
		usePillars:     tune.Geometry.UsePillars,
		pillarSpacing:  tune.Geometry.PillarSpacing,
		minBuildHeight: tune.Geometry.MinBuildHeight,
	}
}

// NeedsBridge reports whether track at trackHeight over pos clears the ground
// by more than the bridge threshold.
func (b *BridgeBuilder) NeedsBridge(g Ground, pos model.Pos, trackHeight int) bool {
	if !b.useBridges {
		return false
	}
	return trackHeight-g.SurfaceHeight(pos.X, pos.Z) > b.threshold
}

// CrossesLiquid samples nine evenly spaced points and reports any where the
// surface and the floor differ.
func (b *BridgeBuilder) CrossesLiquid(g Ground, start, end model.Pos) bool {
	for i := 0; i <= liquidSamples; i++ {
		x, z := along(start, end, float64(i)/liquidSamples)
		if g.SurfaceHeight(x, z) != g.FloorHeight(x, z) {
			return true
		}
	}
	return false
}

// Height is the lowest deck height that clears every sampled surface point by
// the bridge threshold.
func (b *BridgeBuilder) Height(g Ground, start, end model.Pos) int {
	dx := end.X - start.X
	dz := end.Z - start.Z
	samples := max(mathx.AbsInt(dx), mathx.AbsInt(dz)) / heightStride
	top := math.MinInt
	for i := 0; i <= samples; i++ {
		x, z := along(start, end, float64(i)/float64(max(1, samples)))
		top = max(top, g.SurfaceHeight(x, z))
	}
	return top + b.threshold
}

// Build lays the deck one below trackHeight along the straight span from start
// to end, with a support block either side, and pillars spaced along it.
func (b *BridgeBuilder) Build(g Ground, start, end model.Pos, trackHeight int) Bridge {
	if start.X == end.X && start.Z == end.Z {
		return Bridge{}
	}
	deckY := trackHeight - 1
	deck := line(start, end, deckY)

	// Sides sit across the dominant axis of travel.
	sx, sz := 0, 1
	if mathx.AbsInt(end.X-start.X) < mathx.AbsInt(end.Z-start.Z) {
		sx, sz = 1, 0
	}
	supports := make([]model.Pos, 0, 2*len(deck))
	for _, p := range deck {
		supports = append(supports, p.Add(-sx, 0, -sz), p.Add(sx, 0, sz))
	}

	out := Bridge{Deck: deck, Supports: supports}
	if b.usePillars && b.pillarSpacing > 0 {
		out.Pillars = b.pillars(g, start, end, deckY-1)
	}
	return out
}

func (b *BridgeBuilder) pillars(g Ground, start, end model.Pos, top int) []Pillar {
	dx := float64(end.X - start.X)
	dz := float64(end.Z - start.Z)
	n := max(1, int(math.Ceil(math.Sqrt(dx*dx+dz*dz)/float64(b.pillarSpacing))))
	out := make([]Pillar, 0, n)
	for i := 0; i < n; i++ {
		x, z := along(start, end, float64(i+1)/float64(n+1))
		bottom := top
		for bottom > b.minBuildHeight && !g.IsSupport(x, bottom, z) {
			bottom--
		}
		if g.IsSupport(x, bottom, z) {
			bottom++
		}
		if bottom > top {
			continue
		}
		out = append(out, Pillar{Top: model.Pos{X: x, Y: top, Z: z}, Bottom: bottom})
	}
	return out
}

func along(a, b model.Pos, t float64) (int, int) {
	return int(math.Floor(float64(a.X) + float64(b.X-a.X)*t)),
		int(math.Floor(float64(a.Z) + float64(b.Z-a.Z)*t))
}
