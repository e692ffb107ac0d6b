package heightmap

import (
	"math"
	"sync"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// Terrain is the host's read-only view of resident terrain.
type Terrain interface {
	SurfaceHeight(x, z int) int
	IsLiquid(x, y, z int) bool
	MaxBuildHeight() int
}

// liquidClearance is how far above a liquid surface track is kept.
const liquidClearance = 2

type Analyzer struct {
	terrain Terrain
	cfg     tuning.Terrain
	geo     tuning.Geometry

	mu    sync.RWMutex
	cache map[model.Coord]*Profile
}

func New(t Terrain, tune tuning.Tuning) *Analyzer {
	return &Analyzer{
		terrain: t,
		cfg:     tune.Terrain,
		geo:     tune.Geometry,
		cache:   map[model.Coord]*Profile{},
	}
}

// Profile returns the memoized profile for c, sampling the terrain on first use.
// Concurrent first calls may both sample; the results are identical.
func (a *Analyzer) Profile(c model.Coord) *Profile {
	a.mu.RLock()
	p, ok := a.cache[c]
	a.mu.RUnlock()
	if ok {
		return p
	}
	p = a.sample(c)
	a.mu.Lock()
	if prev, ok := a.cache[c]; ok {
		p = prev
	} else {
		a.cache[c] = p
	}
	a.mu.Unlock()
	return p
}

func (a *Analyzer) sample(c model.Coord) *Profile {
	var heights [side * side]int
	top := a.terrain.MaxBuildHeight()
	for lz := 0; lz < side; lz++ {
		for lx := 0; lx < side; lx++ {
			x := c.X*side + lx
			z := c.Z*side + lz
			h := a.terrain.SurfaceHeight(x, z)
			if a.terrain.IsLiquid(x, h, z) {
				surface := h
				for y := h; y < top; y++ {
					if !a.terrain.IsLiquid(x, y, z) {
						surface = y
						break
					}
				}
				h = surface + liquidClearance
			}
			heights[lz*side+lx] = h
		}
	}
	return newProfile(c, heights)
}

func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.cache = map[model.Coord]*Profile{}
	a.mu.Unlock()
}

func (a *Analyzer) Forget(c model.Coord) {
	a.mu.Lock()
	delete(a.cache, c)
	a.mu.Unlock()
}

func (a *Analyzer) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// SmoothedHeight eases cur toward a neighbor's height by the smoothing factor.
func (a *Analyzer) SmoothedHeight(cur, neighbor int) int {
	f := a.cfg.Smoothing
	return int(float64(cur)*(1-f) + float64(neighbor)*f)
}

// HasSignificantGap reports whether the lowest sample on p's edge facing d sits
// more than threshold below p's average.
func HasSignificantGap(p *Profile, d model.Dir, threshold int) bool {
	low := math.MaxInt
	for _, h := range p.EdgeHeights(d) {
		low = min(low, h)
	}
	return p.Average-low > threshold
}

// NeedsBridgeBetween reports whether crossing from a to its neighbor b toward d
// should be bridged: the averages differ by more than the bridge threshold, or
// a's edge facing d drops away.
func (a *Analyzer) NeedsBridgeBetween(from, to model.Coord, d model.Dir) bool {
	if !a.cfg.UseBridges {
		return false
	}
	cur := a.Profile(from)
	nb := a.Profile(to)
	if mathx.AbsInt(cur.Average-nb.Average) > a.cfg.BridgeThreshold {
		return true
	}
	return HasSignificantGap(cur, d, a.cfg.BridgeThreshold)
}

// ScaffoldingPositions spaces support columns evenly between start and end at
// trackHeight, excluding both endpoints.
func (a *Analyzer) ScaffoldingPositions(start, end model.Pos, trackHeight int) []model.Pos {
	if !a.geo.UsePillars || a.geo.PillarSpacing <= 0 {
		return nil
	}
	dx := end.X - start.X
	dz := end.Z - start.Z
	dist := math.Sqrt(float64(dx*dx + dz*dz))
	n := int(math.Ceil(dist / float64(a.geo.PillarSpacing)))
	out := make([]model.Pos, 0, n)
	for i := 0; i < n; i++ {
		t := float64(i+1) / float64(n+1)
		out = append(out, model.Pos{
			X: int(math.Floor(float64(start.X) + float64(dx)*t)),
			Y: trackHeight,
			Z: int(math.Floor(float64(start.Z) + float64(dz)*t)),
		})
	}
	return out
}
