package topology

import (
	"io"
	"log"
	"strings"
	"sync"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// localHeight is the nominal height of undecided track before terrain
// placement replaces it.
const localHeight = 70

type entry struct {
	cell model.Cell
	// local is set when the cell came from neighbor resolution rather than
	// the route grid.
	local bool
}

// Generator decides the base shape of every cell. Results are memoized per
// coordinate and depend only on the seed, the coordinate and the config.
type Generator struct {
	cfg    tuning.Network
	seed   int64
	logger *log.Logger

	// noise is the density field in [0, 1]; swapped in tests to count evaluations.
	noise func(x, z float64) float64

	mu    sync.RWMutex
	cache map[model.Coord]entry
}

func NewGenerator(seed int64, cfg tuning.Network, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	seed += cfg.SeedOffset
	return &Generator{
		cfg:    cfg,
		seed:   seed,
		logger: logger,
		noise:  mathx.NewNoise(seed).Eval2,
		cache:  map[model.Coord]entry{},
	}
}

// resolving marks an in-progress local resolution. While one is active,
// neighbors that would need their own local resolution read as empty and
// are not memoized, so no cache entry depends on the order cells were asked for.
type resolving struct {
	origin model.Coord
}

// Cell returns the memoized base decision for c.
func (g *Generator) Cell(c model.Coord) model.Cell {
	return g.lookup(c, nil)
}

func (g *Generator) lookup(c model.Coord, scope *resolving) model.Cell {
	if !g.cfg.Enabled {
		return model.Empty
	}
	g.mu.RLock()
	e, ok := g.cache[c]
	g.mu.RUnlock()
	if ok && (scope == nil || !e.local) {
		return e.cell
	}

	e, cacheable := g.compute(c, scope)
	if !cacheable {
		return e.cell
	}
	g.mu.Lock()
	g.cache[c] = e
	g.mu.Unlock()
	return e.cell
}

func (g *Generator) compute(c model.Coord, scope *resolving) (e entry, cacheable bool) {
	defer func() {
		if r := recover(); r != nil {
			if scope != nil {
				g.logger.Printf("rail: cell %s (resolving %s): %v", c, scope.origin, r)
			} else {
				g.logger.Printf("rail: cell %s: %v", c, r)
			}
			e, cacheable = entry{cell: model.Empty}, false
		}
	}()

	rng := mathx.NewStream(mathx.CellSeed(g.seed, c.X, c.Z))
	s := g.cfg.StationSpacing
	half := s / 2
	gx := mathx.Mod(c.X+1, s)
	gz := mathx.Mod(c.Z+1, s)
	onX := gx == 0 || gx == half
	onZ := gz == 0 || gz == half

	if !onX && !onZ {
		n := g.noise(float64(c.X)/g.cfg.NoiseScale, float64(c.Z)/g.cfg.NoiseScale)
		if n <= 1.0-g.cfg.Density {
			return entry{cell: model.Empty}, true
		}
	}

	if onX && onZ && g.cfg.StationsEnabled {
		if rng.Float64() < g.cfg.StationChance {
			return entry{cell: model.Cell{Kind: model.Station, Flow: model.All, Height: localHeight, Lanes: g.cfg.Lanes}}, true
		}
	}
	if onX {
		return entry{cell: model.Cell{Kind: model.StraightNS, Flow: model.NorthSouth, Height: localHeight, Lanes: g.cfg.Lanes}}, true
	}
	if onZ {
		return entry{cell: model.Cell{Kind: model.StraightEW, Flow: model.EastWest, Height: localHeight, Lanes: g.cfg.Lanes}}, true
	}

	if scope != nil {
		return entry{cell: model.Empty, local: true}, false
	}
	if rng.Float64() > g.cfg.BranchChance {
		return entry{cell: model.Empty, local: true}, true
	}
	return entry{cell: g.resolveLocal(c), local: true}, true
}

func (g *Generator) resolveLocal(c model.Coord) model.Cell {
	scope := &resolving{origin: c}
	var arms model.Flow
	for _, d := range model.Dirs {
		nb := g.lookup(c.Neighbor(d), scope)
		if nb.Connects(d.Opposite()) {
			arms |= model.FlowOf(d)
		}
	}
	k, flow := kindForArms(arms)
	if k == model.None {
		return model.Empty
	}
	return model.Cell{Kind: k, Flow: flow, Height: localHeight, Lanes: 1}
}

// kindForArms maps the set of connected neighbor sides to a shape.
func kindForArms(arms model.Flow) (model.Kind, model.Flow) {
	switch arms {
	case model.NorthSouth:
		return model.StraightNS, model.NorthSouth
	case model.EastWest:
		return model.StraightEW, model.EastWest
	case model.FlowNorth | model.FlowEast:
		return model.CurveNE, model.All
	case model.FlowNorth | model.FlowWest:
		return model.CurveNW, model.All
	case model.FlowSouth | model.FlowEast:
		return model.CurveSE, model.All
	case model.FlowSouth | model.FlowWest:
		return model.CurveSW, model.All
	case model.All:
		return model.Junction4, model.All
	case model.All &^ model.FlowNorth:
		return model.Junction3N, model.All
	case model.All &^ model.FlowSouth:
		return model.Junction3S, model.All
	case model.All &^ model.FlowEast:
		return model.Junction3E, model.All
	case model.All &^ model.FlowWest:
		return model.Junction3W, model.All
	}
	return model.None, 0
}

func (g *Generator) Clear() {
	g.mu.Lock()
	g.cache = map[model.Coord]entry{}
	g.mu.Unlock()
}

func (g *Generator) Forget(c model.Coord) {
	g.mu.Lock()
	delete(g.cache, c)
	g.mu.Unlock()
}

func (g *Generator) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

// Map renders the base decisions in [minX,maxX]x[minZ,maxZ] one row per z.
func (g *Generator) Map(minX, minZ, maxX, maxZ int) []string {
	rows := make([]string, 0, maxZ-minZ+1)
	for z := minZ; z <= maxZ; z++ {
		var b strings.Builder
		for x := minX; x <= maxX; x++ {
			b.WriteRune(g.Cell(model.Coord{X: x, Z: z}).Kind.Glyph())
		}
		rows = append(rows, b.String())
	}
	return rows
}
