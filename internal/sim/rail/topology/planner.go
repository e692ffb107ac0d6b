package topology

import (
	"railnet.ai/internal/sim/rail/heightmap"
	"railnet.ai/internal/sim/rail/layout"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// Reason records why a decision differs from its base cell.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonRugged   Reason = "tunnel_rugged"
	ReasonCeiling  Reason = "tunnel_ceiling"
	ReasonSlope    Reason = "tunnel_slope"
	ReasonElevated Reason = "bridge_elevated"
)

// Decision is a base cell after terrain adjustment. It is recomputed on every
// call; only the base cell and the profile are memoized.
type Decision struct {
	Coord   model.Coord
	Base    model.Cell
	Cell    model.Cell
	Profile *heightmap.Profile
	Reason  Reason
}

func (d Decision) Adjusted() bool { return d.Reason != ReasonNone }

type Planner struct {
	gen     *Generator
	heights *heightmap.Analyzer
	cfg     tuning.Terrain
}

func NewPlanner(gen *Generator, heights *heightmap.Analyzer, cfg tuning.Terrain) *Planner {
	return &Planner{gen: gen, heights: heights, cfg: cfg}
}

func (p *Planner) Decide(c model.Coord) Decision {
	base := p.gen.Cell(c)
	d := Decision{Coord: c, Base: base, Cell: base}
	if base.IsEmpty() {
		return d
	}
	prof := p.heights.Profile(c)
	d.Profile = prof

	kind := base.Kind
	if kind.IsStraight() {
		heading, _ := kind.Heading()
		switch {
		case prof.Rugged():
			d.Reason = ReasonRugged
		case prof.Average > p.cfg.MaxHeight:
			d.Reason = ReasonCeiling
		case prof.Slope(heading) > p.cfg.MaxSurfaceSlope:
			d.Reason = ReasonSlope
		case p.cfg.UseBridges && p.PlacementHeight(kind, prof)-prof.Average > p.cfg.BridgeThreshold:
			d.Reason = ReasonElevated
		}
		switch d.Reason {
		case ReasonRugged, ReasonCeiling, ReasonSlope:
			kind, _ = kind.Tunnel()
		case ReasonElevated:
			kind, _ = kind.Bridge()
		}
	}

	d.Cell.Kind = kind
	d.Cell.Height = p.PlacementHeight(kind, prof)
	if kind == model.Station {
		d.Cell.Platforms = layout.Platform(c, d.Cell.Height)
	}
	return d
}

// PlacementHeight is where track of kind k sits over prof.
func (p *Planner) PlacementHeight(k model.Kind, prof *heightmap.Profile) int {
	switch {
	case k.IsTunnel():
		return prof.Average - p.cfg.TunnelDepth
	case k.IsBridge():
		return prof.Average + p.cfg.BridgeThreshold
	case p.cfg.FollowClosely:
		return prof.Average + p.cfg.SurfaceOffset
	}
	return mathx.ClampInt((p.cfg.MinHeight+p.cfg.MaxHeight)/2, p.cfg.MinHeight, p.cfg.MaxHeight)
}
