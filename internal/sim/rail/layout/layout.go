// Package layout turns a decided cell into the positions a host needs to
// materialize it: track points, junction centres, platforms, clearance and
// bridge structure. Nothing here touches the world.
package layout

import (
	"railnet.ai/internal/sim/rail/geometry"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
)

const (
	mid        = model.CellSize / 2
	armLength  = 7
	laneSpread = 2
	// platformLo and platformHi bound the station platform square in local coordinates.
	platformLo = 4
	platformHi = 12
	// clearance is the height and width of the box carved for tunnel track.
	clearance = 3
)

type Point struct {
	Pos model.Pos `json:"pos"`
	Dir model.Dir `json:"dir"`
}

type Plan struct {
	Coord     model.Coord     `json:"coord"`
	Kind      model.Kind      `json:"kind"`
	Height    int             `json:"height"`
	Track     []Point         `json:"track,omitempty"`
	Junction  *model.Pos      `json:"junction,omitempty"`
	Platform  []model.Pos     `json:"platform,omitempty"`
	Clearance []model.Pos     `json:"clearance,omitempty"`
	Bridge    geometry.Bridge `json:"bridge"`
}

func (p Plan) Empty() bool { return p.Kind == model.None }

// TrackPositions lists every position that carries rail, junction centre included.
func (p Plan) TrackPositions() []model.Pos {
	out := make([]model.Pos, 0, len(p.Track)+1)
	if p.Junction != nil {
		out = append(out, *p.Junction)
	}
	for _, t := range p.Track {
		out = append(out, t.Pos)
	}
	return out
}

type Builder struct {
	curves   *geometry.CurveBuilder
	inclines *geometry.InclineBuilder
	bridges  *geometry.BridgeBuilder
	radius   int
	rise     int
}

func NewBuilder(tune tuning.Tuning) *Builder {
	return &Builder{
		curves:   geometry.NewCurveBuilder(tune.Geometry),
		inclines: geometry.NewInclineBuilder(),
		bridges:  geometry.NewBridgeBuilder(tune),
		radius:   tune.Geometry.MinCurveRadius,
		rise:     tune.Geometry.InclineRise,
	}
}

// Build lays out cell at c. g is only consulted for bridge pillars and may be
// nil, in which case bridges carry deck and side supports only.
func (b *Builder) Build(c model.Coord, cell model.Cell, g geometry.Ground) Plan {
	plan := Plan{Coord: c, Kind: cell.Kind, Height: cell.Height}
	h := cell.Height
	switch k := cell.Kind; k {
	case model.None:
	case model.StraightNS, model.StraightEW:
		d, _ := k.Heading()
		plan.Track = straight(c, h, d, cell.Lanes)
	case model.CurveNE, model.CurveNW, model.CurveSE, model.CurveSW:
		plan.Track = b.curve(c, h, k)
	case model.Junction3N, model.Junction3S, model.Junction3E, model.Junction3W, model.Junction4:
		centre := c.Origin(h).Add(mid, 0, mid)
		plan.Junction = &centre
		plan.Track = arms(c, centre, k.Arms())
	case model.Station:
		plan.Platform = cell.Platforms
		if len(plan.Platform) == 0 {
			plan.Platform = Platform(c, h)
		}
		plan.Track = append(straight(c, h, model.North, cell.Lanes), straight(c, h, model.East, cell.Lanes)...)
	case model.BridgeNS, model.BridgeEW:
		d, _ := k.Heading()
		plan.Track = straight(c, h, d, 1)
		plan.Bridge = b.bridge(c, h, d, g)
	case model.TunnelNS, model.TunnelEW:
		d, _ := k.Heading()
		plan.Track = straight(c, h, d, 1)
		plan.Clearance = tunnel(c, h, d)
	case model.InclineUpN, model.InclineUpS, model.InclineUpE, model.InclineUpW,
		model.InclineDownN, model.InclineDownS, model.InclineDownE, model.InclineDownW:
		plan.Track = b.incline(c, h, k)
	}
	return plan
}

// straight runs lanes parallel tracks across the cell along the axis of d,
// two blocks apart and centred on the midline.
func straight(c model.Coord, h int, d model.Dir, lanes int) []Point {
	lanes = max(lanes, 1)
	o := c.Origin(h)
	out := make([]Point, 0, lanes*model.CellSize)
	for lane := 0; lane < lanes; lane++ {
		off := 0
		if lanes > 1 {
			off = (lane - lanes/2) * laneSpread
		}
		for i := 0; i < model.CellSize; i++ {
			var p model.Pos
			if d.Axis() == 0 {
				p = o.Add(mid+off, 0, i)
			} else {
				p = o.Add(i, 0, mid+off)
			}
			out = append(out, Point{Pos: p, Dir: d})
		}
	}
	return out
}

func (b *Builder) curve(c model.Coord, h int, k model.Kind) []Point {
	var ns, ew model.Dir
	arms := k.Arms()
	if arms.Allows(model.North) {
		ns = model.North
	} else {
		ns = model.South
	}
	if arms.Allows(model.East) {
		ew = model.East
	} else {
		ew = model.West
	}
	q, ok := geometry.CurveFor(ns, ew)
	if !ok {
		return nil
	}
	centre := c.Origin(h).Add(mid, 0, mid)
	var out []Point
	for _, p := range b.curves.Arc(centre, q, b.radius) {
		if inside(c, p) {
			out = append(out, Point{Pos: p, Dir: ns})
		}
	}
	return out
}

func arms(c model.Coord, centre model.Pos, f model.Flow) []Point {
	out := make([]Point, 0, 4*armLength)
	for _, d := range model.Dirs {
		if !f.Allows(d) {
			continue
		}
		for i := 1; i <= armLength; i++ {
			if p := centre.Step(d, i); inside(c, p) {
				out = append(out, Point{Pos: p, Dir: d})
			}
		}
	}
	return out
}

// Platform is the 8x8 station floor centred in the cell, one below track height h.
func Platform(c model.Coord, h int) []model.Pos {
	o := c.Origin(h - 1)
	out := make([]model.Pos, 0, (platformHi-platformLo)*(platformHi-platformLo))
	for x := platformLo; x < platformHi; x++ {
		for z := platformLo; z < platformHi; z++ {
			out = append(out, o.Add(x, 0, z))
		}
	}
	return out
}

func (b *Builder) bridge(c model.Coord, h int, d model.Dir, g geometry.Ground) geometry.Bridge {
	start, end := span(c, h, d)
	if g == nil {
		br := b.bridges.Build(noGround{}, start, end, h)
		br.Pillars = nil
		return br
	}
	return b.bridges.Build(g, start, end, h)
}

func tunnel(c model.Coord, h int, d model.Dir) []model.Pos {
	o := c.Origin(h)
	out := make([]model.Pos, 0, model.CellSize*clearance*clearance)
	for i := 0; i < model.CellSize; i++ {
		for dy := 0; dy < clearance; dy++ {
			for off := -1; off <= 1; off++ {
				if d.Axis() == 0 {
					out = append(out, o.Add(mid+off, dy, i))
				} else {
					out = append(out, o.Add(i, dy, mid+off))
				}
			}
		}
	}
	return out
}

// incline climbs or descends by the configured rise while crossing the cell
// in the kind's heading.
func (b *Builder) incline(c model.Coord, h int, k model.Kind) []Point {
	d, _ := k.Heading()
	start, end := span(c, h, d)
	if k.Ascending() {
		end.Y = h + b.rise
	} else {
		end.Y = h - b.rise
	}
	var out []Point
	for _, s := range b.inclines.Build(start, end, d) {
		if inside(c, s.Pos) {
			out = append(out, Point{Pos: s.Pos, Dir: d})
		}
	}
	return out
}

// span is the midline from the edge opposite d to the edge facing d.
func span(c model.Coord, h int, d model.Dir) (model.Pos, model.Pos) {
	o := c.Origin(h)
	last := model.CellSize - 1
	switch d {
	case model.North:
		return o.Add(mid, 0, last), o.Add(mid, 0, 0)
	case model.South:
		return o.Add(mid, 0, 0), o.Add(mid, 0, last)
	case model.East:
		return o.Add(0, 0, mid), o.Add(last, 0, mid)
	default:
		return o.Add(last, 0, mid), o.Add(0, 0, mid)
	}
}

func inside(c model.Coord, p model.Pos) bool {
	return p.Cell() == c
}

type noGround struct{}

func (noGround) SurfaceHeight(x, z int) int { return 0 }
func (noGround) FloorHeight(x, z int) int   { return 0 }
func (noGround) IsSupport(x, y, z int) bool { return false }
