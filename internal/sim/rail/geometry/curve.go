package geometry

import (
	"math"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// Quadrant names the arc between two perpendicular sides.
type Quadrant uint8

const (
	QuadrantNE Quadrant = iota
	QuadrantNW
	QuadrantSE
	QuadrantSW
)

// span returns the arc's start angle and its full 90 degree end in degrees,
// measured with x = cos and z = sin.
func (q Quadrant) span() (from, to int) {
	switch q {
	case QuadrantNE:
		return 0, 90
	case QuadrantNW:
		return 90, 180
	case QuadrantSE:
		return 270, 360
	default:
		return 180, 270
	}
}

// halfSpan is the 45 degree slice of span that touches the arc's outer edge.
func (q Quadrant) halfSpan() (from, to int) {
	switch q {
	case QuadrantNE:
		return 0, 45
	case QuadrantNW:
		return 135, 180
	case QuadrantSE:
		return 315, 360
	default:
		return 180, 225
	}
}

func (q Quadrant) String() string {
	switch q {
	case QuadrantNE:
		return "ne"
	case QuadrantNW:
		return "nw"
	case QuadrantSE:
		return "se"
	case QuadrantSW:
		return "sw"
	}
	return "unknown"
}

const minArcSegments = 8

type CurveBuilder struct {
	minRadius int
	maxAngle  int
}

func NewCurveBuilder(cfg tuning.Geometry) *CurveBuilder {
	return &CurveBuilder{minRadius: cfg.MinCurveRadius, maxAngle: cfg.MaxCurveAngle}
}

// Arc traces the 90 degree quadrant of a circle around center. The radius is
// raised to the configured minimum.
func (b *CurveBuilder) Arc(center model.Pos, q Quadrant, radius int) []model.Pos {
	from, to := q.span()
	return b.arc(center, max(radius, b.minRadius), from, to)
}

// HalfArc is Arc limited to 45 degrees.
func (b *CurveBuilder) HalfArc(center model.Pos, q Quadrant, radius int) []model.Pos {
	from, to := q.halfSpan()
	return b.arc(center, max(radius, b.minRadius), from, to)
}

func (b *CurveBuilder) arc(center model.Pos, radius, fromDeg, toDeg int) []model.Pos {
	segments := max(radius/2, minArcSegments)
	start := float64(fromDeg) * math.Pi / 180
	sweep := float64(toDeg-fromDeg) * math.Pi / 180

	out := make([]model.Pos, 0, segments+1)
	for i := 0; i <= segments; i++ {
		a := start + sweep*float64(i)/float64(segments)
		p := model.Pos{
			X: mathx.RoundHalfUp(float64(center.X) + float64(radius)*math.Cos(a)),
			Y: center.Y,
			Z: mathx.RoundHalfUp(float64(center.Z) + float64(radius)*math.Sin(a)),
		}
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsValidCurve accepts only perpendicular side pairs.
func IsValidCurve(from, to model.Dir) bool {
	if from == to || from == to.Opposite() {
		return false
	}
	return from.Axis() != to.Axis()
}

// CurveFor maps a turn between two sides to the quadrant it sweeps.
func CurveFor(from, to model.Dir) (Quadrant, bool) {
	if !IsValidCurve(from, to) {
		return 0, false
	}
	var ns, ew model.Dir
	if from.Axis() == 0 {
		ns, ew = from, to
	} else {
		ns, ew = to, from
	}
	switch {
	case ns == model.North && ew == model.East:
		return QuadrantNE, true
	case ns == model.North && ew == model.West:
		return QuadrantNW, true
	case ns == model.South && ew == model.East:
		return QuadrantSE, true
	default:
		return QuadrantSW, true
	}
}

// OptimalRadius is half the longer horizontal extent between start and end,
// clamped to [min, 4*min].
func (b *CurveBuilder) OptimalRadius(start, end model.Pos) int {
	dx := mathx.AbsInt(end.X - start.X)
	dz := mathx.AbsInt(end.Z - start.Z)
	return mathx.ClampInt(max(dx, dz)/2, b.minRadius, b.minRadius*4)
}

// Path builds the turn from side from to side to, centred on start. It is empty
// for non-perpendicular pairs.
func (b *CurveBuilder) Path(start, end model.Pos, from, to model.Dir) []model.Pos {
	q, ok := CurveFor(from, to)
	if !ok {
		return nil
	}
	r := b.OptimalRadius(start, end)
	if b.maxAngle >= 90 {
		return b.Arc(start, q, r)
	}
	return b.HalfArc(start, q, r)
}

// InterpolateHeight is the linear height of point index out of total along a
// curve from start to end.
func InterpolateHeight(start, end model.Pos, index, total int) int {
	if total <= 1 {
		return start.Y
	}
	t := float64(index) / float64(total-1)
	return mathx.RoundHalfUp(float64(start.Y) + float64(end.Y-start.Y)*t)
}
