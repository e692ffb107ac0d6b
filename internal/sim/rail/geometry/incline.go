package geometry

import (
	"math"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// Profile tags how a run of incline points was shaped.
type Profile string

const (
	ProfileNone       Profile = ""
	ProfileStraight45 Profile = "straight45"
	ProfileSCurve     Profile = "s_curve"
	// ProfileStacked is a plan, never a segment tag: the run is split into
	// several S-curves.
	ProfileStacked Profile = "stacked"
)

const (
	shortRun       = 8
	maxSCurveRise  = 11
	maxSCurveRun   = 31
	transitionSize = 3
)

type Segment struct {
	Pos     model.Pos `json:"pos"`
	Height  int       `json:"height"`
	Profile Profile   `json:"profile"`
	Dir     model.Dir `json:"dir"`
}

// MinRun is the shortest horizontal run an S-curve needs to climb delta.
func MinRun(delta int) int {
	switch delta = mathx.AbsInt(delta); delta {
	case 0, 1:
		return 8
	case 2:
		return 10
	case 3:
		return 12
	case 4:
		return 14
	case 5:
		return 15
	case 6:
		return 16
	case 7:
		return 18
	case 8:
		return 20
	case 9:
		return 22
	case 10:
		return 24
	case 11:
		return 26
	}
	return delta * 3
}

type InclineBuilder struct{}

func NewInclineBuilder() *InclineBuilder { return &InclineBuilder{} }

func rise(start, end model.Pos) (delta, run int) {
	delta = mathx.AbsInt(end.Y - start.Y)
	run = max(mathx.AbsInt(end.X-start.X), mathx.AbsInt(end.Z-start.Z))
	return delta, run
}

// Choose picks the shape for climbing from start to end.
func (b *InclineBuilder) Choose(start, end model.Pos) Profile {
	delta, run := rise(start, end)
	switch {
	case delta == 0:
		return ProfileNone
	case run < shortRun:
		return ProfileStraight45
	case delta > maxSCurveRise || run > maxSCurveRun:
		return ProfileStacked
	case run < MinRun(delta):
		return ProfileStraight45
	}
	return ProfileSCurve
}

// Build shapes the climb from start to end. Level pairs produce nothing.
func (b *InclineBuilder) Build(start, end model.Pos, dir model.Dir) []Segment {
	switch b.Choose(start, end) {
	case ProfileStraight45:
		return straight45(start, end, dir)
	case ProfileSCurve:
		return sCurve(start, end, dir)
	case ProfileStacked:
		return b.stacked(start, end, dir)
	}
	return nil
}

func straight45(start, end model.Pos, dir model.Dir) []Segment {
	delta, run := rise(start, end)
	steps := max(run, delta)
	if steps == 0 {
		return []Segment{{Pos: start, Height: start.Y, Profile: ProfileStraight45, Dir: dir}}
	}
	out := make([]Segment, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := lerp(start, end, t, t)
		out = append(out, Segment{Pos: p, Height: p.Y, Profile: ProfileStraight45, Dir: dir})
	}
	return out
}

// sCurve eases y with smoothstep while x and z advance linearly. Runs that are
// too short for the rise fall back to straight45.
func sCurve(start, end model.Pos, dir model.Dir) []Segment {
	delta, run := rise(start, end)
	if run < MinRun(delta) {
		return straight45(start, end, dir)
	}
	out := make([]Segment, 0, run+1)
	for i := 0; i <= run; i++ {
		t := float64(i) / float64(run)
		p := lerp(start, end, t, mathx.SmoothStep(t))
		out = append(out, Segment{Pos: p, Height: p.Y, Profile: ProfileSCurve, Dir: dir})
	}
	return out
}

// stacked splits the climb into the fewest equal parts that each fit one
// S-curve and joins them without repeating the shared point.
func (b *InclineBuilder) stacked(start, end model.Pos, dir model.Dir) []Segment {
	delta, run := rise(start, end)
	n := max(
		int(math.Ceil(float64(delta)/maxSCurveRise)),
		int(math.Ceil(float64(run)/maxSCurveRun)),
	)
	var out []Segment
	for i := 0; i < n; i++ {
		from := lerp(start, end, float64(i)/float64(n), float64(i)/float64(n))
		to := lerp(start, end, float64(i+1)/float64(n), float64(i+1)/float64(n))
		part := sCurve(from, to, dir)
		if len(out) > 0 && len(part) > 0 && out[len(out)-1].Pos == part[0].Pos {
			part = part[1:]
		}
		out = append(out, part...)
	}
	return out
}

// Transition eases from the end of a level run into the first incline point
// over three points.
func (b *InclineBuilder) Transition(levelEnd, inclineStart model.Pos, dir model.Dir) []Segment {
	out := make([]Segment, 0, transitionSize)
	for i := 0; i < transitionSize; i++ {
		t := float64(i) / float64(transitionSize-1)
		p := lerp(levelEnd, inclineStart, t, mathx.SmoothStep(t))
		out = append(out, Segment{Pos: p, Height: p.Y, Profile: ProfileSCurve, Dir: dir})
	}
	return out
}

// Valid checks that segments form a non-empty incline and, for S-curves, that
// the overall climb respects the single-curve limits.
func (b *InclineBuilder) Valid(segments []Segment, profile Profile) bool {
	if len(segments) == 0 {
		return false
	}
	first := segments[0]
	last := segments[len(segments)-1]
	delta := mathx.AbsInt(last.Height - first.Height)
	run := max(mathx.AbsInt(last.Pos.X-first.Pos.X), mathx.AbsInt(last.Pos.Z-first.Pos.Z))
	if profile == ProfileSCurve {
		if delta > maxSCurveRise || run > maxSCurveRun || run < MinRun(delta) {
			return false
		}
	}
	return true
}

// lerp interpolates x and z by t and y by ty, rounding half up.
func lerp(a, b model.Pos, t, ty float64) model.Pos {
	return model.Pos{
		X: mathx.RoundHalfUp(float64(a.X) + float64(b.X-a.X)*t),
		Y: mathx.RoundHalfUp(float64(a.Y) + float64(b.Y-a.Y)*ty),
		Z: mathx.RoundHalfUp(float64(a.Z) + float64(b.Z-a.Z)*t),
	}
}
