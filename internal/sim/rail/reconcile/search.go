package reconcile

import (
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
)

// edge is the world position of the midpoint of c's boundary facing d.
func edge(c model.Coord, d model.Dir, y int) model.Pos {
	o := c.Origin(y)
	switch d {
	case model.North:
		return o.Add(8, 0, 0)
	case model.South:
		return o.Add(8, 0, model.CellSize-1)
	case model.East:
		return o.Add(model.CellSize-1, 0, 8)
	default:
		return o.Add(0, 0, 8)
	}
}

// scanOrder lists heights in probe order: the primary band upward, then the
// upper band upward, then below the primary band downward.
func scanOrder(s tuning.Search) []int {
	out := make([]int, 0, s.UpperMax-s.LowerMin+1)
	for y := s.PrimaryMin; y <= s.PrimaryMax; y++ {
		out = append(out, y)
	}
	for y := s.PrimaryMax + 1; y <= s.UpperMax; y++ {
		out = append(out, y)
	}
	for y := s.PrimaryMin - 1; y >= s.LowerMin; y-- {
		out = append(out, y)
	}
	return out
}

// findBoundary looks for track at c's edge facing d, stepping up to inset
// blocks into the cell.
func (q *Queue) findBoundary(c model.Coord, d model.Dir, inset int) (model.Pos, bool) {
	in := d.Opposite()
	for off := 0; off <= inset; off++ {
		base := edge(c, d, 0).Step(in, off)
		for _, y := range q.order {
			p := base.AtY(y)
			if q.world.HasTrack(p) {
				return p, true
			}
		}
	}
	return model.Pos{}, false
}

// findAnchor looks for track run blocks inside c from its edge facing d,
// within the anchor window around y. Closer heights win.
func (q *Queue) findAnchor(c model.Coord, d model.Dir, run, y int) (model.Pos, bool) {
	base := edge(c, d, y).Step(d.Opposite(), run)
	if q.world.HasTrack(base) {
		return base, true
	}
	for dy := 1; dy <= q.cfg.Search.AnchorWindow; dy++ {
		if p := base.AtY(y + dy); q.world.HasTrack(p) {
			return p, true
		}
		if p := base.AtY(y - dy); q.world.HasTrack(p) {
			return p, true
		}
	}
	return model.Pos{}, false
}
