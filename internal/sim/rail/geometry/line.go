package geometry

import (
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/world/logic/mathx"
)

// line returns the integer cells from a to b in travel order, both ends
// included, at height y.
func line(a, b model.Pos, y int) []model.Pos {
	dx := mathx.AbsInt(b.X - a.X)
	dz := -mathx.AbsInt(b.Z - a.Z)
	sx := mathx.SignInt(b.X - a.X)
	sz := mathx.SignInt(b.Z - a.Z)
	e := dx + dz

	out := make([]model.Pos, 0, max(dx, -dz)+1)
	x, z := a.X, a.Z
	for {
		out = append(out, model.Pos{X: x, Y: y, Z: z})
		if x == b.X && z == b.Z {
			return out
		}
		e2 := 2 * e
		if e2 >= dz {
			e += dz
			x += sx
		}
		if e2 <= dx {
			e += dx
			z += sz
		}
	}
}
