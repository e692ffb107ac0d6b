package model

import (
	"fmt"
	"strconv"
	"strings"

	"railnet.ai/internal/sim/world/logic/mathx"
)

// CellSize is the side length of a cell in world units.
const CellSize = 16

type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

func CoordOf(x, z int) Coord {
	return Coord{X: mathx.FloorDiv(x, CellSize), Z: mathx.FloorDiv(z, CellSize)}
}

func (c Coord) Neighbor(d Dir) Coord {
	dx, dz := d.Delta()
	return Coord{X: c.X + dx, Z: c.Z + dz}
}

// Origin is the world position of local (0, y, 0).
func (c Coord) Origin(y int) Pos {
	return Pos{X: c.X * CellSize, Y: y, Z: c.Z * CellSize}
}

// Less orders by X, then Z.
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Z)
}

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Pos) Add(dx, dy, dz int) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

func (p Pos) Step(d Dir, n int) Pos {
	dx, dz := d.Delta()
	return Pos{X: p.X + dx*n, Y: p.Y, Z: p.Z + dz*n}
}

func (p Pos) AtY(y int) Pos {
	return Pos{X: p.X, Y: y, Z: p.Z}
}

func (p Pos) Cell() Coord {
	return CoordOf(p.X, p.Z)
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// ParseCoord reads the "x,z" form String produces.
func ParseCoord(s string) (Coord, error) {
	xs, zs, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Coord{}, fmt.Errorf("coord %q: want x,z", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coord{}, fmt.Errorf("coord %q: %w", s, err)
	}
	z, err := strconv.Atoi(strings.TrimSpace(zs))
	if err != nil {
		return Coord{}, fmt.Errorf("coord %q: %w", s, err)
	}
	return Coord{X: x, Z: z}, nil
}
