package heightmap

import (
	"math"

	"railnet.ai/internal/sim/rail/model"
)

const (
	flatVariation   = 5
	ruggedVariation = 15

	side = model.CellSize
)

// Profile is the sampled surface of one cell. It is never mutated after
// Analyzer builds it.
type Profile struct {
	Cell    model.Coord
	Min     int
	Max     int
	Average int

	heights [side * side]int
}

func newProfile(c model.Coord, heights [side * side]int) *Profile {
	p := &Profile{Cell: c, heights: heights, Min: math.MaxInt, Max: math.MinInt}
	sum := 0
	for _, h := range heights {
		sum += h
		if h < p.Min {
			p.Min = h
		}
		if h > p.Max {
			p.Max = h
		}
	}
	p.Average = sum / len(heights)
	return p
}

// HeightAt returns the sample at local (lx, lz), or Average outside the cell.
func (p *Profile) HeightAt(lx, lz int) int {
	if lx < 0 || lx >= side || lz < 0 || lz >= side {
		return p.Average
	}
	return p.heights[lz*side+lx]
}

func (p *Profile) Variation() int { return p.Max - p.Min }
func (p *Profile) Flat() bool     { return p.Variation() < flatVariation }
func (p *Profile) Rugged() bool   { return p.Variation() > ruggedVariation }

// Slope is the rise per unit across the cell along d's axis, measured between
// the integer averages of the two opposite edges.
func (p *Profile) Slope(d model.Dir) float64 {
	var a, b int
	for i := 0; i < side; i++ {
		if d.Axis() == 0 {
			a += p.HeightAt(i, 0)
			b += p.HeightAt(i, side-1)
		} else {
			a += p.HeightAt(side-1, i)
			b += p.HeightAt(0, i)
		}
	}
	a /= side
	b /= side
	return math.Abs(float64(b-a)) / float64(side)
}

// EdgeHeights returns the samples along the cell edge facing d.
func (p *Profile) EdgeHeights(d model.Dir) [side]int {
	var out [side]int
	for i := 0; i < side; i++ {
		switch d {
		case model.North:
			out[i] = p.HeightAt(i, 0)
		case model.South:
			out[i] = p.HeightAt(i, side-1)
		case model.East:
			out[i] = p.HeightAt(side-1, i)
		case model.West:
			out[i] = p.HeightAt(0, i)
		}
	}
	return out
}
