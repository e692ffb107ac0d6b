// Package gen is the deterministic height field behind the synthetic host
// terrain: biome regions, layered simplex noise and clustered lake basins.
package gen

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"railnet.ai/internal/sim/world/logic/mathx"
)

const (
	// lakeDepth is how far below sea level a lake basin is carved.
	lakeDepth = 6
	lakeGrid  = 96
	lakeR     = 10
)

func FloorDiv(a, b int) int {
	return mathx.FloorDiv(a, b)
}

func Mod(a, b int) int {
	return mathx.Mod(a, b)
}

func Hash2(seed int64, x, z int) uint64 {
	return mathx.Hash2(seed, x, z)
}

func BiomeFrom(noise uint64) string {
	switch noise % 4 {
	case 0, 1:
		return "PLAINS"
	case 2:
		return "HILLS"
	default:
		return "MOUNTAINS"
	}
}

func BiomeAt(seed int64, x, z, regionSize int) string {
	if regionSize <= 0 {
		regionSize = 1
	}
	rx := FloorDiv(x, regionSize)
	rz := FloorDiv(z, regionSize)
	return BiomeFrom(Hash2(seed, rx, rz))
}

// Amplitude is the peak deviation from the base height in a biome.
func Amplitude(biome string) float64 {
	switch biome {
	case "HILLS":
		return 14
	case "MOUNTAINS":
		return 40
	}
	return 4
}

type Params struct {
	BaseHeight      int
	SeaLevel        int
	BiomeRegionSize int
	// NoiseScale is the horizontal wavelength of the coarse noise layer in blocks.
	NoiseScale int
	// LakeProbScalePermille scales the base lake probability; 0 keeps it.
	LakeProbScalePermille int
}

// Field is the height field of one seed.
type Field struct {
	seed   int64
	p      Params
	coarse opensimplex.Noise
	fine   opensimplex.Noise
}

func NewField(seed int64, p Params) *Field {
	return &Field{
		seed:   seed,
		p:      p,
		coarse: mathx.NewNoise(seed),
		fine:   mathx.NewNoise(seed + 1),
	}
}

func (f *Field) Params() Params { return f.p }

// GroundAt is the y of the top solid block of column (x, z).
func (f *Field) GroundAt(x, z int) int {
	p := f.p
	freq := 1 / float64(max(p.NoiseScale, 1))
	biome := BiomeAt(f.seed, x, z, p.BiomeRegionSize)
	coarse := mathx.OctaveNoise(f.coarse, float64(x), float64(z), 3, freq, 0.5)
	fine := mathx.OctaveNoise(f.fine, float64(x), float64(z), 2, 4*freq, 0.5)
	n := 0.8*coarse + 0.2*fine
	h := p.BaseHeight + int(math.Round((2*n-1)*Amplitude(biome)))
	if InLake(f.seed, x, z, p.LakeProbScalePermille) {
		h = min(h, p.SeaLevel-lakeDepth)
	}
	return h
}

// WaterAt returns the water surface over a column and whether there is any.
func WaterAt(ground int, p Params) (int, bool) {
	if ground < p.SeaLevel {
		return p.SeaLevel, true
	}
	return ground, false
}

func InLake(seed int64, x, z, scalePermille int) bool {
	return InCluster(seed+17, x, z, lakeGrid, lakeR, ScalePermille(300, scalePermille))
}

func ScalePermille(base uint64, scalePermille int) uint64 {
	if scalePermille <= 0 {
		scalePermille = 1000
	}
	scaled := (base*uint64(scalePermille) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}

func InCluster(seed int64, x, z, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := FloorDiv(x, grid)
	gz := FloorDiv(z, grid)
	r2 := radius * radius

	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgz := gz + dz
			h := Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oz := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cz := cgz*grid + oz

			ddx := x - cx
			ddz := z - cz
			if ddx*ddx+ddz*ddz <= r2 {
				return true
			}
		}
	}
	return false
}
