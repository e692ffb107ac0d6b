package mathx

import opensimplex "github.com/ojrac/opensimplex-go"

// NewNoise returns seeded simplex noise normalized to [0, 1]. Build it once
// per seed and share it; evaluation does not mutate it.
func NewNoise(seed int64) opensimplex.Noise {
	return opensimplex.NewNormalized(seed)
}

// OctaveNoise layers octaves of n, doubling the frequency and scaling the
// amplitude by persistence each step. The result stays in n's range.
func OctaveNoise(n opensimplex.Noise, x, z float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < max(octaves, 1); i++ {
		total += n.Eval2(x*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
