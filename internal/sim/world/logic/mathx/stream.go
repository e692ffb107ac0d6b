package mathx

// Stream is a splitmix64 sequence. The zero value is a valid stream seeded with 0.
type Stream struct {
	state uint64
}

func NewStream(seed int64) *Stream {
	return &Stream{state: uint64(seed)}
}

// CellSeed folds a coordinate into a seed as seed*31+x, then *31+z.
func CellSeed(seed int64, x, z int) int64 {
	s := seed
	s = s*31 + int64(x)
	s = s*31 + int64(z)
	return s
}

func (s *Stream) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a value in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}
