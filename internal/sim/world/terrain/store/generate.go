package store

import (
	"railnet.ai/internal/sim/rail/model"
	genpkg "railnet.ai/internal/sim/world/terrain/gen"
)

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	p := s.field.Params()
	for lz := 0; lz < model.CellSize; lz++ {
		for lx := 0; lx < model.CellSize; lx++ {
			wx := ch.CX*model.CellSize + lx
			wz := ch.CZ*model.CellSize + lz
			ground := s.field.GroundAt(wx, wz)
			water, _ := genpkg.WaterAt(ground, p)
			i := ch.index(lx, lz)
			ch.Ground[i] = int16(ground)
			ch.Water[i] = int16(water)
		}
	}
	ch.dirty = true
}

// column is the ground and water height of (x, z), read from the loaded chunk
// when there is one.
func (s *ChunkStore) column(x, z int) (ground, water int) {
	c := model.CoordOf(x, z)
	s.mu.RLock()
	ch := s.chunks[c]
	s.mu.RUnlock()
	if ch != nil {
		i := ch.index(genpkg.Mod(x, model.CellSize), genpkg.Mod(z, model.CellSize))
		return int(ch.Ground[i]), int(ch.Water[i])
	}
	ground = s.field.GroundAt(x, z)
	water, _ = genpkg.WaterAt(ground, s.field.Params())
	return ground, water
}
