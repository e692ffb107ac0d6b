package store

import (
	"sort"

	"railnet.ai/internal/sim/rail/model"
)

func (s *ChunkStore) InBounds(x, z int) bool {
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

// Load materializes the chunk at c. Out of bounds chunks are never loaded.
func (s *ChunkStore) Load(c model.Coord) bool {
	if !s.InBounds(c.X*model.CellSize, c.Z*model.CellSize) {
		return false
	}
	s.GetOrGenChunk(c.X, c.Z)
	return true
}

func (s *ChunkStore) Unload(c model.Coord) {
	s.mu.Lock()
	delete(s.chunks, c)
	s.mu.Unlock()
}

func (s *ChunkStore) GetOrGenChunk(cx, cz int) *Chunk {
	k := model.Coord{X: cx, Z: cz}
	s.mu.RLock()
	ch, ok := s.chunks[k]
	s.mu.RUnlock()
	if ok {
		return ch
	}
	ch = newChunk(cx, cz)
	s.GenerateChunk(ch)
	_ = ch.Digest()

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.chunks[k]; ok {
		return prev
	}
	s.chunks[k] = ch
	return ch
}

func (s *ChunkStore) Chunk(c model.Coord) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chunks[c]
	return ch, ok
}

func (s *ChunkStore) LoadedChunkKeys() []model.Coord {
	s.mu.RLock()
	keys := make([]model.Coord, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// SurfaceHeight is the top of the column, water included.
func (s *ChunkStore) SurfaceHeight(x, z int) int {
	_, water := s.column(x, z)
	return water
}

func (s *ChunkStore) FloorHeight(x, z int) int {
	ground, _ := s.column(x, z)
	return ground
}

func (s *ChunkStore) IsLiquid(x, y, z int) bool {
	ground, water := s.column(x, z)
	if y <= ground || y > water {
		return false
	}
	return !s.placed(model.Pos{X: x, Y: y, Z: z}, func(ch *Chunk) map[model.Pos]struct{} { return ch.solid })
}

func (s *ChunkStore) IsSupport(x, y, z int) bool {
	p := model.Pos{X: x, Y: y, Z: z}
	if s.placed(p, func(ch *Chunk) map[model.Pos]struct{} { return ch.solid }) {
		return true
	}
	if s.placed(p, func(ch *Chunk) map[model.Pos]struct{} { return ch.air }) {
		return false
	}
	ground, _ := s.column(x, z)
	return y <= ground && y >= s.Gen.MinBuildHeight
}

func (s *ChunkStore) MaxBuildHeight() int { return s.Gen.MaxBuildHeight }

// CellReady reports whether the chunk at c is loaded.
func (s *ChunkStore) CellReady(c model.Coord) bool {
	_, ok := s.Chunk(c)
	return ok
}

func (s *ChunkStore) HasTrack(p model.Pos) bool {
	return s.placed(p, func(ch *Chunk) map[model.Pos]struct{} { return ch.track })
}

func (s *ChunkStore) placed(p model.Pos, set func(*Chunk) map[model.Pos]struct{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chunks[p.Cell()]
	if !ok {
		return false
	}
	_, ok = set(ch)[p]
	return ok
}
