package store

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync"

	"railnet.ai/internal/sim/rail/geometry"
	"railnet.ai/internal/sim/rail/model"
	genpkg "railnet.ai/internal/sim/world/terrain/gen"
)

const chunkArea = model.CellSize * model.CellSize

type Chunk struct {
	CX, CZ int
	Ground []int16 // len = 16*16, top solid y per column
	Water  []int16 // water surface y; equal to Ground when dry

	track map[model.Pos]struct{}
	solid map[model.Pos]struct{}
	air   map[model.Pos]struct{}

	dirty bool
	hash  [32]byte
}

func newChunk(cx, cz int) *Chunk {
	return &Chunk{
		CX:     cx,
		CZ:     cz,
		Ground: make([]int16, chunkArea),
		Water:  make([]int16, chunkArea),
		track:  map[model.Pos]struct{}{},
		solid:  map[model.Pos]struct{}{},
		air:    map[model.Pos]struct{}{},
	}
}

func (c *Chunk) index(lx, lz int) int {
	return lx + lz*model.CellSize
}

func (c *Chunk) TrackCount() int { return len(c.track) }

// Track returns the chunk's track positions ordered by y, then z, then x.
func (c *Chunk) Track() []model.Pos {
	out := make([]model.Pos, 0, len(c.track))
	for p := range c.track {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return out
}

// Digest covers the column heights and the placed track.
func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for i := range c.Ground {
			binary.LittleEndian.PutUint16(tmp[:], uint16(c.Ground[i]))
			h.Write(tmp[:])
			binary.LittleEndian.PutUint16(tmp[:], uint16(c.Water[i]))
			h.Write(tmp[:])
		}
		var p [12]byte
		for _, t := range c.Track() {
			binary.LittleEndian.PutUint32(p[0:], uint32(int32(t.X)))
			binary.LittleEndian.PutUint32(p[4:], uint32(int32(t.Y)))
			binary.LittleEndian.PutUint32(p[8:], uint32(int32(t.Z)))
			h.Write(p[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

type WorldGen struct {
	Seed      int64
	BoundaryR int // blocks, 0 = unbounded

	BaseHeight            int
	SeaLevel              int
	BiomeRegionSize       int
	NoiseScale            int
	LakeProbScalePermille int
	MinBuildHeight        int
	MaxBuildHeight        int
}

func DefaultWorldGen(seed int64) WorldGen {
	return WorldGen{
		Seed:            seed,
		BaseHeight:      68,
		SeaLevel:        62,
		BiomeRegionSize: 256,
		NoiseScale:      64,
		MinBuildHeight:  -64,
		MaxBuildHeight:  320,
	}
}

func (g WorldGen) params() genpkg.Params {
	return genpkg.Params{
		BaseHeight:            g.BaseHeight,
		SeaLevel:              g.SeaLevel,
		BiomeRegionSize:       g.BiomeRegionSize,
		NoiseScale:            g.NoiseScale,
		LakeProbScalePermille: g.LakeProbScalePermille,
	}
}

// ChunkStore is a synthetic host world. Terrain exists everywhere as a pure
// function of the seed; a chunk is ready once loaded, and only loaded chunks
// accept track.
type ChunkStore struct {
	Gen WorldGen

	inclines *geometry.InclineBuilder
	field    *genpkg.Field

	mu     sync.RWMutex
	chunks map[model.Coord]*Chunk
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	return &ChunkStore{
		Gen:      gen,
		inclines: geometry.NewInclineBuilder(),
		field:    genpkg.NewField(gen.Seed, gen.params()),
		chunks:   map[model.Coord]*Chunk{},
	}
}
