package store

import (
	"fmt"

	"railnet.ai/internal/sim/rail/layout"
	"railnet.ai/internal/sim/rail/model"
)

// Apply writes a cell layout into its chunk: rail, then platforms and bridge
// structure as solid blocks, then tunnel clearance as carved air. It returns
// the number of rail positions placed.
func (s *ChunkStore) Apply(plan layout.Plan) int {
	if plan.Empty() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chunks[plan.Coord]
	if !ok {
		return 0
	}
	for _, p := range plan.Clearance {
		ch.air[p] = struct{}{}
		delete(ch.solid, p)
	}
	for _, p := range plan.Platform {
		ch.solid[p] = struct{}{}
	}
	for _, p := range plan.Bridge.Deck {
		ch.solid[p] = struct{}{}
	}
	for _, p := range plan.Bridge.Supports {
		ch.solid[p] = struct{}{}
	}
	for _, pl := range plan.Bridge.Pillars {
		for _, p := range pl.Column() {
			ch.solid[p] = struct{}{}
		}
	}
	n := 0
	for _, p := range plan.TrackPositions() {
		if p.Cell() != plan.Coord {
			continue
		}
		ch.track[p] = struct{}{}
		n++
	}
	ch.dirty = true
	return n
}

// SetTrack places rail at each position whose chunk is loaded and returns how
// many were placed.
func (s *ChunkStore) SetTrack(ps []model.Pos) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range ps {
		ch, ok := s.chunks[p.Cell()]
		if !ok {
			continue
		}
		ch.track[p] = struct{}{}
		ch.dirty = true
		n++
	}
	return n
}

// Connect lays an incline from a to b. It fails when the climb would leave the
// build range and reports false when nothing could be placed.
func (s *ChunkStore) Connect(a, b model.Pos, dir model.Dir) (bool, error) {
	segs := s.inclines.Build(a, b, dir)
	if len(segs) == 0 {
		return false, nil
	}
	ps := make([]model.Pos, 0, len(segs))
	for _, seg := range segs {
		if seg.Pos.Y < s.Gen.MinBuildHeight || seg.Pos.Y > s.Gen.MaxBuildHeight {
			return false, fmt.Errorf("transition %v -> %v leaves build range at %v", a, b, seg.Pos)
		}
		ps = append(ps, seg.Pos)
	}
	return s.SetTrack(ps) > 0, nil
}

// TrackIn lists the rail placed in chunk c.
func (s *ChunkStore) TrackIn(c model.Coord) []model.Pos {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chunks[c]
	if !ok {
		return nil
	}
	return ch.Track()
}

func (s *ChunkStore) ChunkDigest(c model.Coord) ([32]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chunks[c]
	if !ok {
		return [32]byte{}, false
	}
	return ch.Digest(), true
}
