package reconcile

import (
	"time"

	"railnet.ai/internal/sim/rail/model"
)

// Pending is a deferred request to join two adjacent cells whose track meets
// the shared boundary at different heights.
type Pending struct {
	From       model.Coord
	To         model.Coord
	Dir        model.Dir
	FromHeight int
	ToHeight   int
	CreatedAt  time.Time
}

// ID is the same for both orientations of a pair: the lower coordinate is
// always written first.
func (p Pending) ID() string {
	lo, hi := p.From, p.To
	if hi.Less(lo) {
		lo, hi = hi, lo
	}
	return lo.String() + "->" + hi.String()
}

func (p Pending) Delta() int {
	d := p.ToHeight - p.FromHeight
	if d < 0 {
		return -d
	}
	return d
}

// TransitionRun is the horizontal distance a height change of delta needs: four
// blocks per level for small changes, three for larger ones, never below six.
func TransitionRun(delta int) int {
	run := 3 * delta
	if delta < 4 {
		run = 4 * delta
	}
	return max(run, 6)
}
