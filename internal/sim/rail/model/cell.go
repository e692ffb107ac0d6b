package model

// Flow is the set of sides traffic may leave the cell toward.
type Flow uint8

const (
	FlowNorth Flow = 1 << iota
	FlowSouth
	FlowEast
	FlowWest

	NorthSouth = FlowNorth | FlowSouth
	EastWest   = FlowEast | FlowWest
	All        = NorthSouth | EastWest
)

func FlowOf(d Dir) Flow {
	switch d {
	case North:
		return FlowNorth
	case South:
		return FlowSouth
	case East:
		return FlowEast
	default:
		return FlowWest
	}
}

func (f Flow) Allows(d Dir) bool {
	return f&FlowOf(d) != 0
}

func (f Flow) Bidirectional() bool {
	return f == NorthSouth || f == EastWest || f == All
}

func (f Flow) Count() int {
	n := 0
	for _, d := range Dirs {
		if f.Allows(d) {
			n++
		}
	}
	return n
}

// Cell is one topology decision.
type Cell struct {
	Kind      Kind  `json:"kind"`
	Flow      Flow  `json:"flow"`
	Height    int   `json:"height"`
	Lanes     int   `json:"lanes"`
	Platforms []Pos `json:"platforms,omitempty"`
}

var Empty = Cell{Kind: None, Flow: All}

func (c Cell) IsEmpty() bool {
	return c.Kind == None
}

func (c Cell) Connects(d Dir) bool {
	if c.Kind == None {
		return false
	}
	return c.Flow.Allows(d) && c.Kind.Arms().Allows(d)
}

func (c Cell) ConnectsNorth() bool { return c.Connects(North) }
func (c Cell) ConnectsSouth() bool { return c.Connects(South) }
func (c Cell) ConnectsEast() bool  { return c.Connects(East) }
func (c Cell) ConnectsWest() bool  { return c.Connects(West) }

// Linked reports whether c and its neighbor in direction d meet at the shared edge.
func (c Cell) Linked(d Dir, neighbor Cell) bool {
	return c.Connects(d) && neighbor.Connects(d.Opposite())
}
