package model

import "fmt"

type Dir uint8

const (
	North Dir = iota
	South
	East
	West
)

var Dirs = [4]Dir{North, South, East, West}

// Delta is the (dx, dz) step; north is -z.
func (d Dir) Delta() (int, int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

func (d Dir) Opposite() Dir {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

// Axis is 0 for north/south and 1 for east/west.
func (d Dir) Axis() int {
	if d == North || d == South {
		return 0
	}
	return 1
}

func (d Dir) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return "unknown"
}

func (d Dir) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dir) UnmarshalText(b []byte) error {
	for _, v := range Dirs {
		if v.String() == string(b) {
			*d = v
			return nil
		}
	}
	return fmt.Errorf("unknown direction %q", b)
}
