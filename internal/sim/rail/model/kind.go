package model

// Kind is the closed set of cell shapes. Switches over Kind are expected to be
// exhaustive; add new kinds to arms, Class and String together.
type Kind uint8

const (
	None Kind = iota
	StraightNS
	StraightEW
	CurveNE
	CurveNW
	CurveSE
	CurveSW
	Junction3N // T-junction without a north arm
	Junction3S
	Junction3E
	Junction3W
	Junction4
	Station
	BridgeNS
	BridgeEW
	TunnelNS
	TunnelEW
	InclineUpN
	InclineUpS
	InclineUpE
	InclineUpW
	InclineDownN
	InclineDownS
	InclineDownE
	InclineDownW

	kindCount
)

type Class uint8

const (
	ClassNone Class = iota
	ClassStraight
	ClassCurve
	ClassJunction
	ClassStation
	ClassBridge
	ClassTunnel
	ClassIncline
)

func (k Kind) Class() Class {
	switch k {
	case None:
		return ClassNone
	case StraightNS, StraightEW:
		return ClassStraight
	case CurveNE, CurveNW, CurveSE, CurveSW:
		return ClassCurve
	case Junction3N, Junction3S, Junction3E, Junction3W, Junction4:
		return ClassJunction
	case Station:
		return ClassStation
	case BridgeNS, BridgeEW:
		return ClassBridge
	case TunnelNS, TunnelEW:
		return ClassTunnel
	case InclineUpN, InclineUpS, InclineUpE, InclineUpW,
		InclineDownN, InclineDownS, InclineDownE, InclineDownW:
		return ClassIncline
	}
	return ClassNone
}

func (k Kind) IsStraight() bool { return k.Class() == ClassStraight }
func (k Kind) IsCurve() bool    { return k.Class() == ClassCurve }
func (k Kind) IsJunction() bool { return k.Class() == ClassJunction }
func (k Kind) IsBridge() bool   { return k.Class() == ClassBridge }
func (k Kind) IsTunnel() bool   { return k.Class() == ClassTunnel }
func (k Kind) IsIncline() bool  { return k.Class() == ClassIncline }

// Arms is the set of sides the shape reaches, ignoring flow.
func (k Kind) Arms() Flow {
	switch k {
	case None:
		return 0
	case StraightNS, BridgeNS, TunnelNS:
		return NorthSouth
	case StraightEW, BridgeEW, TunnelEW:
		return EastWest
	case CurveNE:
		return FlowNorth | FlowEast
	case CurveNW:
		return FlowNorth | FlowWest
	case CurveSE:
		return FlowSouth | FlowEast
	case CurveSW:
		return FlowSouth | FlowWest
	case Junction3N:
		return All &^ FlowNorth
	case Junction3S:
		return All &^ FlowSouth
	case Junction3E:
		return All &^ FlowEast
	case Junction3W:
		return All &^ FlowWest
	case Junction4, Station:
		return All
	case InclineUpN, InclineDownN:
		return FlowNorth
	case InclineUpS, InclineDownS:
		return FlowSouth
	case InclineUpE, InclineDownE:
		return FlowEast
	case InclineUpW, InclineDownW:
		return FlowWest
	}
	return 0
}

// Heading is the travel direction of inclines and the axis of straights,
// bridges and tunnels (north or east).
func (k Kind) Heading() (Dir, bool) {
	switch k {
	case StraightNS, BridgeNS, TunnelNS, InclineUpN, InclineDownN:
		return North, true
	case InclineUpS, InclineDownS:
		return South, true
	case StraightEW, BridgeEW, TunnelEW, InclineUpE, InclineDownE:
		return East, true
	case InclineUpW, InclineDownW:
		return West, true
	}
	return North, false
}

func (k Kind) Ascending() bool {
	switch k {
	case InclineUpN, InclineUpS, InclineUpE, InclineUpW:
		return true
	}
	return false
}

func (k Kind) Tunnel() (Kind, bool) {
	switch k {
	case StraightNS:
		return TunnelNS, true
	case StraightEW:
		return TunnelEW, true
	}
	return k, false
}

func (k Kind) Bridge() (Kind, bool) {
	switch k {
	case StraightNS:
		return BridgeNS, true
	case StraightEW:
		return BridgeEW, true
	}
	return k, false
}

var kindNames = [kindCount]string{
	None:         "none",
	StraightNS:   "straight_ns",
	StraightEW:   "straight_ew",
	CurveNE:      "curve_ne",
	CurveNW:      "curve_nw",
	CurveSE:      "curve_se",
	CurveSW:      "curve_sw",
	Junction3N:   "junction3_n",
	Junction3S:   "junction3_s",
	Junction3E:   "junction3_e",
	Junction3W:   "junction3_w",
	Junction4:    "junction4",
	Station:      "station",
	BridgeNS:     "bridge_ns",
	BridgeEW:     "bridge_ew",
	TunnelNS:     "tunnel_ns",
	TunnelEW:     "tunnel_ew",
	InclineUpN:   "incline_up_n",
	InclineUpS:   "incline_up_s",
	InclineUpE:   "incline_up_e",
	InclineUpW:   "incline_up_w",
	InclineDownN: "incline_down_n",
	InclineDownS: "incline_down_s",
	InclineDownE: "incline_down_e",
	InclineDownW: "incline_down_w",
}

// Valid reports whether k is one of the enumerated kinds.
func (k Kind) Valid() bool { return k < kindCount }

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Glyph is the single-rune map symbol used by debug views.
func (k Kind) Glyph() rune {
	switch k {
	case None:
		return '.'
	case Station:
		return 'S'
	case StraightNS:
		return '|'
	case StraightEW:
		return '-'
	case CurveNE:
		return '└'
	case CurveNW:
		return '┘'
	case CurveSE:
		return '┌'
	case CurveSW:
		return '┐'
	case Junction4:
		return '┼'
	case Junction3N:
		return '┬'
	case Junction3S:
		return '┴'
	case Junction3E:
		return '┤'
	case Junction3W:
		return '├'
	case BridgeNS, BridgeEW:
		return 'B'
	case TunnelNS, TunnelEW:
		return 'T'
	case InclineUpN, InclineUpS, InclineUpE, InclineUpW:
		return '^'
	case InclineDownN, InclineDownS, InclineDownE, InclineDownW:
		return 'v'
	}
	return '?'
}
