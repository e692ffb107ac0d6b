package observerproto

import "railnet.ai/internal/sim/rail/reconcile"

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeFrame     = "FRAME"

	EncodingGlyph = "glyph"
	EncodingRLE   = "rle"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to move the view or switch worlds.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	World           string `json:"world,omitempty"`
	Center          [2]int `json:"center"`
	Radius          int    `json:"radius"`
	IntervalMs      int    `json:"interval_ms"`
	Encoding        string `json:"encoding,omitempty"`
}

// HTTP response for GET /api/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	DefaultWorld    string      `json:"default_world"`
	Worlds          []WorldInfo `json:"worlds"`
}

type WorldInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	BoundaryR int    `json:"boundary_r"`
	Rail      bool   `json:"rail"`
	Open      bool   `json:"open"`
}

// Server -> Client. The cells around Center, north to south and west to
// east, plus the world's reconciliation counters. Glyph frames carry Rows;
// rle frames carry Cells, the run-length encoded kind ids.
type FrameMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Seq             uint64          `json:"seq"`
	World           string          `json:"world"`
	Center          [2]int          `json:"center"`
	Radius          int             `json:"radius"`
	Encoding        string          `json:"encoding"`
	Rows            []string        `json:"rows,omitempty"`
	Cells           string          `json:"cells,omitempty"`
	Reconcile       reconcile.Stats `json:"reconcile"`
	CachedCells     int             `json:"cached_cells"`
}
