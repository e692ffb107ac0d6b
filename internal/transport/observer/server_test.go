package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"railnet.ai/internal/observerproto"
	"railnet.ai/internal/sim/encoding"
	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/timeutil"
)

func newTestServer(t *testing.T) (*Server, *multiworld.Manager) {
	t.Helper()
	cfg, _ := multiworld.Load("")
	tune := tuning.Defaults()
	tune.Network.StationChance = 1
	mgr, err := multiworld.NewManager(cfg, multiworld.Options{Seed: 7, Tuning: tune})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.CloseAll() })
	return NewServer(mgr, timeutil.NewMockClock(time.Unix(0, 0)), nil), mgr
}

func TestBootstrap_LoopbackOnly(t *testing.T) {
	s, mgr := newTestServer(t)
	if _, err := mgr.Get("HIGHLANDS"); err != nil {
		t.Fatalf("get: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/observer/bootstrap", nil)
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote status = %d", rec.Code)
	}

	req.RemoteAddr = "127.0.0.1:5000"
	rec = httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("loopback status = %d", rec.Code)
	}
	var resp observerproto.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DefaultWorld != "OVERWORLD" || len(resp.Worlds) != 3 {
		t.Fatalf("bootstrap = %+v", resp)
	}
	for _, w := range resp.Worlds {
		if w.Open != (w.ID == "HIGHLANDS") {
			t.Fatalf("world %s open=%v", w.ID, w.Open)
		}
	}
}

func TestNormalizeSubscribe(t *testing.T) {
	cases := []struct {
		in, want observerproto.SubscribeMsg
	}{
		{observerproto.SubscribeMsg{}, observerproto.SubscribeMsg{Radius: defaultRadius, IntervalMs: defaultIntervalMs, Encoding: "glyph"}},
		{observerproto.SubscribeMsg{Radius: 1000, IntervalMs: 5, Encoding: "bogus"}, observerproto.SubscribeMsg{Radius: maxRadius, IntervalMs: minIntervalMs, Encoding: "glyph"}},
		{observerproto.SubscribeMsg{Radius: 3, IntervalMs: 1 << 30, Encoding: "rle"}, observerproto.SubscribeMsg{Radius: 3, IntervalMs: maxIntervalMs, Encoding: "rle"}},
	}
	for _, tc := range cases {
		got := tc.in
		normalizeSubscribe(&got)
		if got != tc.want {
			t.Fatalf("normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) observerproto.FrameMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f observerproto.FrameMsg
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func TestWS_StreamsFramesAndResubscribes(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		Center:          [2]int{-1, -1},
		Radius:          1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != observerproto.TypeFrame || f.Seq != 1 || f.World != "OVERWORLD" {
		t.Fatalf("frame header = %+v", f)
	}
	if len(f.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(f.Rows))
	}
	// (-1,-1) sits on both grid lines.
	if f.Rows[1] != "-S-" {
		t.Fatalf("middle row = %q", f.Rows[1])
	}
	if []rune(f.Rows[0])[1] != '|' {
		t.Fatalf("north row = %q", f.Rows[0])
	}

	sub.Radius = 2
	sub.World = "HIGHLANDS"
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	f = readFrame(t, conn)
	if f.Seq != 2 || f.World != "HIGHLANDS" || len(f.Rows) != 5 {
		t.Fatalf("resubscribed frame = seq %d world %s rows %d", f.Seq, f.World, len(f.Rows))
	}

	sub.Radius = 1
	sub.World = ""
	sub.Encoding = observerproto.EncodingRLE
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("resubscribe rle: %v", err)
	}
	f = readFrame(t, conn)
	if f.Encoding != observerproto.EncodingRLE || len(f.Rows) != 0 {
		t.Fatalf("rle frame = %+v", f)
	}
	kinds, err := encoding.DecodeKinds(f.Cells, 9)
	if err != nil || len(kinds) != 9 {
		t.Fatalf("decode cells: %v (%d)", err, len(kinds))
	}
	if kinds[4] != model.Station || kinds[3] != model.StraightEW || kinds[1] != model.StraightNS {
		t.Fatalf("cells = %v", kinds)
	}
}

func TestWS_RejectsBadHandshake(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}
