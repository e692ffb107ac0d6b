package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"railnet.ai/internal/observerproto"
	"railnet.ai/internal/sim/encoding"
	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/timeutil"
)

const (
	defaultRadius     = 8
	maxRadius         = 64
	defaultIntervalMs = 1000
	minIntervalMs     = 100
	maxIntervalMs     = 60_000
)

type Server struct {
	mgr   *multiworld.Manager
	clock timeutil.Clock
	log   *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(mgr *multiworld.Manager, clock timeutil.Clock, logger *log.Logger) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		mgr:   mgr,
		clock: clock,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		open := map[string]bool{}
		for _, id := range s.mgr.Opened() {
			open[id] = true
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			DefaultWorld:    s.mgr.DefaultID(),
		}
		for _, w := range s.mgr.Specs() {
			resp.Worlds = append(resp.Worlds, observerproto.WorldInfo{
				ID:        w.ID,
				Type:      w.Type,
				BoundaryR: w.BoundaryR,
				Rail:      w.RailEnabled,
				Open:      open[w.ID],
			})
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := s.decodeSubscribe(msg)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}
		if _, err := s.mgr.Get(sub.World); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "unknown world")
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		if s.log != nil {
			s.log.Printf("observer %s subscribed world=%s center=%v r=%d", sid, sub.World, sub.Center, sub.Radius)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan observerproto.SubscribeMsg, 1)
		writeErr := make(chan error, 1)
		go func() { writeErr <- s.stream(ctx, conn, sub, updates) }()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			next, ok := s.decodeSubscribe(msg)
			if !ok {
				continue
			}
			if _, err := s.mgr.Get(next.World); err != nil {
				continue
			}
			select {
			case updates <- next:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		if s.log != nil {
			s.log.Printf("observer %s left", sid)
		}
	}
}

// stream writes a frame immediately and after every interval, and again
// whenever the subscription changes.
func (s *Server) stream(ctx context.Context, conn *websocket.Conn, sub observerproto.SubscribeMsg, updates <-chan observerproto.SubscribeMsg) error {
	var seq uint64
	ticker := s.clock.NewTicker(time.Duration(sub.IntervalMs) * time.Millisecond)
	defer func() { ticker.Stop() }()

	send := func() error {
		seq++
		b, err := s.frame(sub, seq)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, b)
	}

	if err := send(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case next := <-updates:
			if next.IntervalMs != sub.IntervalMs {
				ticker.Stop()
				ticker = s.clock.NewTicker(time.Duration(next.IntervalMs) * time.Millisecond)
			}
			sub = next
			if err := send(); err != nil {
				return err
			}
		case <-ticker.C():
			if err := send(); err != nil {
				return err
			}
		}
	}
}

func (s *Server) frame(sub observerproto.SubscribeMsg, seq uint64) ([]byte, error) {
	rt, err := s.mgr.Get(sub.World)
	if err != nil {
		return nil, err
	}
	cx, cz, r := sub.Center[0], sub.Center[1], sub.Radius
	msg := observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Seq:             seq,
		World:           rt.Spec.ID,
		Center:          sub.Center,
		Radius:          r,
		Encoding:        sub.Encoding,
	}
	if sub.Encoding == observerproto.EncodingRLE {
		kinds := make([]model.Kind, 0, (2*r+1)*(2*r+1))
		for z := cz - r; z <= cz+r; z++ {
			for x := cx - r; x <= cx+r; x++ {
				kinds = append(kinds, rt.Gen.Cell(model.Coord{X: x, Z: z}).Kind)
			}
		}
		msg.Cells = encoding.EncodeKinds(kinds)
	} else {
		msg.Rows = rt.Gen.Map(cx-r, cz-r, cx+r, cz+r)
	}
	msg.Reconcile = rt.Queue.Stats()
	msg.CachedCells = rt.Gen.Len()
	return json.Marshal(msg)
}

func (s *Server) decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if strings.TrimSpace(sub.World) == "" {
		sub.World = s.mgr.DefaultID()
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.Radius <= 0 {
		sub.Radius = defaultRadius
	}
	if sub.Radius > maxRadius {
		sub.Radius = maxRadius
	}
	if sub.IntervalMs <= 0 {
		sub.IntervalMs = defaultIntervalMs
	}
	if sub.IntervalMs < minIntervalMs {
		sub.IntervalMs = minIntervalMs
	}
	if sub.IntervalMs > maxIntervalMs {
		sub.IntervalMs = maxIntervalMs
	}
	if sub.Encoding != observerproto.EncodingRLE {
		sub.Encoding = observerproto.EncodingGlyph
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
