package reconcile

import (
	"fmt"
	"io"
	"log"
	"sync"

	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/timeutil"
)

// World is the host's view of materialized cells.
type World interface {
	CellReady(c model.Coord) bool
	HasTrack(p model.Pos) bool
}

// Connector lays a transition between two track positions. It reports
// whether anything was built.
type Connector interface {
	Connect(a, b model.Pos, dir model.Dir) (bool, error)
}

type ConnectorFunc func(a, b model.Pos, dir model.Dir) (bool, error)

func (f ConnectorFunc) Connect(a, b model.Pos, dir model.Dir) (bool, error) { return f(a, b, dir) }

type Options struct {
	Clock  timeutil.Clock
	Sink   Sink
	Logger *log.Logger
}

type Stats struct {
	Pending    int `json:"pending"`
	Added      int `json:"added"`
	Processed  int `json:"processed"`
	Connected  int `json:"connected"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Expired    int `json:"expired"`
	Requeued   int `json:"requeued"`
	TrackCells int `json:"track_cells"`
	Scanned    int `json:"scanned"`
}

// Queue collects boundary mismatches between adjacent cells and hands them
// to the connector once both cells are ready. Every identity is attempted at
// most once.
type Queue struct {
	cfg    tuning.Reconcile
	world  World
	conn   Connector
	clock  timeutil.Clock
	sink   Sink
	logger *log.Logger
	order  []int

	mu        sync.Mutex
	fifo      []Pending
	pending   map[string]struct{}
	inflight  map[string]struct{}
	processed map[string]struct{}
	tracks    map[model.Coord]struct{}
	scanned   map[model.Coord]struct{}
	stats     Stats
}

func NewQueue(cfg tuning.Reconcile, world World, conn Connector, opts Options) *Queue {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Queue{
		cfg:       cfg,
		world:     world,
		conn:      conn,
		clock:     opts.Clock,
		sink:      opts.Sink,
		logger:    opts.Logger,
		order:     scanOrder(cfg.Search),
		pending:   map[string]struct{}{},
		inflight:  map[string]struct{}{},
		processed: map[string]struct{}{},
		tracks:    map[model.Coord]struct{}{},
		scanned:   map[model.Coord]struct{}{},
	}
}

// MarkTrackCell records that c received generated track.
func (q *Queue) MarkTrackCell(c model.Coord) {
	q.mu.Lock()
	q.tracks[c] = struct{}{}
	q.mu.Unlock()
}

func (q *Queue) HasTrackCell(c model.Coord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tracks[c]
	return ok
}

// Scan inspects the boundaries between c and its ready, tracked neighbors
// and enqueues every pair whose track heights differ. A cell is scanned once
// until the scanned cache fills and is reset.
func (q *Queue) Scan(c model.Coord) int {
	q.mu.Lock()
	if _, ok := q.tracks[c]; !ok {
		q.mu.Unlock()
		return 0
	}
	if _, ok := q.scanned[c]; ok {
		q.mu.Unlock()
		return 0
	}
	if len(q.scanned) >= q.cfg.ScanCacheSize {
		q.logger.Printf("reconcile: scanned cache full (%d), clearing", len(q.scanned))
		clear(q.scanned)
	}
	q.scanned[c] = struct{}{}
	q.mu.Unlock()

	now := q.clock.Now()
	added := 0
	for _, d := range model.Dirs {
		nb := c.Neighbor(d)
		if !q.world.CellReady(nb) || !q.HasTrackCell(nb) {
			continue
		}
		a, ok := q.findBoundary(c, d, 0)
		if !ok {
			continue
		}
		b, ok := q.findBoundary(nb, d.Opposite(), 0)
		if !ok || a.Y == b.Y {
			continue
		}
		if q.Add(Pending{From: c, To: nb, Dir: d, FromHeight: a.Y, ToHeight: b.Y, CreatedAt: now}) {
			added++
		}
	}
	return added
}

// Add enqueues p unless its identity is already pending, being attempted or
// processed.
func (q *Queue) Add(p Pending) bool {
	id := p.ID()
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.knownLocked(id) {
		return false
	}
	q.pending[id] = struct{}{}
	q.fifo = append(q.fifo, p)
	q.stats.Added++
	if q.stats.Added%100 == 0 {
		q.logger.Printf("reconcile: %d connections queued, %d pending", q.stats.Added, len(q.fifo))
	}
	return true
}

// Drain takes up to batch items off the front of the queue. Items whose
// cells are not both ready go to the back until they exceed the maximum age,
// after which they are dropped. Ready items are attempted and marked
// processed whatever the outcome. It returns the number attempted.
func (q *Queue) Drain(batch int) int {
	if batch <= 0 {
		return 0
	}
	q.mu.Lock()
	n := min(batch, len(q.fifo))
	items := make([]Pending, n)
	copy(items, q.fifo[:n])
	q.fifo = q.fifo[n:]
	for _, p := range items {
		id := p.ID()
		delete(q.pending, id)
		q.inflight[id] = struct{}{}
	}
	q.mu.Unlock()

	now := q.clock.Now()
	done := 0
	for _, p := range items {
		if !q.world.CellReady(p.From) || !q.world.CellReady(p.To) {
			q.postpone(p)
			continue
		}
		ev := q.attempt(p)
		ev.At = now
		ev.AgeMs = now.Sub(p.CreatedAt).Milliseconds()
		q.finish(ev)
		done++
	}
	return done
}

// Flush drains in batches until the queue is empty, a batch attempts
// nothing, or maxBatches is reached.
func (q *Queue) Flush(batch, maxBatches int) int {
	total := 0
	for i := 0; i < maxBatches && q.Pending() > 0; i++ {
		n := q.Drain(batch)
		total += n
		if n == 0 {
			break
		}
	}
	if total > 0 {
		q.logger.Printf("reconcile: flushed %d connections, %d still pending", total, q.Pending())
	}
	return total
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fifo)
}

func (q *Queue) IsProcessed(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.processed[id]
	return ok
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Pending = len(q.fifo)
	s.TrackCells = len(q.tracks)
	s.Scanned = len(q.scanned)
	return s
}

// Reset forgets all queued, processed, tracked and scanned state.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fifo = nil
	clear(q.pending)
	clear(q.inflight)
	clear(q.processed)
	clear(q.tracks)
	clear(q.scanned)
	q.stats = Stats{}
}

func (q *Queue) postpone(p Pending) {
	age := q.clock.Since(p.CreatedAt)
	id := p.ID()
	if age >= q.cfg.MaxAge() {
		q.mu.Lock()
		delete(q.inflight, id)
		q.stats.Expired++
		q.mu.Unlock()
		q.logger.Printf("reconcile: dropping %s after %s, cells never became ready", id, age)
		q.publish(Event{
			ID: id, From: p.From, To: p.To, Dir: p.Dir,
			FromHeight: p.FromHeight, ToHeight: p.ToHeight,
			Outcome: OutcomeExpired, AgeMs: age.Milliseconds(), At: q.clock.Now(),
		})
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, id)
	if q.knownLocked(id) {
		return
	}
	q.pending[id] = struct{}{}
	q.fifo = append(q.fifo, p)
	q.stats.Requeued++
}

func (q *Queue) knownLocked(id string) bool {
	if _, ok := q.processed[id]; ok {
		return true
	}
	if _, ok := q.inflight[id]; ok {
		return true
	}
	_, ok := q.pending[id]
	return ok
}

// attempt locates both track ends and calls the connector. Connector panics
// are recovered into OutcomePanic.
func (q *Queue) attempt(p Pending) (ev Event) {
	ev = Event{
		ID: p.ID(), From: p.From, To: p.To, Dir: p.Dir,
		FromHeight: p.FromHeight, ToHeight: p.ToHeight,
	}
	defer func() {
		if r := recover(); r != nil {
			ev.Outcome = OutcomePanic
			ev.Err = fmt.Sprint(r)
		}
	}()

	inset := q.cfg.Search.Inset
	a, okA := q.findBoundary(p.From, p.Dir, inset)
	b, okB := q.findBoundary(p.To, p.Dir.Opposite(), inset)
	if !okA || !okB {
		ev.Outcome = OutcomeNoTrack
		return ev
	}
	ev.FromHeight, ev.ToHeight = a.Y, b.Y
	delta := a.Y - b.Y
	if delta == 0 {
		ev.Outcome = OutcomeLevel
		return ev
	}
	if delta < 0 {
		delta = -delta
	}

	run := TransitionRun(delta) / 2
	anchorA, okA := q.findAnchor(p.From, p.Dir, run, a.Y)
	anchorB, okB := q.findAnchor(p.To, p.Dir.Opposite(), run, b.Y)
	if !okA || !okB {
		ev.Outcome = OutcomeNoAnchor
		return ev
	}
	ev.A, ev.B = &anchorA, &anchorB

	ok, err := q.conn.Connect(anchorA, anchorB, p.Dir)
	switch {
	case err != nil:
		ev.Outcome = OutcomeFailed
		ev.Err = err.Error()
	case ok:
		ev.Outcome = OutcomeConnected
	default:
		ev.Outcome = OutcomeRejected
	}
	return ev
}

func (q *Queue) finish(ev Event) {
	q.mu.Lock()
	delete(q.inflight, ev.ID)
	q.processed[ev.ID] = struct{}{}
	q.stats.Processed++
	switch ev.Outcome {
	case OutcomeConnected:
		q.stats.Connected++
	case OutcomeRejected:
		q.stats.Rejected++
	case OutcomeFailed, OutcomePanic:
		q.stats.Failed++
	default:
		q.stats.Skipped++
	}
	connected := q.stats.Connected
	q.mu.Unlock()

	switch ev.Outcome {
	case OutcomeConnected:
		if connected%50 == 0 {
			q.logger.Printf("reconcile: %d connections built", connected)
		}
	case OutcomeFailed, OutcomePanic:
		q.logger.Printf("reconcile: connect %s failed: %s", ev.ID, ev.Err)
	}
	q.publish(ev)
}

func (q *Queue) publish(ev Event) {
	if q.sink != nil {
		q.sink.Record(ev)
	}
}
