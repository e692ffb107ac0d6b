package multiworld

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"github.com/cespare/xxhash"

	"railnet.ai/internal/sim/rail/heightmap"
	"railnet.ai/internal/sim/rail/layout"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/rail/topology"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/sim/world/terrain/store"
	"railnet.ai/internal/timeutil"
)

// Attachment is what a host wires into a namespace when it opens: an outcome
// sink, a decision recorder, and teardown for both. Any field may be nil.
type Attachment struct {
	Sink     reconcile.Sink
	Decision func(topology.Decision)
	Close    func() error
}

type Options struct {
	Seed   int64
	Tuning tuning.Tuning
	Clock  timeutil.Clock
	Logger *log.Logger
	Attach func(ns string, seed int64) Attachment
}

// Runtime bundles everything one namespace owns: host terrain, the topology
// generator, the height analyzer and the reconciliation queue. They are
// created and torn down together.
type Runtime struct {
	Spec    WorldSpec
	Seed    int64
	Store   *store.ChunkStore
	Gen     *topology.Generator
	Heights *heightmap.Analyzer
	Planner *topology.Planner
	Layout  *layout.Builder
	Queue   *reconcile.Queue

	tune   tuning.Tuning
	attach Attachment
}

// Materialize loads cell c into the host, decides and lays out its track and
// scans its boundaries for mismatches with ready neighbors.
func (rt *Runtime) Materialize(c model.Coord) (topology.Decision, bool) {
	if !rt.Store.Load(c) {
		return topology.Decision{}, false
	}
	d := rt.Planner.Decide(c)
	if rt.attach.Decision != nil {
		rt.attach.Decision(d)
	}
	if n := rt.Store.Apply(rt.Layout.Build(c, d.Cell, rt.Store)); n > 0 {
		rt.Queue.MarkTrackCell(c)
	}
	rt.Queue.Scan(c)
	return d, true
}

func (rt *Runtime) Unload(c model.Coord) {
	rt.Store.Unload(c)
	rt.Heights.Forget(c)
}

// Tick drains the per-tick reconciliation batch.
func (rt *Runtime) Tick() int {
	return rt.Queue.Drain(rt.tune.Reconcile.BatchPerTick)
}

// Ready flushes the backlog once the host is fully up.
func (rt *Runtime) Ready() int {
	return rt.Queue.Flush(rt.tune.Reconcile.FlushBatch, rt.tune.Reconcile.FlushMaxBatches)
}

func (rt *Runtime) close() error {
	rt.Queue.Reset()
	rt.Gen.Clear()
	rt.Heights.Clear()
	if rt.attach.Close != nil {
		return rt.attach.Close()
	}
	return nil
}

type Manager struct {
	cfg  Config
	opts Options

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

func NewManager(cfg Config, opts Options) (*Manager, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Manager{cfg: cfg, opts: opts, runtimes: map[string]*Runtime{}}, nil
}

// DeriveSeed gives each namespace its own seed: the server seed mixed with a
// hash of the namespace id, plus the configured offset.
func DeriveSeed(serverSeed int64, spec WorldSpec) int64 {
	return serverSeed ^ int64(xxhash.Sum64String(spec.ID)) + spec.SeedOffset
}

func (m *Manager) DefaultID() string { return m.cfg.DefaultWorldID }

func (m *Manager) IDs() []string { return m.cfg.IDs() }

// Get returns the runtime for ns, opening it on first use.
func (m *Manager) Get(ns string) (*Runtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.runtimes[ns]; ok {
		return rt, nil
	}
	spec, ok := m.cfg.WorldSpecByID(ns)
	if !ok {
		return nil, fmt.Errorf("unknown world %q", ns)
	}
	rt := m.open(spec)
	m.runtimes[ns] = rt
	m.opts.Logger.Printf("world %s opened seed=%d", ns, rt.Seed)
	return rt, nil
}

func (m *Manager) open(spec WorldSpec) *Runtime {
	seed := DeriveSeed(m.opts.Seed, spec)
	tune := m.opts.Tuning
	if !spec.RailEnabled {
		tune.Network.Enabled = false
	}
	logger := log.New(m.opts.Logger.Writer(), m.opts.Logger.Prefix()+"["+spec.ID+"] ", m.opts.Logger.Flags())

	var att Attachment
	if m.opts.Attach != nil {
		att = m.opts.Attach(spec.ID, seed)
	}
	host := store.NewChunkStore(spec.WorldGen(seed))
	gen := topology.NewGenerator(seed, tune.Network, logger)
	heights := heightmap.New(host, tune)
	return &Runtime{
		Spec:    spec,
		Seed:    seed,
		Store:   host,
		Gen:     gen,
		Heights: heights,
		Planner: topology.NewPlanner(gen, heights, tune.Terrain),
		Layout:  layout.NewBuilder(tune),
		Queue: reconcile.NewQueue(tune.Reconcile, host, host, reconcile.Options{
			Clock:  m.opts.Clock,
			Sink:   att.Sink,
			Logger: logger,
		}),
		tune:   tune,
		attach: att,
	}
}

// Opened lists the ids of open namespaces in order.
func (m *Manager) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close tears down ns. A later Get starts it from scratch.
func (m *Manager) Close(ns string) error {
	m.mu.Lock()
	rt, ok := m.runtimes[ns]
	delete(m.runtimes, ns)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.opts.Logger.Printf("world %s closed", ns)
	return rt.close()
}

func (m *Manager) CloseAll() error {
	var errs []error
	for _, ns := range m.Opened() {
		if err := m.Close(ns); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ns, err))
		}
	}
	return errors.Join(errs...)
}

// Specs returns the configured worlds in config order.
func (m *Manager) Specs() []WorldSpec {
	return append([]WorldSpec(nil), m.cfg.Worlds...)
}
