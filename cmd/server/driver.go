package main

import (
	"context"
	"log"
	"time"

	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/timeutil"
)

// spiral lists the cells within radius r of the origin ring by ring, nearest
// first, so a growing load front always borders cells that are already ready.
func spiral(r int) []model.Coord {
	out := []model.Coord{{}}
	for ring := 1; ring <= r; ring++ {
		for x := -ring; x <= ring; x++ {
			out = append(out, model.Coord{X: x, Z: -ring})
		}
		for z := -ring + 1; z <= ring; z++ {
			out = append(out, model.Coord{X: ring, Z: z})
		}
		for x := ring - 1; x >= -ring; x-- {
			out = append(out, model.Coord{X: x, Z: ring})
		}
		for z := ring - 1; z > -ring; z-- {
			out = append(out, model.Coord{X: -ring, Z: z})
		}
	}
	return out
}

// driver plays the host: it loads cells into every open world, preloading a
// core before the ready flush, then growing the loaded area a few cells per
// tick while draining each reconciliation queue.
type driver struct {
	mgr     *multiworld.Manager
	clock   timeutil.Clock
	logger  *log.Logger
	order   []model.Coord
	preload int
	perTick int

	next map[string]int
}

func newDriver(mgr *multiworld.Manager, clock timeutil.Clock, logger *log.Logger, radius, preloadRadius, perTick int) *driver {
	if preloadRadius > radius {
		preloadRadius = radius
	}
	return &driver{
		mgr:     mgr,
		clock:   clock,
		logger:  logger,
		order:   spiral(radius),
		preload: len(spiral(preloadRadius)),
		perTick: perTick,
		next:    map[string]int{},
	}
}

// Start opens ns, materializes its preload core and flushes the backlog.
func (d *driver) Start(ns string) error {
	rt, err := d.mgr.Get(ns)
	if err != nil {
		return err
	}
	d.load(ns, rt, d.preload)
	flushed := rt.Ready()
	st := rt.Queue.Stats()
	d.logger.Printf("world %s ready: cells=%d track_cells=%d flushed=%d pending=%d", ns, d.next[ns], st.TrackCells, flushed, st.Pending)
	return nil
}

func (d *driver) load(ns string, rt *multiworld.Runtime, n int) int {
	i := d.next[ns]
	end := min(i+n, len(d.order))
	for ; i < end; i++ {
		rt.Materialize(d.order[i])
	}
	loaded := end - d.next[ns]
	d.next[ns] = end
	return loaded
}

// Step is one host tick across every open world.
func (d *driver) Step() {
	for _, ns := range d.mgr.Opened() {
		rt, err := d.mgr.Get(ns)
		if err != nil {
			continue
		}
		if d.perTick > 0 {
			d.load(ns, rt, d.perTick)
		}
		rt.Tick()
	}
}

// Done reports whether ns has loaded its whole radius.
func (d *driver) Done(ns string) bool {
	return d.next[ns] >= len(d.order)
}

func (d *driver) Run(ctx context.Context, interval time.Duration) error {
	ticker := d.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			d.Step()
		}
	}
}
