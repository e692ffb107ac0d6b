package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"railnet.ai/internal/persistence/indexdb"
	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/tuning"
	"railnet.ai/internal/timeutil"
	"railnet.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "server seed; each world derives its own from it")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to railnet.yaml (default: <configs>/railnet.yaml)")
		worldsPath = flag.String("worlds", "", "path to worlds.yaml (default: <configs>/worlds.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		openList   = flag.String("open", "", "comma-separated worlds to open at startup (default: all)")

		tickMS  = flag.Int("tick_ms", envInt("RAILNET_TICK_MS", 50), "host tick interval in milliseconds")
		radius  = flag.Int("radius", 24, "cells to load around the origin, in rings")
		preload = flag.Int("preload", 6, "rings loaded before the ready flush")
		perTick = flag.Int("load_per_tick", 4, "cells loaded per world per tick after startup")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "railnet.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	wp := strings.TrimSpace(*worldsPath)
	if wp == "" {
		wp = filepath.Join(*configDir, "worlds.yaml")
	}
	if _, err := os.Stat(wp); err != nil {
		logger.Printf("worlds config not found (%s); using defaults", wp)
		wp = ""
	}
	wcfg, err := multiworld.Load(wp)
	if err != nil {
		logger.Fatalf("load worlds config: %v", err)
	}

	clock := timeutil.RealClock{}
	att := newAttacher(*dataDir, *disableDB, tune, logger)
	mgr, err := multiworld.NewManager(wcfg, multiworld.Options{
		Seed:   *seed,
		Tuning: tune,
		Clock:  clock,
		Logger: logger,
		Attach: att.Attach,
	})
	if err != nil {
		logger.Fatalf("multiworld: %v", err)
	}
	defer func() {
		if err := mgr.CloseAll(); err != nil {
			logger.Printf("close worlds: %v", err)
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	drv := newDriver(mgr, clock, logger, *radius, *preload, *perTick)
	for _, ns := range startupWorlds(*openList, mgr.IDs()) {
		if err := drv.Start(ns); err != nil {
			logger.Fatalf("start world %s: %v", ns, err)
		}
	}
	go func() {
		if err := drv.Run(ctx, time.Duration(*tickMS)*time.Millisecond); err != nil && err != context.Canceled {
			logger.Printf("driver stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, worldStats(mgr), att.IndexStats())
	})

	enableAdminHTTP := envBool("RAILNET_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("RAILNET_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Seed   int64                    `json:"seed"`
				Worlds map[string]worldState    `json:"worlds"`
				Index  map[string]indexdb.Stats `json:"index"`
			}{
				Seed:   *seed,
				Worlds: worldStats(mgr),
				Index:  att.IndexStats(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/flush", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ns := strings.TrimSpace(r.URL.Query().Get("world"))
			if ns == "" {
				ns = mgr.DefaultID()
			}
			rt, err := mgr.Get(ns)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			n := rt.Ready()
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "world": ns, "attempted": n, "pending": rt.Queue.Pending()})
		})

		obsSrv := observer.NewServer(mgr, clock, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (RAILNET_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (RAILNET_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// startupWorlds is the -open list filtered to configured ids, or every id.
func startupWorlds(list string, ids []string) []string {
	if strings.TrimSpace(list) == "" {
		return ids
	}
	known := map[string]bool{}
	for _, id := range ids {
		known[id] = true
	}
	var out []string
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

type worldState struct {
	Seed        int64           `json:"seed"`
	CachedCells int             `json:"cached_cells"`
	Profiles    int             `json:"profiles"`
	Chunks      int             `json:"chunks"`
	Reconcile   reconcile.Stats `json:"reconcile"`
}

func worldStats(mgr *multiworld.Manager) map[string]worldState {
	out := map[string]worldState{}
	for _, ns := range mgr.Opened() {
		rt, err := mgr.Get(ns)
		if err != nil {
			continue
		}
		out[ns] = worldState{
			Seed:        rt.Seed,
			CachedCells: rt.Gen.Len(),
			Profiles:    rt.Heights.Len(),
			Chunks:      len(rt.Store.LoadedChunkKeys()),
			Reconcile:   rt.Queue.Stats(),
		}
	}
	return out
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(rw io.Writer, worlds map[string]worldState, index map[string]indexdb.Stats) {
	ids := make([]string, 0, len(worlds))
	for id := range worlds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(rw, "# HELP railnet_cells_cached Cached topology decisions.\n")
	fmt.Fprintf(rw, "# TYPE railnet_cells_cached gauge\n")
	for _, id := range ids {
		fmt.Fprintf(rw, "railnet_cells_cached{world=%q} %d\n", id, worlds[id].CachedCells)
	}

	fmt.Fprintf(rw, "# HELP railnet_chunks_loaded Loaded host chunks.\n")
	fmt.Fprintf(rw, "# TYPE railnet_chunks_loaded gauge\n")
	for _, id := range ids {
		fmt.Fprintf(rw, "railnet_chunks_loaded{world=%q} %d\n", id, worlds[id].Chunks)
	}

	fmt.Fprintf(rw, "# HELP railnet_reconcile_pending Boundary mismatches waiting for a connection attempt.\n")
	fmt.Fprintf(rw, "# TYPE railnet_reconcile_pending gauge\n")
	for _, id := range ids {
		fmt.Fprintf(rw, "railnet_reconcile_pending{world=%q} %d\n", id, worlds[id].Reconcile.Pending)
	}

	fmt.Fprintf(rw, "# HELP railnet_reconcile_total Reconciliation results since the world opened.\n")
	fmt.Fprintf(rw, "# TYPE railnet_reconcile_total counter\n")
	for _, id := range ids {
		s := worlds[id].Reconcile
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "added", s.Added)
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "connected", s.Connected)
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "rejected", s.Rejected)
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "failed", s.Failed)
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "skipped", s.Skipped)
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "expired", s.Expired)
		fmt.Fprintf(rw, "railnet_reconcile_total{world=%q,result=%q} %d\n", id, "requeued", s.Requeued)
	}

	if len(index) == 0 {
		return
	}
	nss := make([]string, 0, len(index))
	for ns := range index {
		nss = append(nss, ns)
	}
	sort.Strings(nss)
	fmt.Fprintf(rw, "# HELP railnet_index_queue_depth Index writer backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE railnet_index_queue_depth gauge\n")
	for _, ns := range nss {
		fmt.Fprintf(rw, "railnet_index_queue_depth{world=%q} %d\n", ns, index[ns].QueueDepth)
	}
	fmt.Fprintf(rw, "# HELP railnet_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE railnet_index_dropped_total counter\n")
	for _, ns := range nss {
		fmt.Fprintf(rw, "railnet_index_dropped_total{world=%q,kind=%q} %d\n", ns, "decision", index[ns].DropDecisionTotal)
		fmt.Fprintf(rw, "railnet_index_dropped_total{world=%q,kind=%q} %d\n", ns, "outcome", index[ns].DropOutcomeTotal)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
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

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
