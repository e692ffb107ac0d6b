package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/rail/topology"
	"railnet.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of generation runs: one row per
// decided cell and one per reconciliation outcome. Writes are queued and
// applied by a single goroutine; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDecision atomic.Uint64
	dropOutcome  atomic.Uint64
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropDecisionTotal uint64 `json:"drop_decision_total"`
	DropOutcomeTotal  uint64 `json:"drop_outcome_total"`
}

type reqKind int

const (
	reqDecision reqKind = iota + 1
	reqOutcome
)

type req struct {
	kind  reqKind
	run   string
	ns    string
	dec   topology.Decision
	event reconcile.Event
}

type OutcomeRow struct {
	RunID     string
	Namespace string
	Seq       int
	ID        string
	Outcome   reconcile.Outcome
	FromX     int
	FromZ     int
	ToX       int
	ToZ       int
	Delta     int
	Err       string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			ns TEXT NOT NULL,
			seed INTEGER NOT NULL,
			tuning_digest TEXT NOT NULL,
			tuning_json TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			run_id TEXT NOT NULL,
			ns TEXT NOT NULL,
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			base TEXT NOT NULL,
			kind TEXT NOT NULL,
			height INTEGER NOT NULL,
			reason TEXT,
			avg_height INTEGER,
			variation INTEGER,
			PRIMARY KEY (run_id, ns, x, z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_kind ON decisions(run_id, kind);`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ns TEXT NOT NULL,
			pair_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			from_x INTEGER NOT NULL,
			from_z INTEGER NOT NULL,
			to_x INTEGER NOT NULL,
			to_z INTEGER NOT NULL,
			delta INTEGER NOT NULL,
			age_ms INTEGER NOT NULL,
			err TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_pair ON outcomes(pair_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// BeginRun registers a generation run and returns its id. The tuning stored
// is the one actually applied.
func (s *SQLiteIndex) BeginRun(ns string, seed int64, tune tuning.Tuning) (string, error) {
	b, err := json.Marshal(tune)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	id := uuid.NewString()
	_, err = s.db.ExecContext(context.Background(),
		`INSERT INTO runs(run_id,ns,seed,tuning_digest,tuning_json,started_at) VALUES(?,?,?,?,?,?)`,
		id, ns, seed, hex.EncodeToString(sum[:]), string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteIndex) RecordDecision(runID, ns string, d topology.Decision) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqDecision, run: runID, ns: ns, dec: d}:
	default:
		s.dropDecision.Add(1)
	}
}

func (s *SQLiteIndex) RecordOutcome(runID, ns string, ev reconcile.Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqOutcome, run: runID, ns: ns, event: ev}:
	default:
		s.dropOutcome.Add(1)
	}
}

// Sink binds the index to one run and namespace as a reconcile.Sink.
func (s *SQLiteIndex) Sink(runID, ns string) reconcile.Sink {
	return outcomeSink{s: s, run: runID, ns: ns}
}

type outcomeSink struct {
	s   *SQLiteIndex
	run string
	ns  string
}

func (o outcomeSink) Record(ev reconcile.Event) { o.s.RecordOutcome(o.run, o.ns, ev) }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropDecisionTotal: s.dropDecision.Load(),
		DropOutcomeTotal:  s.dropOutcome.Load(),
	}
}

// Outcomes lists a run's outcomes in the order they were recorded.
func (s *SQLiteIndex) Outcomes(ctx context.Context, runID string) ([]OutcomeRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id,ns,seq,pair_id,outcome,from_x,from_z,to_x,to_z,delta,COALESCE(err,'') FROM outcomes WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OutcomeRow
	for rows.Next() {
		var r OutcomeRow
		if err := rows.Scan(&r.RunID, &r.Namespace, &r.Seq, &r.ID, &r.Outcome, &r.FromX, &r.FromZ, &r.ToX, &r.ToZ, &r.Delta, &r.Err); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists run ids oldest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// KindCounts tallies a run's decisions by final kind.
func (s *SQLiteIndex) KindCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM decisions WHERE run_id=? GROUP BY kind`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertDecision, _ := s.db.Prepare(`INSERT OR REPLACE INTO decisions(run_id,ns,x,z,base,kind,height,reason,avg_height,variation) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertOutcome, _ := s.db.Prepare(`INSERT OR REPLACE INTO outcomes(run_id,seq,ns,pair_id,outcome,from_x,from_z,to_x,to_z,delta,age_ms,err,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertDecision != nil {
			_ = insertDecision.Close()
		}
		if insertOutcome != nil {
			_ = insertOutcome.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		seq = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqDecision:
			d := r.dec
			var avg, variation sql.NullInt64
			if d.Profile != nil {
				avg = sql.NullInt64{Int64: int64(d.Profile.Average), Valid: true}
				variation = sql.NullInt64{Int64: int64(d.Profile.Variation()), Valid: true}
			}
			if insertDecision != nil {
				if _, err := tx.Stmt(insertDecision).Exec(
					r.run, r.ns,
					d.Coord.X, d.Coord.Z,
					d.Base.Kind.String(),
					d.Cell.Kind.String(),
					d.Cell.Height,
					string(d.Reason),
					avg, variation,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqOutcome:
			ev := r.event
			n := seq[r.run]
			seq[r.run] = n + 1
			raw, _ := json.Marshal(ev)
			delta := ev.ToHeight - ev.FromHeight
			if delta < 0 {
				delta = -delta
			}
			if insertOutcome != nil {
				if _, err := tx.Stmt(insertOutcome).Exec(
					r.run, n, r.ns, ev.ID, string(ev.Outcome),
					ev.From.X, ev.From.Z, ev.To.X, ev.To.Z,
					delta, ev.AgeMs, ev.Err, string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
