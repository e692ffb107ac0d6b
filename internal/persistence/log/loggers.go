package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"railnet.ai/internal/sim/rail/reconcile"
	"railnet.ai/internal/sim/rail/topology"
	"railnet.ai/internal/timeutil"
)

// JSONLZstdWriter appends one JSON document per line to hourly
// zstd-compressed files named <prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	clock   timeutil.Clock

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		clock:   timeutil.RealClock{},
	}
}

// WithClock swaps the clock used to pick the hourly file.
func (w *JSONLZstdWriter) WithClock(c timeutil.Clock) *JSONLZstdWriter {
	w.clock = c
	return w
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.clock.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadJSONL decodes every line of a file written by JSONLZstdWriter into fn.
// A file may hold several concatenated zstd frames after reopening.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// EventLogger records reconciliation outcomes for one namespace.
type EventLogger struct {
	w      *JSONLZstdWriter
	ns     string
	logger *stdlog.Logger
}

type EventRecord struct {
	Namespace string `json:"ns"`
	reconcile.Event
}

func NewEventLogger(dir, ns string, logger *stdlog.Logger) *EventLogger {
	if logger == nil {
		logger = stdlog.New(io.Discard, "", 0)
	}
	return &EventLogger{w: NewJSONLZstdWriter(filepath.Join(dir, ns, "events"), "reconcile"), ns: ns, logger: logger}
}

// Record implements reconcile.Sink. Write failures are logged, never returned
// to the queue.
func (l *EventLogger) Record(ev reconcile.Event) {
	if err := l.w.Write(EventRecord{Namespace: l.ns, Event: ev}); err != nil {
		l.logger.Printf("event log %s: %v", l.ns, err)
	}
}

func (l *EventLogger) Close() error { return l.w.Close() }

// DecisionLogger records every terrain-adjusted cell decision.
type DecisionLogger struct {
	w  *JSONLZstdWriter
	ns string
}

type DecisionRecord struct {
	Namespace string          `json:"ns"`
	Coord     string          `json:"coord"`
	Base      string          `json:"base"`
	Kind      string          `json:"kind"`
	Height    int             `json:"height"`
	Reason    topology.Reason `json:"reason,omitempty"`
	Average   int             `json:"avg"`
	Variation int             `json:"variation"`
}

func NewDecisionLogger(dir, ns string) *DecisionLogger {
	return &DecisionLogger{w: NewJSONLZstdWriter(filepath.Join(dir, ns, "decisions"), "decisions"), ns: ns}
}

func (l *DecisionLogger) WriteDecision(d topology.Decision) error {
	rec := DecisionRecord{
		Namespace: l.ns,
		Coord:     d.Coord.String(),
		Base:      d.Base.Kind.String(),
		Kind:      d.Cell.Kind.String(),
		Height:    d.Cell.Height,
		Reason:    d.Reason,
	}
	if d.Profile != nil {
		rec.Average = d.Profile.Average
		rec.Variation = d.Profile.Variation()
	}
	return l.w.Write(rec)
}

func (l *DecisionLogger) Close() error { return l.w.Close() }
