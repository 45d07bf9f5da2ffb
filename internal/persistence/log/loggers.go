// Package log persists the per-project communication and tick streams as
// hourly-rotated, zstd-compressed JSONL. These files are the durable source
// of truth for audits; the SQLite index is derived and disposable.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/company"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

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
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
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
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ProjectLogs fans the shared record and tick sinks out to one writer pair
// per project under baseDir/<projectID>/. Safe for concurrent use by many
// company loops.
type ProjectLogs struct {
	baseDir string

	mu      sync.Mutex
	records map[string]*JSONLZstdWriter
	ticks   map[string]*JSONLZstdWriter
}

func NewProjectLogs(baseDir string) *ProjectLogs {
	return &ProjectLogs{
		baseDir: baseDir,
		records: map[string]*JSONLZstdWriter{},
		ticks:   map[string]*JSONLZstdWriter{},
	}
}

func (l *ProjectLogs) writerFor(m map[string]*JSONLZstdWriter, projectID, prefix string) *JSONLZstdWriter {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := m[projectID]
	if !ok {
		w = NewJSONLZstdWriter(filepath.Join(l.baseDir, projectID), prefix)
		m[projectID] = w
	}
	return w
}

func (l *ProjectLogs) WriteRecord(projectID string, rec commlog.Record) error {
	return l.writerFor(l.records, projectID, "records").Write(rec)
}

func (l *ProjectLogs) WriteTick(entry company.TickLogEntry) error {
	return l.writerFor(l.ticks, entry.ProjectID, "ticks").Write(entry)
}

// CloseProject flushes and drops the writers of a terminated project.
// Writing for that project again later reopens them.
func (l *ProjectLogs) CloseProject(projectID string) error {
	l.mu.Lock()
	rw := l.records[projectID]
	tw := l.ticks[projectID]
	delete(l.records, projectID)
	delete(l.ticks, projectID)
	l.mu.Unlock()

	var firstErr error
	for _, w := range []*JSONLZstdWriter{rw, tw} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *ProjectLogs) Close() error {
	l.mu.Lock()
	var all []*JSONLZstdWriter
	for _, w := range l.records {
		all = append(all, w)
	}
	for _, w := range l.ticks {
		all = append(all, w)
	}
	l.records = map[string]*JSONLZstdWriter{}
	l.ticks = map[string]*JSONLZstdWriter{}
	l.mu.Unlock()

	var firstErr error
	for _, w := range all {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
