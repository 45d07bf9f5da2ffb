// Package store keeps the queryable SQLite index over everything the engine
// persists: project lifecycle, communication records, tick digests, and the
// snapshot catalog. Hot-path writes go through an async batching queue so a
// slow disk never stalls a simulation loop; project lifecycle rows and reads
// are synchronous.
package store

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

	_ "modernc.org/sqlite"

	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/company"
	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

type SQLiteStore struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqRecord reqKind = iota + 1
	reqTick
	reqSnapshot
)

type req struct {
	kind reqKind

	projectID string
	record    commlog.Record
	tick      company.TickLogEntry
	snapshot  SnapshotRef
}

// ProjectRow is the lifecycle row of one project.
type ProjectRow struct {
	ID        string `json:"id"`
	Seed      int64  `json:"seed"`
	SeedIdea  string `json:"seed_idea"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SnapshotRef points at one snapshot file plus the headline numbers an
// operator wants before deciding to restore it.
type SnapshotRef struct {
	ProjectID string `json:"project_id"`
	Tick      uint64 `json:"tick"`
	SimHours  int64  `json:"sim_hours"`
	Phase     int    `json:"phase"`
	Path      string `json:"path"`
	Agents    int    `json:"agents"`
	Tasks     int    `json:"tasks"`
	Records   int    `json:"records"`
}

func OpenSQLite(path string) (*SQLiteStore, error) {
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
	// One conn for the writer's transaction, one for synchronous reads and
	// lifecycle rows; WAL lets them coexist.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db: db,
		// Sized for bursts: a phase transition can drop dozens of records
		// per project in one tick across many projects.
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
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS projects (
			project_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			seed_idea TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			project_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			text TEXT NOT NULL,
			sim_hours INTEGER NOT NULL,
			ts_millis INTEGER NOT NULL,
			thread_id TEXT NOT NULL,
			hash TEXT NOT NULL,
			PRIMARY KEY (project_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_thread ON records(project_id, thread_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind ON records(project_id, kind, seq);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			project_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			sim_hours INTEGER NOT NULL,
			phase INTEGER NOT NULL,
			records INTEGER NOT NULL,
			completions INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (project_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			project_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			sim_hours INTEGER NOT NULL,
			phase INTEGER NOT NULL,
			path TEXT NOT NULL,
			agents INTEGER NOT NULL,
			tasks INTEGER NOT NULL,
			records INTEGER NOT NULL,
			PRIMARY KEY (project_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_hours ON snapshots(project_id, sim_hours);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the write queue, commits, and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteRecord enqueues one communication record. Drops under backpressure;
// the JSONL logs remain the source of truth.
func (s *SQLiteStore) WriteRecord(projectID string, rec commlog.Record) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqRecord, projectID: projectID, record: rec}:
	default:
	}
	return nil
}

// WriteTick enqueues one tick digest row.
func (s *SQLiteStore) WriteTick(entry company.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
	}
	return nil
}

// RecordSnapshot indexes a snapshot file that has already been written.
func (s *SQLiteStore) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	ref := SnapshotRef{
		ProjectID: snap.Header.ProjectID,
		Tick:      snap.Header.Tick,
		SimHours:  snap.Header.SimHours,
		Phase:     snap.Phase,
		Path:      path,
		Agents:    len(snap.Agents),
		Tasks:     len(snap.Backlog),
		Records:   len(snap.Log),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: ref}:
	default:
	}
}

// CreateProject inserts the lifecycle row synchronously. The manager decides
// duplicates before calling; a re-create of a known id refreshes it.
func (s *SQLiteStore) CreateProject(ctx context.Context, id string, seed int64, seedIdea, status string) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects(project_id,seed,seed_idea,status,created_at,updated_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(project_id) DO UPDATE SET seed=excluded.seed,
			seed_idea=excluded.seed_idea, status=excluded.status, updated_at=excluded.updated_at`,
		id, seed, seedIdea, status, now, now)
	return err
}

// SetProjectStatus updates the lifecycle row synchronously.
func (s *SQLiteStore) SetProjectStatus(ctx context.Context, id, status string) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status=?, updated_at=? WHERE project_id=?`, status, now, id)
	return err
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]ProjectRow, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, seed, seed_idea, status, created_at, updated_at
		 FROM projects ORDER BY project_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectRow
	for rows.Next() {
		var p ProjectRow
		if err := rows.Scan(&p.ID, &p.Seed, &p.SeedIdea, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PageRecords returns up to limit records for a project starting at seq
// offset, in chain order.
func (s *SQLiteStore) PageRecords(ctx context.Context, projectID string, offset, limit int) ([]commlog.Record, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, from_id, to_id, kind, text, sim_hours, ts_millis, thread_id, hash
		 FROM records WHERE project_id=? AND seq>=? ORDER BY seq LIMIT ?`,
		projectID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commlog.Record
	for rows.Next() {
		var r commlog.Record
		var kind string
		if err := rows.Scan(&r.Seq, &r.From, &r.To, &kind, &r.Text, &r.SimHours, &r.TSMillis, &r.ThreadID, &r.Hash); err != nil {
			return nil, err
		}
		r.Kind = commlog.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest snapshot ref for a project, if any.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, projectID string) (SnapshotRef, bool, error) {
	var ref SnapshotRef
	if s == nil {
		return ref, false, nil
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id, tick, sim_hours, phase, path, agents, tasks, records
		 FROM snapshots WHERE project_id=? ORDER BY tick DESC LIMIT 1`, projectID).
		Scan(&ref.ProjectID, &ref.Tick, &ref.SimHours, &ref.Phase, &ref.Path,
			&ref.Agents, &ref.Tasks, &ref.Records)
	if err == sql.ErrNoRows {
		return ref, false, nil
	}
	if err != nil {
		return ref, false, err
	}
	return ref, true, nil
}

// UpsertConfigMeta stores the loaded config files and applied tuning with
// their digests, so an operator can tell exactly what a deployment ran.
func (s *SQLiteStore) UpsertConfigMeta(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("roster", filepath.Join(configDir, "roster.json"))
		read("task_templates", filepath.Join(configDir, "task_templates.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var entries []kv
	if b := raw["roster"]; len(b) > 0 {
		entries = append(entries, kv{name: "roster", digest: cats.Roster.Digest, json: b})
	}
	if b := raw["task_templates"]; len(b) > 0 {
		entries = append(entries, kv{name: "task_templates", digest: cats.Templates.Digest, json: b})
	}
	{
		// Store the values we actually apply, not the file on disk.
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		entries = append(entries, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if e.name == "" || e.digest == "" || len(e.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(e.name, e.digest, string(e.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) loop() {
	ctx := context.Background()

	insertRecord, _ := s.db.Prepare(`INSERT OR REPLACE INTO records(project_id,seq,from_id,to_id,kind,text,sim_hours,ts_millis,thread_id,hash) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(project_id,tick,sim_hours,phase,records,completions,digest,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(project_id,tick,sim_hours,phase,path,agents,tasks,records) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertRecord != nil {
			_ = insertRecord.Close()
		}
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
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
		case reqRecord:
			rec := r.record
			if insertRecord != nil {
				if _, err := tx.Stmt(insertRecord).Exec(
					r.projectID,
					int64(rec.Seq),
					rec.From,
					rec.To,
					string(rec.Kind),
					rec.Text,
					rec.SimHours,
					rec.TSMillis,
					rec.ThreadID,
					rec.Hash,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqTick:
			e := r.tick
			b, _ := json.Marshal(e)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					e.ProjectID,
					int64(e.Tick),
					e.SimHours,
					e.Phase,
					e.Records,
					e.Completions,
					e.Digest,
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			ref := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					ref.ProjectID,
					int64(ref.Tick),
					ref.SimHours,
					ref.Phase,
					ref.Path,
					ref.Agents,
					ref.Tasks,
					ref.Records,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
		// Idle queue: commit now so reads see fresh rows and the batch
		// transaction never outlives the burst that opened it.
		if len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}
