package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/company"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "engine.sqlite")
	ctx := context.Background()

	s, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.CreateProject(ctx, "P1", 42, "a crm for ferret breeders", "running"); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := s.SetProjectStatus(ctx, "P1", "paused"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	recs := []commlog.Record{
		{Seq: 0, From: "system", To: "#internal", Kind: commlog.KindSystem,
			Text: "Project P1 registered", SimHours: 0, TSMillis: 1000, ThreadID: "t0", Hash: "h0"},
		{Seq: 1, From: "CEO-001", To: "#internal", Kind: commlog.KindDecision,
			Text: "Owner idea accepted", SimHours: 0, TSMillis: 1000, ThreadID: "t1", Hash: "h1"},
		{Seq: 2, From: "UX-001", To: "#internal", Kind: commlog.KindThought,
			Text: "Taking the interviews", SimHours: 1, TSMillis: 2000, ThreadID: "t2", Hash: "h2"},
	}
	for _, r := range recs {
		if err := s.WriteRecord("P1", r); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	if err := s.WriteTick(company.TickLogEntry{
		ProjectID: "P1", Tick: 1, SimHours: 2, Phase: 0, Records: 3, Completions: 1, Digest: "dg",
	}); err != nil {
		t.Fatalf("write tick: %v", err)
	}
	s.RecordSnapshot(filepath.Join(dir, "P1-2.snap"), snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, ProjectID: "P1", Tick: 1, SimHours: 2},
		Phase:  0,
		Agents: make([]snapshot.AgentV1, 25),
		Log:    make([]snapshot.RecordV1, 3),
	})

	// Reads go against the same handle while the writer queue is live.
	page, err := s.PageRecords(ctx, "P1", 1, 10)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	// The queue is async; paging may race the indexer, so only shape-check.
	for _, r := range page {
		if r.Seq < 1 {
			t.Fatalf("page ignored the offset: %+v", r)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Everything enqueued before Close must be committed.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var status string
	if err := db.QueryRow(`SELECT status FROM projects WHERE project_id='P1'`).Scan(&status); err != nil {
		t.Fatalf("project row: %v", err)
	}
	if status != "paused" {
		t.Fatalf("status = %q, want paused", status)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM records WHERE project_id='P1'`).Scan(&n); err != nil {
		t.Fatalf("count records: %v", err)
	}
	if n != 3 {
		t.Fatalf("records = %d, want 3", n)
	}

	var digest string
	var simHours int64
	if err := db.QueryRow(`SELECT digest, sim_hours FROM ticks WHERE project_id='P1' AND tick=1`).
		Scan(&digest, &simHours); err != nil {
		t.Fatalf("tick row: %v", err)
	}
	if digest != "dg" || simHours != 2 {
		t.Fatalf("tick row = %s/%d, want dg/2", digest, simHours)
	}

	var agents, taskCount int
	if err := db.QueryRow(`SELECT agents, tasks FROM snapshots WHERE project_id='P1' AND tick=1`).
		Scan(&agents, &taskCount); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if agents != 25 || taskCount != 0 {
		t.Fatalf("snapshot row = %d agents %d tasks, want 25/0", agents, taskCount)
	}
}

func TestPageRecordsAfterDrain(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "engine.sqlite")
	ctx := context.Background()

	s, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := s.WriteRecord("P1", commlog.Record{Seq: uint64(i), Kind: commlog.KindChat,
			Text: "line", ThreadID: "t", Hash: "h"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	page, err := s2.PageRecords(ctx, "P1", 4, 3)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 3 || page[0].Seq != 4 || page[2].Seq != 6 {
		t.Fatalf("page = %+v, want seqs 4..6", page)
	}

	ref, ok, err := s2.LatestSnapshot(ctx, "P1")
	if err != nil || ok {
		t.Fatalf("latest snapshot = %+v ok=%v err=%v, want none", ref, ok, err)
	}
}

func TestLatestSnapshotPicksNewestTick(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLite(filepath.Join(dir, "engine.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, tick := range []uint64{3, 9, 6} {
		s.RecordSnapshot("p", snapshot.SnapshotV1{
			Header: snapshot.Header{Version: 1, ProjectID: "P1", Tick: tick, SimHours: int64(tick)},
		})
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := OpenSQLite(filepath.Join(dir, "engine.sqlite"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	ref, ok, err := s2.LatestSnapshot(context.Background(), "P1")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if ref.Tick != 9 {
		t.Fatalf("latest tick = %d, want 9", ref.Tick)
	}
}
