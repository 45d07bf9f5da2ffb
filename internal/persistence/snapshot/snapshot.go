package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version   int    `json:"version"`
	ProjectID string `json:"project_id"`
	Tick      uint64 `json:"tick"`
	SimHours  int64  `json:"sim_hours"`
}

// SnapshotV1 is the at-rest form of one project simulation. It carries
// everything needed to rehydrate the runtime: identity and seed, phase and
// metric state, finances, the full agent set, every task ever created, and
// the complete hash-chained communication log.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64  `json:"seed"`
	SeedIdea string `json:"seed_idea"`

	Phase           int    `json:"phase"`
	SimHours        int64  `json:"sim_hours"`
	PhaseStartHours int64  `json:"phase_start_hours"`
	Stalled         bool   `json:"stalled"`
	Paused          bool   `json:"paused"`
	Quarantined     bool   `json:"quarantined,omitempty"`
	QuarantineNote  string `json:"quarantine_note,omitempty"`

	RevenueMinor       int64 `json:"revenue_minor"`
	BurnMinor          int64 `json:"burn_minor"`
	ReservesMinor      int64 `json:"reserves_minor"`
	RevenueTodayMinor  int64 `json:"revenue_today_minor"`
	BurnTodayMinor     int64 `json:"burn_today_minor"`
	CashPositiveStreak int   `json:"cash_positive_streak"`

	Satisfaction int `json:"satisfaction"`
	Quality      int `json:"quality"`

	CompletedByTag map[string]int `json:"completed_by_tag,omitempty"`

	Agents  []AgentV1  `json:"agents"`
	Backlog []TaskV1   `json:"backlog"`
	Log     []RecordV1 `json:"log"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextTask uint64 `json:"next_task"`
}

type AgentV1 struct {
	RoleID        string         `json:"role_id"`
	X             int            `json:"x"`
	Y             int            `json:"y"`
	TargetX       int            `json:"target_x"`
	TargetY       int            `json:"target_y"`
	Energy        int            `json:"energy"`
	Morale        int            `json:"morale"`
	Productivity  int            `json:"productivity"`
	Status        string         `json:"status"`
	CurrentTaskID string         `json:"current_task_id,omitempty"`
	Skills        map[string]int `json:"skills,omitempty"`
}

type TaskV1 struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Tag               string         `json:"tag"`
	Priority          string         `json:"priority"`
	RequiredSkills    map[string]int `json:"required_skills,omitempty"`
	EstimatedHours    int            `json:"estimated_hours"`
	AccruedMilliHours int64          `json:"accrued_milli_hours"`
	WorkedHours       int64          `json:"worked_hours"`
	Status            string         `json:"status"`
	AssigneeID        string         `json:"assignee_id,omitempty"`
	CreatedAtHours    int64          `json:"created_at_hours"`
	CompletedAtHours  int64          `json:"completed_at_hours,omitempty"`
	Revenue           bool           `json:"revenue,omitempty"`
	RevenueMinor      int64          `json:"revenue_minor,omitempty"`
	Recurring         bool           `json:"recurring,omitempty"`
	DependsOn         string         `json:"depends_on,omitempty"`
	ThreadID          string         `json:"thread_id"`
}

// RecordV1 mirrors one communication record field for field. The hash chain
// is recomputed from these values on restore, so every payload field must
// round-trip exactly.
type RecordV1 struct {
	Seq      uint64 `json:"seq"`
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	SimHours int64  `json:"sim_hours"`
	TSMillis int64  `json:"ts_millis"`
	ThreadID string `json:"thread_id"`
	Hash     string `json:"hash"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; gob carries the full struct.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
