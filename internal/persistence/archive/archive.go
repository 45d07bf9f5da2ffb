package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
)

// Meta describes one archived project: the closing numbers an operator needs
// without decoding the snapshot itself.
type Meta struct {
	ProjectID     string `json:"project_id"`
	EndTick       uint64 `json:"end_tick"`
	SimHours      int64  `json:"sim_hours"`
	DaysElapsed   int64  `json:"days_elapsed"`
	Phase         int    `json:"phase"`
	Seed          int64  `json:"seed"`
	Records       int    `json:"records"`
	RevenueMinor  int64  `json:"revenue_minor"`
	BurnMinor     int64  `json:"burn_minor"`
	ReservesMinor int64  `json:"reserves_minor"`
	Snapshot      string `json:"snapshot"`
	CreatedAt     string `json:"created_at"`
}

// ArchiveTerminated copies a terminated project's closing snapshot into
// `dataDir/archives/<project>/` next to a meta.json of the closed books.
// Snapshots under `snapshots/` rotate with normal retention; the archive copy
// is the one that outlives the project.
func ArchiveTerminated(dataDir, snapshotPath string, snap snapshot.SnapshotV1) (string, error) {
	projectID := snap.Header.ProjectID
	if projectID == "" {
		return "", fmt.Errorf("snapshot missing project id")
	}

	dir := filepath.Join(dataDir, "archives", projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := Meta{
		ProjectID:     projectID,
		EndTick:       snap.Header.Tick,
		SimHours:      snap.SimHours,
		DaysElapsed:   snap.SimHours / 24,
		Phase:         snap.Phase,
		Seed:          snap.Seed,
		Records:       len(snap.Log),
		RevenueMinor:  snap.RevenueMinor,
		BurnMinor:     snap.BurnMinor,
		ReservesMinor: snap.ReservesMinor,
		Snapshot:      filepath.Base(dst),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}

	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
