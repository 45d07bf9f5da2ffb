// Command verify audits a project's communication log offline. It recomputes
// the hash chain from genesis over the snapshot, over the JSONL record logs,
// or both, and confirms the snapshot is a prefix of the log stream. A project
// restored from an older snapshot forks its log stream; verification reports
// the fork point as a sequence mismatch.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		project  = flag.String("project", "", "project id (required unless -snapshot is set)")
		snapPath = flag.String("snapshot", "", "path to snap-*.zst (optional; defaults to the project's latest)")
		logsDir  = flag.String("logs", "", "records log dir (optional; defaults to <data>/logs/<project>)")
	)
	flag.Parse()

	if strings.TrimSpace(*project) == "" && strings.TrimSpace(*snapPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -project or -snapshot")
		os.Exit(2)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = latestSnapshot(filepath.Join(*dataDir, "snapshots", *project))
	}

	var snapRecords []commlog.Record
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d project=%s tick=%d sim_hours=%d agents=%d tasks=%d records=%d\n",
			snap.Header.Version, snap.Header.ProjectID, snap.Header.Tick, snap.Header.SimHours,
			len(snap.Agents), len(snap.Backlog), len(snap.Log))

		snapRecords = make([]commlog.Record, 0, len(snap.Log))
		for _, r := range snap.Log {
			snapRecords = append(snapRecords, commlog.Record{
				Seq:      r.Seq,
				From:     r.From,
				To:       r.To,
				Kind:     commlog.Kind(r.Kind),
				Text:     r.Text,
				SimHours: r.SimHours,
				TSMillis: r.TSMillis,
				ThreadID: r.ThreadID,
				Hash:     r.Hash,
			})
		}
		if err := commlog.VerifyRecords(snapRecords); err != nil {
			fmt.Fprintln(os.Stderr, "snapshot chain:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot chain ok: records=%d head=%s\n", len(snapRecords), shortHash(tail(snapRecords)))
	}

	dir := strings.TrimSpace(*logsDir)
	if dir == "" && strings.TrimSpace(*project) != "" {
		dir = filepath.Join(*dataDir, "logs", *project)
	}
	if dir == "" {
		if snapshotToLoad == "" {
			fmt.Fprintln(os.Stderr, "nothing to verify")
			os.Exit(2)
		}
		return
	}

	files, err := listRecordFiles(dir)
	if err != nil || len(files) == 0 {
		if snapshotToLoad == "" {
			fmt.Fprintln(os.Stderr, "no record logs found in", dir)
			os.Exit(1)
		}
		// Snapshot-only verification already passed.
		return
	}

	logRecords := make([]commlog.Record, 0, 4096)
	for _, path := range files {
		if err := readRecordFile(path, &logRecords); err != nil {
			fmt.Fprintln(os.Stderr, "read log:", err)
			os.Exit(1)
		}
	}
	if err := commlog.VerifyRecords(logRecords); err != nil {
		fmt.Fprintln(os.Stderr, "log chain:", err)
		os.Exit(1)
	}
	fmt.Printf("log chain ok: records=%d files=%d head=%s\n", len(logRecords), len(files), shortHash(tail(logRecords)))

	if len(snapRecords) > 0 {
		if len(logRecords) < len(snapRecords) {
			fmt.Fprintf(os.Stderr, "log stream shorter than snapshot: %d < %d\n", len(logRecords), len(snapRecords))
			os.Exit(1)
		}
		last := snapRecords[len(snapRecords)-1]
		if got := logRecords[len(snapRecords)-1]; got.Hash != last.Hash {
			fmt.Fprintf(os.Stderr, "snapshot is not a prefix of the log stream: seq %d hash mismatch\n", last.Seq)
			os.Exit(1)
		}
		fmt.Printf("snapshot is a prefix of the log stream (seq %d)\n", last.Seq)
	}
}

func tail(recs []commlog.Record) string {
	if len(recs) == 0 {
		return commlog.GenesisHash
	}
	return recs[len(recs)-1].Hash
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func listRecordFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "records-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func readRecordFile(path string, into *[]commlog.Record) error {
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
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var r commlog.Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		*into = append(*into, r)
	}
	return sc.Err()
}

func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "snap-") || !strings.HasSuffix(name, ".zst") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimPrefix(name, "snap-"), ".zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick >= bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
