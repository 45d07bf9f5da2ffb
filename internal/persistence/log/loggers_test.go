package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/company"
)

func readJSONLZst(t *testing.T, pattern string, out func([]byte)) {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) != 1 {
		t.Fatalf("glob %s: matches=%v err=%v", pattern, matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		out(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
}

func TestProjectLogsFanOutAndReadBack(t *testing.T) {
	dir := t.TempDir()
	logs := NewProjectLogs(dir)

	recs := []commlog.Record{
		{Seq: 0, From: "system", To: "#internal", Kind: commlog.KindSystem, Text: "registered", Hash: "aa"},
		{Seq: 1, From: "UX-001", To: "#internal", Kind: commlog.KindThought, Text: "taking it", Hash: "bb"},
	}
	for _, r := range recs {
		if err := logs.WriteRecord("P1", r); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	if err := logs.WriteRecord("P2", commlog.Record{Seq: 0, Text: "other project"}); err != nil {
		t.Fatalf("write record: %v", err)
	}
	if err := logs.WriteTick(company.TickLogEntry{ProjectID: "P1", Tick: 1, SimHours: 3, Digest: "dd"}); err != nil {
		t.Fatalf("write tick: %v", err)
	}
	if err := logs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var gotRecs []commlog.Record
	readJSONLZst(t, filepath.Join(dir, "P1", "records-*.jsonl.zst"), func(line []byte) {
		var r commlog.Record
		if err := json.Unmarshal(line, &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		gotRecs = append(gotRecs, r)
	})
	if len(gotRecs) != 2 {
		t.Fatalf("P1 records = %d, want 2", len(gotRecs))
	}
	if gotRecs[1].Text != "taking it" || gotRecs[1].Kind != commlog.KindThought {
		t.Fatalf("record did not round-trip: %+v", gotRecs[1])
	}

	var ticks []company.TickLogEntry
	readJSONLZst(t, filepath.Join(dir, "P1", "ticks-*.jsonl.zst"), func(line []byte) {
		var e company.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		ticks = append(ticks, e)
	})
	if len(ticks) != 1 || ticks[0].SimHours != 3 || ticks[0].Digest != "dd" {
		t.Fatalf("tick entries = %+v", ticks)
	}
}

func TestCloseProjectDropsWriters(t *testing.T) {
	dir := t.TempDir()
	logs := NewProjectLogs(dir)

	if err := logs.WriteRecord("P1", commlog.Record{Text: "before"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := logs.CloseProject("P1"); err != nil {
		t.Fatalf("close project: %v", err)
	}

	// A later write reopens cleanly rather than hitting a closed encoder.
	if err := logs.WriteRecord("P1", commlog.Record{Text: "after"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := logs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	n := 0
	readJSONLZst(t, filepath.Join(dir, "P1", "records-*.jsonl.zst"), func([]byte) { n++ })
	if n != 2 {
		t.Fatalf("records after reopen = %d, want 2", n)
	}
}
