package commlog

import "fmt"

// Chain is an append-only, hash-chained communication log. Records are never
// mutated or removed once appended. Chain is not goroutine-safe; the owning
// simulation loop serializes access.
type Chain struct {
	records []Record
}

func NewChain() *Chain {
	return &Chain{}
}

// FromRecords rebuilds a chain from persisted records and verifies it.
// The chain is returned even when verification fails so a quarantined project
// can still be inspected read-only.
func FromRecords(records []Record) (*Chain, error) {
	c := &Chain{records: append([]Record(nil), records...)}
	return c, c.Verify()
}

// Append assigns the next sequence number, hashes the record against the
// chain head, appends it, and returns the completed record.
func (c *Chain) Append(r Record) Record {
	r.Seq = uint64(len(c.records))
	prev := GenesisHash
	if n := len(c.records); n > 0 {
		prev = c.records[n-1].Hash
	}
	r.Hash = HashRecord(prev, r)
	c.records = append(c.records, r)
	return r
}

func (c *Chain) Len() int { return len(c.records) }

// Head returns the hash the next record will be chained to.
func (c *Chain) Head() string {
	if n := len(c.records); n > 0 {
		return c.records[n-1].Hash
	}
	return GenesisHash
}

// Page returns a copy of up to limit records starting at offset.
func (c *Chain) Page(offset, limit int) []Record {
	if offset < 0 || offset >= len(c.records) || limit <= 0 {
		return nil
	}
	end := offset + limit
	if end > len(c.records) {
		end = len(c.records)
	}
	out := make([]Record, end-offset)
	copy(out, c.records[offset:end])
	return out
}

// Records returns a copy of the whole log (snapshot export).
func (c *Chain) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Verify recomputes the chain from genesis and reports the first break.
func (c *Chain) Verify() error {
	return VerifyRecords(c.records)
}

// VerifyRecords recomputes hashes over records as a chain anchored at
// GenesisHash. Any altered payload byte or broken link yields an error.
func VerifyRecords(records []Record) error {
	prev := GenesisHash
	for i, r := range records {
		if r.Seq != uint64(i) {
			return fmt.Errorf("record %d: sequence mismatch (have %d)", i, r.Seq)
		}
		if want := HashRecord(prev, r); r.Hash != want {
			return fmt.Errorf("record %d: hash mismatch", i)
		}
		prev = r.Hash
	}
	return nil
}
