package company

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// stateDigest hashes the full simulation state in a fixed order. Two
// companies stepped identically from the same seed produce identical
// digests; replays compare against the tick log.
func (c *Company) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte
	put := func(v int64) {
		binary.LittleEndian.PutUint64(tmp[:], uint64(v))
		h.Write(tmp[:])
	}
	putMap := func(m map[string]int) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			put(int64(m[k]))
		}
	}

	put(int64(c.tickSeq))
	put(c.simHours)
	put(int64(c.phase))
	put(c.phaseStartHours)
	h.Write([]byte{boolByte(c.stalled), boolByte(c.paused), boolByte(c.quarantined)})
	put(c.fin.RevenueMinor)
	put(c.fin.BurnMinor)
	put(c.fin.RevenueTodayMinor)
	put(c.fin.BurnTodayMinor)
	put(int64(c.fin.CashPositiveStreak))
	put(int64(c.satisf))
	put(int64(c.quality))
	putMap(c.completedByTag)

	for _, id := range c.agentOrder {
		a := c.agents[id]
		h.Write([]byte(a.ID))
		put(int64(a.X))
		put(int64(a.Y))
		put(int64(a.TargetX))
		put(int64(a.TargetY))
		put(int64(a.Energy))
		put(int64(a.Morale))
		put(int64(a.Productivity))
		h.Write([]byte(a.Status))
		h.Write([]byte(a.CurrentTask))
		putMap(a.Skills)
	}

	for _, tid := range c.taskOrder {
		t := c.tasks[tid]
		h.Write([]byte(t.ID))
		h.Write([]byte(t.Title))
		h.Write([]byte(t.Tag))
		h.Write([]byte(t.Priority))
		h.Write([]byte(t.Status))
		h.Write([]byte(t.AssigneeID))
		h.Write([]byte(t.ThreadID))
		put(int64(t.EstimatedHours))
		put(t.AccruedMilliHours)
		put(t.WorkedHours)
		put(t.CreatedAtHours)
		put(t.CompletedAtHours)
		put(t.RevenueMinor)
		h.Write([]byte{boolByte(t.Revenue), boolByte(t.Recurring)})
		putMap(t.RequiredSkills)
	}

	// The chain head transitively covers every record.
	h.Write([]byte(c.chain.Head()))
	put(int64(c.chain.Len()))

	return hex.EncodeToString(h.Sum(nil))
}
