package company

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// Idle chatter by personality archetype. Lines are fixed so replays of the
// same seed produce identical logs.
var flavorLines = map[string][]string{
	"builder": {
		"Sketching out how I'd wire this up while the queue is empty.",
		"Cleaned up a branch that was bothering me. Ready for the next thing.",
		"Prototyped something small on the side. Might be useful later.",
	},
	"perfectionist": {
		"Went back over yesterday's work. Two nits fixed, zero regressions.",
		"The edge cases in that last change still deserve another look.",
		"Re-read the style guide. We drift more than we think.",
	},
	"guardian": {
		"Ran my checklist again. No surprises, which is how I like it.",
		"Reviewed the access list while things are quiet.",
		"Backups verified. You only notice them when they are missing.",
	},
	"analyst": {
		"The numbers from last week look better than the mood suggests.",
		"Built a quick chart of our throughput. Interesting dip on day three.",
		"Correlation is not causation, but this one is worth watching.",
	},
	"facilitator": {
		"Synced calendars so the next review will not collide with standup.",
		"Checked in with a couple of people. Morale feels steady.",
		"Cleared two blockers that were nobody's job. They are always mine.",
	},
	"advocate": {
		"Re-read the latest user feedback. We should talk about onboarding.",
		"Users notice the small things. So should we.",
		"Drafted a friendlier error message while waiting.",
	},
	"strategist": {
		"Competitors shipped something similar. Ours has a better angle.",
		"Thinking two phases ahead. The gate after next is the hard one.",
		"Wrote down three bets for next quarter. One of them is bold.",
	},
	"skeptic": {
		"That estimate looks optimistic to me, for the record.",
		"I tried to break it. It held. This time.",
		"Someone should play devil's advocate here, so I will.",
	},
}

// roll derives a stateless uniform value in [0,1) from the project seed and
// a salt. Replays of the same seed see the same rolls, and snapshots carry
// no extra generator state.
func roll(seed int64, salt string, hour int64, agentID string) float64 {
	h := sha256.New()
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(seed))
	h.Write(tmp[:])
	h.Write([]byte(salt))
	binary.LittleEndian.PutUint64(tmp[:], uint64(hour))
	h.Write(tmp[:])
	h.Write([]byte(agentID))
	sum := h.Sum(nil)
	return float64(binary.LittleEndian.Uint64(sum[:8])) / math.MaxUint64
}

func pickFlavor(personality string, seed, hour int64, agentID string) string {
	lines := flavorLines[personality]
	if len(lines) == 0 {
		lines = flavorLines["builder"]
	}
	idx := int(roll(seed, "flavor", hour, agentID) * float64(len(lines)))
	if idx >= len(lines) {
		idx = len(lines) - 1
	}
	return lines[idx]
}

func (c *Company) maybeChatter(a *Agent) {
	p := c.tun.Decisions.IdleChatterPerTick
	if p <= 0 {
		return
	}
	if roll(c.cfg.Seed, "chatter", c.simHours, a.ID) >= p {
		return
	}
	line := pickFlavor(a.Role.Personality, c.cfg.Seed, c.simHours, a.ID)
	thread := c.threadID(fmt.Sprintf("chatter/%s/%d", a.ID, c.simHours))
	c.appendRecord(a.ID, commlog.ChannelInternal, commlog.KindChat, line, thread)
}
