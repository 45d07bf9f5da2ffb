package company

import (
	"fmt"
	"strings"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// Verbs that make an owner note actionable. Matching is deliberately crude;
// the CEO errs on the side of raising work.
var workVerbs = []string{
	"build", "add", "fix", "ship", "implement", "create",
	"improve", "make", "launch", "integrate", "support", "need",
}

func asksForWork(text string) bool {
	lower := strings.ToLower(text)
	for _, v := range workVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// handleOwnerRequest routes owner text through the CEO: always a user_input
// record, plus an urgent backlog task when the text asks for work.
func (c *Company) handleOwnerRequest(text string) error {
	if c.quarantined {
		return &protocol.InvariantViolation{ProjectID: c.cfg.ProjectID, Reason: c.quarantineNote}
	}
	thread := c.threadID(fmt.Sprintf("owner/%d", c.chain.Len()))
	c.appendRecord("owner", "CEO-001", commlog.KindUserInput, text, thread)

	if !asksForWork(text) {
		c.appendRecord("CEO-001", commlog.ChannelInternal, commlog.KindDecision,
			"Owner note acknowledged. No new work raised.", thread)
		return nil
	}

	t := c.addTask(&Task{
		Title:          ownerTaskTitle(text),
		Tag:            "owner",
		Priority:       PriorityUrgent,
		EstimatedHours: 8,
		CreatedAtHours: c.simHours,
	})
	c.appendRecord("CEO-001", commlog.ChannelInternal, commlog.KindDecision,
		fmt.Sprintf("Owner request accepted. Raised urgent task %s: %q.", t.ID, t.Title), thread)
	return nil
}

func ownerTaskTitle(text string) string {
	title := strings.TrimSpace(text)
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}
