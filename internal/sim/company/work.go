package company

import (
	"fmt"

	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// systemShift moves part-time agents on and off the clock. Off-shift agents
// rest (regenerating energy) and head back to their desks; any held task
// simply waits for them.
func (c *Company) systemShift() {
	hourOfDay := c.simHours % 24
	for _, id := range c.agentOrder {
		a := c.agents[id]
		if a.onShift(hourOfDay) {
			if a.Status == StatusOffline {
				if a.CurrentTask != "" {
					a.Status = StatusWorking
				} else {
					a.Status = StatusIdle
				}
			}
			continue
		}
		if a.Status != StatusOffline {
			a.Status = StatusOffline
			desk := c.deskByID[a.ID]
			a.TargetX, a.TargetY = desk[0], desk[1]
		}
		a.regen(c.tun.Decisions.EnergyRegenPerTick)
	}
}

// systemWork accrues one hour of productivity-scaled progress onto every
// working agent's task and returns the tasks completed this hour.
func (c *Company) systemWork() []*Task {
	var completed []*Task
	for _, id := range c.agentOrder {
		a := c.agents[id]
		if a.Status != StatusWorking || a.CurrentTask == "" {
			continue
		}
		t, ok := c.tasks[a.CurrentTask]
		if !ok {
			c.quarantine(fmt.Sprintf("agent %s holds unknown task %s", a.ID, a.CurrentTask))
			return completed
		}
		t.AccruedMilliHours += int64(a.Productivity) * 10
		t.WorkedHours++
		if t.done() {
			c.completeTask(a, t)
			completed = append(completed, t)
		}
	}
	return completed
}

func (c *Company) completeTask(a *Agent, t *Task) {
	t.Status = TaskCompleted
	t.CompletedAtHours = c.simHours

	a.CurrentTask = ""
	a.Status = StatusIdle
	desk := c.deskByID[a.ID]
	a.TargetX, a.TargetY = desk[0], desk[1]
	if a.Morale < 100 {
		a.Morale++
	}
	for skill := range t.RequiredSkills {
		if a.Skills[skill] < 100 {
			a.Skills[skill]++
		}
	}

	text := fmt.Sprintf("Completed %q in %dh worked (estimate %dh).", t.Title, t.WorkedHours, t.EstimatedHours)
	c.appendRecord(a.ID, commlog.ChannelInternal, commlog.KindTask, text, t.ThreadID)
}

// processCompletions applies the bookkeeping every completed task owes:
// gate counters, metric bumps, revenue at the current phase multiplier, and
// recurring respawn.
func (c *Company) processCompletions(completed []*Task) {
	for _, t := range completed {
		c.completedByTag[t.Tag]++
		c.stepCompletions++

		switch t.Tag {
		case "beta", "ux":
			c.satisf += 5
			if c.satisf > 100 {
				c.satisf = 100
			}
		case "hardening":
			if c.quality < 100 {
				c.quality++
			}
		}

		if t.Revenue {
			c.fin.accrueRevenue(t.RevenueMinor, c.phase)
		}
		if t.Recurring {
			c.respawn(t)
		}
	}
}

func (c *Company) systemMovement() {
	step := c.tun.Decisions.MoveStepPerTick
	for _, id := range c.agentOrder {
		c.agents[id].moveToward(step)
	}
}

// checkInvariants verifies that no task has two holders and every working
// agent's task points back at it. A violation quarantines the project:
// read-only from then on, never auto-repaired.
func (c *Company) checkInvariants() bool {
	holders := map[string]string{}
	for _, id := range c.agentOrder {
		a := c.agents[id]
		if a.CurrentTask == "" {
			continue
		}
		if prev, taken := holders[a.CurrentTask]; taken {
			c.quarantine(fmt.Sprintf("task %s held by both %s and %s", a.CurrentTask, prev, a.ID))
			return false
		}
		holders[a.CurrentTask] = a.ID
		t, ok := c.tasks[a.CurrentTask]
		if !ok {
			c.quarantine(fmt.Sprintf("agent %s holds unknown task %s", a.ID, a.CurrentTask))
			return false
		}
		if t.AssigneeID != a.ID {
			c.quarantine(fmt.Sprintf("task %s assignee %s does not match holder %s", t.ID, t.AssigneeID, a.ID))
			return false
		}
	}
	return true
}

func (c *Company) quarantine(reason string) {
	if c.quarantined {
		return
	}
	c.quarantined = true
	c.quarantineNote = reason
	c.appendRecord("system", commlog.ChannelInternal, commlog.KindSystem,
		"Project quarantined: "+reason, c.threadID("system/quarantine"))
	c.logger.Printf("[%s] quarantined: %s", c.cfg.ProjectID, reason)
}
