package company

import (
	"fmt"

	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// Scores multiply three permille/percent factors, so the full-scale raw
// value is 1000 * 1000 * 100. Dividing by it recovers the nominal 0..1
// score for display.
const scoreScale = 1000 * 1000 * 100

func priorityPermille(p string) int64 {
	switch p {
	case PriorityUrgent:
		return 1000
	case PriorityHigh:
		return 800
	case PriorityMedium:
		return 500
	case PriorityLow:
		return 200
	default:
		return 0
	}
}

// skillMatchPermille is the mean over required skills of
// min(1, agent/required), in permille. No requirements means a perfect fit.
func skillMatchPermille(agent map[string]int, required map[string]int) int64 {
	if len(required) == 0 {
		return 1000
	}
	var sum int64
	for skill, req := range required {
		if req <= 0 {
			sum += 1000
			continue
		}
		part := int64(agent[skill]) * 1000 / int64(req)
		if part > 1000 {
			part = 1000
		}
		sum += part
	}
	return sum / int64(len(required))
}

func (c *Company) score(a *Agent, t *Task) int64 {
	return priorityPermille(t.Priority) * skillMatchPermille(a.Skills, t.RequiredSkills) * int64(a.Energy)
}

// pickTask returns the best-scoring eligible task for the agent. The scan
// runs in creation order and only a strictly greater score displaces the
// incumbent, so ties fall to the earliest-created, lowest-id task.
func (c *Company) pickTask(a *Agent) (*Task, int64) {
	var best *Task
	var bestScore int64
	for _, tid := range c.taskOrder {
		t := c.tasks[tid]
		if !c.eligible(t) {
			continue
		}
		s := c.score(a, t)
		if s <= 0 {
			continue
		}
		if best == nil || s > bestScore {
			best, bestScore = t, s
		}
	}
	return best, bestScore
}

// assignWork is the per-hour scheduling pass. Agents below the energy floor
// rest instead of taking work; agents with nothing eligible may idle-chat.
func (c *Company) assignWork() {
	for _, id := range c.agentOrder {
		a := c.agents[id]
		if a.Status != StatusIdle {
			continue
		}
		if a.Energy < c.tun.Decisions.MinAssignEnergy {
			a.regen(c.tun.Decisions.EnergyRegenPerTick)
			continue
		}
		t, raw := c.pickTask(a)
		if t == nil {
			c.maybeChatter(a)
			continue
		}
		c.assign(a, t, raw)
	}
}

func (c *Company) assign(a *Agent, t *Task, raw int64) {
	t.Status = TaskInProgress
	t.AssigneeID = a.ID
	a.Status = StatusWorking
	a.CurrentTask = t.ID
	if zone, ok := c.zones[a.Role.Department]; ok {
		a.TargetX, a.TargetY = zone[0], zone[1]
	}

	cost := c.tun.Decisions.EnergyCostPerEstimatedHour * t.EstimatedHours
	a.Energy -= cost
	if a.Energy < 0 {
		a.Energy = 0
	}

	fit := skillMatchPermille(a.Skills, t.RequiredSkills)
	text := fmt.Sprintf("Taking %q (score %.2f): %s priority, %d%% skill fit, %dh estimate.",
		t.Title, float64(raw)/scoreScale, t.Priority, fit/10, t.EstimatedHours)
	c.appendRecord(a.ID, commlog.ChannelInternal, commlog.KindThought, text, t.ThreadID)
}
