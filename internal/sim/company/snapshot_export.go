package company

import (
	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
)

// ExportSnapshot captures the complete simulation state. Must be called
// from the loop goroutine (the Snapshot method does) or the single test
// goroutine driving StepHours.
func (c *Company) ExportSnapshot() snapshot.SnapshotV1 {
	agents := make([]snapshot.AgentV1, 0, len(c.agentOrder))
	for _, id := range c.agentOrder {
		a := c.agents[id]
		skills := make(map[string]int, len(a.Skills))
		for k, v := range a.Skills {
			skills[k] = v
		}
		agents = append(agents, snapshot.AgentV1{
			RoleID:        a.ID,
			X:             a.X,
			Y:             a.Y,
			TargetX:       a.TargetX,
			TargetY:       a.TargetY,
			Energy:        a.Energy,
			Morale:        a.Morale,
			Productivity:  a.Productivity,
			Status:        a.Status,
			CurrentTaskID: a.CurrentTask,
			Skills:        skills,
		})
	}

	tasks := make([]snapshot.TaskV1, 0, len(c.taskOrder))
	for _, tid := range c.taskOrder {
		t := c.tasks[tid]
		skills := make(map[string]int, len(t.RequiredSkills))
		for k, v := range t.RequiredSkills {
			skills[k] = v
		}
		tasks = append(tasks, snapshot.TaskV1{
			ID:                t.ID,
			Title:             t.Title,
			Tag:               t.Tag,
			Priority:          t.Priority,
			RequiredSkills:    skills,
			EstimatedHours:    t.EstimatedHours,
			AccruedMilliHours: t.AccruedMilliHours,
			WorkedHours:       t.WorkedHours,
			Status:            t.Status,
			AssigneeID:        t.AssigneeID,
			CreatedAtHours:    t.CreatedAtHours,
			CompletedAtHours:  t.CompletedAtHours,
			Revenue:           t.Revenue,
			RevenueMinor:      t.RevenueMinor,
			Recurring:         t.Recurring,
			DependsOn:         t.DependsOn,
			ThreadID:          t.ThreadID,
		})
	}

	recs := c.chain.Records()
	logRecs := make([]snapshot.RecordV1, 0, len(recs))
	for _, r := range recs {
		logRecs = append(logRecs, snapshot.RecordV1{
			Seq:      r.Seq,
			From:     r.From,
			To:       r.To,
			Kind:     string(r.Kind),
			Text:     r.Text,
			SimHours: r.SimHours,
			TSMillis: r.TSMillis,
			ThreadID: r.ThreadID,
			Hash:     r.Hash,
		})
	}

	tags := make(map[string]int, len(c.completedByTag))
	for k, v := range c.completedByTag {
		tags[k] = v
	}

	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:   1,
			ProjectID: c.cfg.ProjectID,
			Tick:      c.tickSeq,
			SimHours:  c.simHours,
		},
		Seed:               c.cfg.Seed,
		SeedIdea:           c.cfg.SeedIdea,
		Phase:              c.phase,
		SimHours:           c.simHours,
		PhaseStartHours:    c.phaseStartHours,
		Stalled:            c.stalled,
		Paused:             c.paused,
		Quarantined:        c.quarantined,
		QuarantineNote:     c.quarantineNote,
		RevenueMinor:       c.fin.RevenueMinor,
		BurnMinor:          c.fin.BurnMinor,
		ReservesMinor:      c.fin.reserves(),
		RevenueTodayMinor:  c.fin.RevenueTodayMinor,
		BurnTodayMinor:     c.fin.BurnTodayMinor,
		CashPositiveStreak: c.fin.CashPositiveStreak,
		Satisfaction:       c.satisf,
		Quality:            c.quality,
		CompletedByTag:     tags,
		Agents:             agents,
		Backlog:            tasks,
		Log:                logRecs,
		Counters:           snapshot.CountersV1{NextTask: c.nextTask},
	}
}
