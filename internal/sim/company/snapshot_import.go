package company

import (
	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// NewFromSnapshot rehydrates a company from its at-rest form. The identity
// fields (project id, seed, idea) come from the snapshot; tuning, catalogs
// and sinks come from cfg. The communication log is re-verified: a company
// with a broken chain still loads, but quarantined, so the evidence stays
// inspectable and ticking is refused.
func NewFromSnapshot(cfg Config, snap snapshot.SnapshotV1) *Company {
	cfg.ProjectID = snap.Header.ProjectID
	cfg.Seed = snap.Seed
	cfg.SeedIdea = snap.SeedIdea
	c := newShell(cfg)

	c.tickSeq = snap.Header.Tick
	c.phase = snap.Phase
	c.simHours = snap.SimHours
	c.phaseStartHours = snap.PhaseStartHours
	c.stalled = snap.Stalled
	c.paused = snap.Paused
	c.quarantined = snap.Quarantined
	c.quarantineNote = snap.QuarantineNote
	c.lastSnapshotHours = snap.SimHours

	c.fin.RevenueMinor = snap.RevenueMinor
	c.fin.BurnMinor = snap.BurnMinor
	c.fin.RevenueTodayMinor = snap.RevenueTodayMinor
	c.fin.BurnTodayMinor = snap.BurnTodayMinor
	c.fin.CashPositiveStreak = snap.CashPositiveStreak
	c.satisf = snap.Satisfaction
	c.quality = snap.Quality

	for tag, n := range snap.CompletedByTag {
		c.completedByTag[tag] = n
	}

	for _, av := range snap.Agents {
		role, ok := c.cats.Roster.ByID[av.RoleID]
		if !ok {
			// Roster drifted since the snapshot; keep a minimal role so the
			// agent still loads.
			role = catalogs.Role{ID: av.RoleID, Department: "development"}
		}
		skills := make(map[string]int, len(av.Skills))
		for k, v := range av.Skills {
			skills[k] = v
		}
		a := &Agent{
			ID:           av.RoleID,
			Role:         role,
			X:            av.X,
			Y:            av.Y,
			TargetX:      av.TargetX,
			TargetY:      av.TargetY,
			Energy:       av.Energy,
			Morale:       av.Morale,
			Productivity: av.Productivity,
			Status:       av.Status,
			CurrentTask:  av.CurrentTaskID,
			Skills:       skills,
		}
		c.agents[a.ID] = a
		c.agentOrder = append(c.agentOrder, a.ID)
	}

	for _, tv := range snap.Backlog {
		skills := make(map[string]int, len(tv.RequiredSkills))
		for k, v := range tv.RequiredSkills {
			skills[k] = v
		}
		t := &Task{
			ID:                tv.ID,
			Title:             tv.Title,
			Tag:               tv.Tag,
			Priority:          tv.Priority,
			RequiredSkills:    skills,
			EstimatedHours:    tv.EstimatedHours,
			AccruedMilliHours: tv.AccruedMilliHours,
			WorkedHours:       tv.WorkedHours,
			Status:            tv.Status,
			AssigneeID:        tv.AssigneeID,
			CreatedAtHours:    tv.CreatedAtHours,
			CompletedAtHours:  tv.CompletedAtHours,
			Revenue:           tv.Revenue,
			RevenueMinor:      tv.RevenueMinor,
			Recurring:         tv.Recurring,
			DependsOn:         tv.DependsOn,
			ThreadID:          tv.ThreadID,
		}
		c.tasks[t.ID] = t
		c.taskOrder = append(c.taskOrder, t.ID)
	}
	c.nextTask = snap.Counters.NextTask

	records := make([]commlog.Record, 0, len(snap.Log))
	for _, rv := range snap.Log {
		records = append(records, commlog.Record{
			Seq:      rv.Seq,
			From:     rv.From,
			To:       rv.To,
			Kind:     commlog.Kind(rv.Kind),
			Text:     rv.Text,
			SimHours: rv.SimHours,
			TSMillis: rv.TSMillis,
			ThreadID: rv.ThreadID,
			Hash:     rv.Hash,
		})
	}
	chain, err := commlog.FromRecords(records)
	c.chain = chain
	if err != nil && !c.quarantined {
		c.quarantined = true
		c.quarantineNote = "communication log verification failed: " + err.Error()
		c.logger.Printf("[%s] restore quarantined: %v", c.cfg.ProjectID, err)
	}
	return c
}
