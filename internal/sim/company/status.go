package company

import (
	"github.com/blackrab369/Versaas-ai/internal/protocol"
)

// Status is the queryable view of one project: lifecycle position, gate
// progress, books, and team metrics.
type Status struct {
	ProjectID      string `json:"project_id"`
	Tick           uint64 `json:"tick"`
	SimHours       int64  `json:"sim_hours"`
	DaysElapsed    int64  `json:"days_elapsed"`
	Phase          int    `json:"phase"`
	PhaseName      string `json:"phase_name"`
	Paused         bool   `json:"paused"`
	Stalled        bool   `json:"stalled"`
	Quarantined    bool   `json:"quarantined"`
	QuarantineNote string `json:"quarantine_note,omitempty"`

	Satisfaction int `json:"satisfaction"`
	Quality      int `json:"quality"`
	Morale       int `json:"morale"`

	Finance protocol.FinanceSnapshot `json:"finance"`
	Gate    []GateProgress           `json:"gate"`

	TasksBacklog   int `json:"tasks_backlog"`
	TasksActive    int `json:"tasks_active"`
	TasksCompleted int `json:"tasks_completed"`
	Records        int `json:"records"`
}

func (c *Company) buildStatus() Status {
	var backlog, active, completedCount int
	for _, t := range c.tasks {
		switch t.Status {
		case TaskBacklog, TaskBlocked:
			backlog++
		case TaskInProgress:
			active++
		case TaskCompleted:
			completedCount++
		}
	}
	var moraleSum int
	for _, id := range c.agentOrder {
		moraleSum += c.agents[id].Morale
	}
	morale := 0
	if len(c.agentOrder) > 0 {
		morale = moraleSum / len(c.agentOrder)
	}
	return Status{
		ProjectID:      c.cfg.ProjectID,
		Tick:           c.tickSeq,
		SimHours:       c.simHours,
		DaysElapsed:    c.simHours / 24,
		Phase:          c.phase,
		PhaseName:      PhaseName(c.phase),
		Paused:         c.paused,
		Stalled:        c.stalled,
		Quarantined:    c.quarantined,
		QuarantineNote: c.quarantineNote,
		Satisfaction:   c.satisf,
		Quality:        c.quality,
		Morale:         morale,
		Finance:        c.fin.snapshot(int64(len(c.agentOrder))),
		Gate:           c.gateProgress(),
		TasksBacklog:   backlog,
		TasksActive:    active,
		TasksCompleted: completedCount,
		Records:        c.chain.Len(),
	}
}
