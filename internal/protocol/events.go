package protocol

import "github.com/blackrab369/Versaas-ai/internal/sim/commlog"

// AgentDelta is an agent's per-tick public state, pushed with every tick event.
type AgentDelta struct {
	ID            string `json:"id"`
	RoleID        string `json:"role_id"`
	Status        string `json:"status"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Energy        int    `json:"energy"`
	Morale        int    `json:"morale"`
	Productivity  int    `json:"productivity"`
	CurrentTaskID string `json:"current_task_id,omitempty"`
}

// FinanceSnapshot carries the fixed-point accrual state after a tick.
// RunwayDays is RunwayInfinite (-1) when burn is zero.
type FinanceSnapshot struct {
	RevenueMinor  int64 `json:"revenue_minor"`
	BurnMinor     int64 `json:"burn_minor"`
	ReservesMinor int64 `json:"reserves_minor"`
	RunwayDays    int64 `json:"runway_days"`
}

// RunwayInfinite is the sentinel runway value reported while burn is zero.
const RunwayInfinite int64 = -1

// TickEvent is the per-tick completion event exposed to the request layer.
// Events for one project arrive in tick order; cross-project order is
// unspecified.
type TickEvent struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	ProjectID   string `json:"project_id"`
	Tick        uint64 `json:"tick"`
	SimHours    int64  `json:"sim_hours"`
	DaysElapsed int64  `json:"days_elapsed"`

	Phase             int    `json:"phase"`
	PhaseName         string `json:"phase_name"`
	PhaseTransitioned bool   `json:"phase_transitioned"`
	Stalled           bool   `json:"stalled"`
	Quarantined       bool   `json:"quarantined,omitempty"`

	Agents  []AgentDelta     `json:"agents"`
	Records []commlog.Record `json:"records"`
	Finance FinanceSnapshot  `json:"finance"`
}
