package company

import (
	"sort"

	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
)

const (
	StatusIdle    = "idle"
	StatusWorking = "working"
	StatusBlocked = "blocked"
	StatusOffline = "offline"
)

// Agent is the mutable per-project state of one roster role. The agent id is
// the role id; there is exactly one agent per role per project.
type Agent struct {
	ID           string
	Role         catalogs.Role
	X, Y         int
	TargetX      int
	TargetY      int
	Energy       int
	Morale       int
	Productivity int
	Status       string
	CurrentTask  string
	Skills       map[string]int // mutable copy; grows with completed work
}

func newAgent(role catalogs.Role, desk [2]int) *Agent {
	skills := make(map[string]int, len(role.Skills))
	for k, v := range role.Skills {
		skills[k] = v
	}
	return &Agent{
		ID:           role.ID,
		Role:         role,
		X:            desk[0],
		Y:            desk[1],
		TargetX:      desk[0],
		TargetY:      desk[1],
		Energy:       100,
		Morale:       75,
		Productivity: productivityFor(role.Seniority),
		Status:       StatusIdle,
		Skills:       skills,
	}
}

// productivityFor maps seniority band to base output per worked hour,
// in percent of a nominal hour.
func productivityFor(seniority string) int {
	switch seniority {
	case "L9":
		return 86
	case "L8":
		return 82
	case "L7":
		return 78
	case "L6":
		return 74
	default:
		return 70
	}
}

// onShift reports whether the agent is inside its working window for the
// given hour of day. Part-time roles (board seats at 25% FTE) work the first
// hours of each simulated day and are offline for the rest.
func (a *Agent) onShift(hourOfDay int64) bool {
	active := int64(24 * a.Role.FTEPercent / 100)
	if active >= 24 {
		return true
	}
	return hourOfDay < active
}

func (a *Agent) regen(amount int) {
	a.Energy += amount
	if a.Energy > 100 {
		a.Energy = 100
	}
}

// moveToward steps the agent toward its target position on each axis,
// clamped to step units per hour.
func (a *Agent) moveToward(step int) {
	a.X = approach(a.X, a.TargetX, step)
	a.Y = approach(a.Y, a.TargetY, step)
}

func approach(cur, target, step int) int {
	switch {
	case cur < target:
		if target-cur < step {
			return target
		}
		return cur + step
	case cur > target:
		if cur-target < step {
			return target
		}
		return cur - step
	default:
		return cur
	}
}

// buildOffice derives desk positions and per-department zone centers from
// the roster. Working agents head for their department zone; idle agents
// return to their desks.
func (c *Company) buildOffice() {
	c.deskByID = make(map[string][2]int, len(c.cats.Roster.Roles))
	sums := map[string][3]int{} // x sum, y sum, count
	for _, role := range c.cats.Roster.Roles {
		c.deskByID[role.ID] = role.Desk
		s := sums[role.Department]
		sums[role.Department] = [3]int{s[0] + role.Desk[0], s[1] + role.Desk[1], s[2] + 1}
	}
	c.zones = make(map[string][2]int, len(sums))
	depts := make([]string, 0, len(sums))
	for d := range sums {
		depts = append(depts, d)
	}
	sort.Strings(depts)
	for _, d := range depts {
		s := sums[d]
		c.zones[d] = [2]int{s[0] / s[2], s[1] / s[2]}
	}
}
