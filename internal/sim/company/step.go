package company

import (
	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// step advances the simulation by the given whole simulated hours and
// returns the tick event covering the whole span. Must run on the loop
// goroutine (or the single test goroutine driving StepHours).
func (c *Company) step(hours int64) protocol.TickEvent {
	if c.quarantined {
		return c.buildTickEvent(nil)
	}
	c.stepCompletions = 0
	c.transitioned = false

	for i := int64(0); i < hours && !c.quarantined; i++ {
		c.stepHour()
	}
	c.tickSeq++

	// stepRecords may already hold records appended between ticks (owner
	// requests); they ride this event rather than vanish.
	ev := c.buildTickEvent(c.stepRecords)
	if c.cfg.TickLogger != nil {
		entry := TickLogEntry{
			ProjectID:   c.cfg.ProjectID,
			Tick:        c.tickSeq,
			SimHours:    c.simHours,
			Phase:       c.phase,
			Records:     len(c.stepRecords),
			Completions: c.stepCompletions,
			Digest:      c.stateDigest(),
		}
		if err := c.cfg.TickLogger.WriteTick(entry); err != nil {
			c.logger.Printf("[%s] tick log: %v", c.cfg.ProjectID, err)
		}
	}
	c.stepRecords = nil
	c.maybeSnapshot()
	return ev
}

// stepHour simulates exactly one hour. System order is fixed: narrative
// arrivals, shift changes, assignment, work, movement, burn, day rollover,
// stall check, then the phase gate.
func (c *Company) stepHour() {
	c.simHours++

	c.drainNarratives()
	c.systemShift()
	if !c.checkInvariants() {
		return
	}
	c.assignWork()
	completed := c.systemWork()
	c.processCompletions(completed)
	c.systemMovement()
	c.fin.accrueBurn(int64(len(c.agentOrder)), 1)

	if c.simHours%24 == 0 {
		c.endOfDay()
	}
	c.checkStall()
	c.checkGate()
}

// endOfDay runs once per 24 simulated hours: stalled days erode
// satisfaction, and the cash-positive streak the launch gate needs is
// extended or reset.
func (c *Company) endOfDay() {
	if c.stalled && c.satisf > 0 {
		c.satisf--
	}
	if c.fin.RevenueTodayMinor > c.fin.BurnTodayMinor {
		c.fin.CashPositiveStreak++
	} else {
		c.fin.CashPositiveStreak = 0
	}
	c.fin.RevenueTodayMinor = 0
	c.fin.BurnTodayMinor = 0
}

// drainNarratives lands finished narrative generations as chat records. The
// generator goroutines deliver into narrIn; the loop (or a StepHours driver)
// collects them here, so decorations always arrive on a later hour than the
// transition that requested them.
func (c *Company) drainNarratives() {
drain:
	for {
		select {
		case res := <-c.narrIn:
			c.pendingNarr = append(c.pendingNarr, res)
		default:
			break drain
		}
	}
	if len(c.pendingNarr) == 0 {
		return
	}
	for _, res := range c.pendingNarr {
		c.appendRecord(res.from, commlog.ChannelInternal, commlog.KindChat, res.text, res.threadID)
	}
	c.pendingNarr = c.pendingNarr[:0]
}

func (c *Company) buildTickEvent(records []commlog.Record) protocol.TickEvent {
	agents := make([]protocol.AgentDelta, 0, len(c.agentOrder))
	for _, id := range c.agentOrder {
		a := c.agents[id]
		agents = append(agents, protocol.AgentDelta{
			ID:            a.ID,
			RoleID:        a.Role.ID,
			Status:        a.Status,
			X:             a.X,
			Y:             a.Y,
			Energy:        a.Energy,
			Morale:        a.Morale,
			Productivity:  a.Productivity,
			CurrentTaskID: a.CurrentTask,
		})
	}
	return protocol.TickEvent{
		Type:              protocol.TypeTick,
		ProtocolVersion:   protocol.Version,
		ProjectID:         c.cfg.ProjectID,
		Tick:              c.tickSeq,
		SimHours:          c.simHours,
		DaysElapsed:       c.simHours / 24,
		Phase:             c.phase,
		PhaseName:         PhaseName(c.phase),
		PhaseTransitioned: c.transitioned,
		Stalled:           c.stalled,
		Quarantined:       c.quarantined,
		Agents:            agents,
		Records:           records,
		Finance:           c.fin.snapshot(int64(len(c.agentOrder))),
	}
}

// StepHours drives the simulation deterministically by exactly h simulated
// hours with the same ordering as the server loop. Intended for tests and
// offline replay; must not race with a running loop.
func (c *Company) StepHours(h int64) protocol.TickEvent {
	return c.step(h)
}

func (c *Company) maybeSnapshot() {
	if c.cfg.SnapshotSink == nil {
		return
	}
	every := int64(c.tun.Persistence.SnapshotEverySimHours)
	if every <= 0 || c.simHours-c.lastSnapshotHours < every {
		return
	}
	c.lastSnapshotHours = c.simHours
	select {
	case c.cfg.SnapshotSink <- c.ExportSnapshot():
	default:
		// Sink is backed up; skip this cadence rather than block the loop.
	}
}
