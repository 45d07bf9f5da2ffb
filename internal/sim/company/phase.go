package company

import (
	"context"
	"fmt"
	"time"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

const (
	PhaseIdeaIntake = iota
	PhaseDiscovery
	PhaseArchitecture
	PhaseMVPSprint
	PhasePrivateBeta
	PhaseHardeningMonetisation
	PhasePublicLaunch
	PhaseScaleToTarget
)

func PhaseName(p int) string {
	switch p {
	case PhaseIdeaIntake:
		return "Idea Intake"
	case PhaseDiscovery:
		return "Discovery"
	case PhaseArchitecture:
		return "Architecture"
	case PhaseMVPSprint:
		return "MVP Sprint"
	case PhasePrivateBeta:
		return "Private Beta"
	case PhaseHardeningMonetisation:
		return "Hardening & Monetisation"
	case PhasePublicLaunch:
		return "Public Launch"
	case PhaseScaleToTarget:
		return "Scale to Target"
	default:
		return fmt.Sprintf("Phase %d", p)
	}
}

// checkStall flags the project once its current phase outruns the
// configured day cap. The flag never blocks ticking; it erodes satisfaction
// daily and clears on the next transition.
func (c *Company) checkStall() {
	if c.stalled || c.phase >= len(c.tun.Phases.MaxDays) {
		return
	}
	maxDays := c.tun.Phases.MaxDays[c.phase]
	if maxDays <= 0 {
		return
	}
	if c.simHours-c.phaseStartHours > int64(maxDays)*24 {
		c.stalled = true
		text := fmt.Sprintf("%s has exceeded its %d-day window; the team keeps working toward the gate.",
			PhaseName(c.phase), maxDays)
		c.appendRecord("MGT-001", commlog.ChannelInternal, commlog.KindSystem, text,
			c.threadID(fmt.Sprintf("stall/%d", c.phase)))
	}
}

func (c *Company) gateMet() bool {
	g := c.tun.Phases
	switch c.phase {
	case PhaseIdeaIntake:
		return c.completedByTag["intake"] >= g.IntakeTasks
	case PhaseDiscovery:
		return c.completedByTag["discovery"] >= g.DiscoveryTasks
	case PhaseArchitecture:
		return c.completedByTag["architecture"] >= g.ArchitectureTasks
	case PhaseMVPSprint:
		return c.completedByTag["mvp"] >= g.MVPTasks
	case PhasePrivateBeta:
		return c.satisf >= g.BetaSatisfaction && c.fin.BurnMinor <= g.FundingCapMinor
	case PhaseHardeningMonetisation:
		return c.completedByTag["hardening"] >= g.HardeningTasks
	case PhasePublicLaunch:
		return c.fin.RevenueMinor >= g.RevenueTargetMinor && c.fin.CashPositiveStreak >= g.SustainDays
	default:
		return false
	}
}

// checkGate advances at most one phase per simulated hour, in the same hour
// whose completions satisfied the gate.
func (c *Company) checkGate() {
	if c.phase >= PhaseScaleToTarget || !c.gateMet() {
		return
	}
	if c.stalled && c.quality > 0 {
		c.quality--
	}
	c.stalled = false
	c.phase++
	c.phaseStartHours = c.simHours
	c.transitioned = true
	seeded := c.seedPhaseBacklog(c.phase)

	thread := c.threadID(fmt.Sprintf("phase/%d", c.phase))
	text := fmt.Sprintf("Gate passed. Entering %s with %d fresh tasks on the board.",
		PhaseName(c.phase), seeded)
	c.appendRecord("CEO-001", commlog.ChannelInternal, commlog.KindPhase, text, thread)

	prompt := fmt.Sprintf(
		"You are the CEO of %s, a 25-person virtual software company. The project just entered the %s phase on day %d. Write a short, upbeat two-sentence update for the internal channel.",
		c.cfg.ProjectID, PhaseName(c.phase), c.simHours/24)
	c.fireNarrative("CEO-001", thread, prompt)
}

// fireNarrative asks the narrator for prose off the loop goroutine. The
// result re-enters through narrIn and lands as a chat record on a later
// hour; errors are logged and swallowed.
func (c *Company) fireNarrative(from, threadID, prompt string) {
	if c.cfg.Narrator == nil {
		return
	}
	timeout := time.Duration(c.tun.Narrative.TimeoutMs) * time.Millisecond
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := c.cfg.Narrator.Generate(ctx, prompt)
		if err != nil {
			cerr := &protocol.CollaboratorError{Op: "narrative", Err: err}
			c.logger.Printf("[%s] %v", c.cfg.ProjectID, cerr)
			return
		}
		select {
		case c.narrIn <- narrativeResult{from: from, threadID: threadID, text: text}:
		case <-c.stop:
		case <-c.done:
		}
	}()
}

type GateProgress struct {
	Name string `json:"name"`
	Have int64  `json:"have"`
	Need int64  `json:"need"`
}

func (c *Company) gateProgress() []GateProgress {
	g := c.tun.Phases
	switch c.phase {
	case PhaseIdeaIntake:
		return []GateProgress{{Name: "intake_tasks", Have: int64(c.completedByTag["intake"]), Need: int64(g.IntakeTasks)}}
	case PhaseDiscovery:
		return []GateProgress{{Name: "discovery_tasks", Have: int64(c.completedByTag["discovery"]), Need: int64(g.DiscoveryTasks)}}
	case PhaseArchitecture:
		return []GateProgress{{Name: "architecture_tasks", Have: int64(c.completedByTag["architecture"]), Need: int64(g.ArchitectureTasks)}}
	case PhaseMVPSprint:
		return []GateProgress{{Name: "mvp_tasks", Have: int64(c.completedByTag["mvp"]), Need: int64(g.MVPTasks)}}
	case PhasePrivateBeta:
		return []GateProgress{
			{Name: "satisfaction", Have: int64(c.satisf), Need: int64(g.BetaSatisfaction)},
			{Name: "burn_within_cap", Have: c.fin.BurnMinor, Need: g.FundingCapMinor},
		}
	case PhaseHardeningMonetisation:
		return []GateProgress{{Name: "hardening_tasks", Have: int64(c.completedByTag["hardening"]), Need: int64(g.HardeningTasks)}}
	case PhasePublicLaunch:
		return []GateProgress{
			{Name: "revenue_minor", Have: c.fin.RevenueMinor, Need: g.RevenueTargetMinor},
			{Name: "cash_positive_days", Have: int64(c.fin.CashPositiveStreak), Need: int64(g.SustainDays)},
		}
	default:
		return nil
	}
}
