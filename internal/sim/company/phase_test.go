package company

import (
	"testing"

	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

// lifecycleCatalogs covers phases 0..2 with one-hour tasks a single
// researcher can finish in two hours each.
func lifecycleCatalogs() *catalogs.Catalogs {
	quick := func(title, tag string) catalogs.TaskTemplate {
		return catalogs.TaskTemplate{
			Title: title, Tag: tag, Priority: "high",
			RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 1,
		}
	}
	return testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {quick("Idea brief", "intake")},
			1: {quick("Interview A", "discovery"), quick("Interview B", "discovery"), quick("Interview C", "discovery")},
			2: {quick("Blueprint", "architecture")},
		},
	)
}

func TestGateAdvancesInCompletingTick(t *testing.T) {
	c := newTestCompany(t, lifecycleCatalogs(), quietTuning())

	// Hour 1 assigns and accrues 740 milli-hours; hour 2 completes the
	// intake task and must transition within that same tick.
	c.StepHours(1)
	if c.phase != PhaseIdeaIntake {
		t.Fatalf("phase after 1h = %d, want 0", c.phase)
	}
	ev := c.StepHours(1)
	if c.phase != PhaseDiscovery {
		t.Fatalf("phase after completion = %d, want 1", c.phase)
	}
	if !ev.PhaseTransitioned {
		t.Fatal("transition flag not set on the completing tick")
	}

	var phaseRec bool
	for _, r := range ev.Records {
		if r.Kind == commlog.KindPhase {
			phaseRec = true
		}
	}
	if !phaseRec {
		t.Fatal("no phase record appended on transition")
	}

	// Discovery backlog reseeded from templates.
	var discovery int
	for _, id := range c.taskOrder {
		if c.tasks[id].Tag == "discovery" {
			discovery++
		}
	}
	if discovery != 3 {
		t.Fatalf("discovery tasks seeded = %d, want 3", discovery)
	}
}

func TestThirdDiscoveryCompletionAdvances(t *testing.T) {
	c := newTestCompany(t, lifecycleCatalogs(), quietTuning())

	// 2h intake, then 3 discovery tasks at 2h each, sequentially.
	c.StepHours(7)
	if c.phase != PhaseDiscovery {
		t.Fatalf("phase after 7h = %d (%s), want Discovery", c.phase, PhaseName(c.phase))
	}
	if got := c.completedByTag["discovery"]; got != 2 {
		t.Fatalf("discovery completions after 7h = %d, want 2", got)
	}

	ev := c.StepHours(1)
	if c.phase != PhaseArchitecture {
		t.Fatalf("phase after 3rd discovery completion = %d, want Architecture", c.phase)
	}
	if !ev.PhaseTransitioned {
		t.Fatal("transition flag not set")
	}
}

func TestPhaseNeverDecreases(t *testing.T) {
	c := newTestCompany(t, lifecycleCatalogs(), quietTuning())
	last := c.phase
	for i := 0; i < 96; i++ {
		c.StepHours(1)
		if c.phase < last {
			t.Fatalf("phase decreased from %d to %d at hour %d", last, c.phase, c.simHours)
		}
		last = c.phase
	}
}

func TestStallFlagsAndErodesSatisfaction(t *testing.T) {
	// A task nobody can take keeps phase 0 open past its one-day cap.
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Impossible", Tag: "intake", Priority: "urgent",
				RequiredSkills: map[string]int{"kernels": 99}, EstimatedHours: 1}},
		},
	)
	tun := quietTuning()
	tun.Phases.MaxDays = []int{1, 5, 3, 14, 7, 14, 1, 0}
	c := newTestCompany(t, cats, tun)

	c.StepHours(24)
	if c.stalled {
		t.Fatal("stalled inside the window")
	}
	ev := c.StepHours(1)
	if !c.stalled || !ev.Stalled {
		t.Fatal("not stalled after exceeding the phase window")
	}

	startSat := c.satisf
	c.StepHours(48) // two stalled day boundaries
	if c.satisf != startSat-2 {
		t.Fatalf("satisfaction = %d, want %d after two stalled days", c.satisf, startSat-2)
	}
}

func TestStalledTransitionCostsQuality(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Impossible", Tag: "intake", Priority: "urgent",
				RequiredSkills: map[string]int{"kernels": 99}, EstimatedHours: 1}},
			1: {},
		},
	)
	tun := quietTuning()
	tun.Phases.MaxDays = []int{1, 5, 3, 14, 7, 14, 1, 0}
	c := newTestCompany(t, cats, tun)

	c.StepHours(26)
	if !c.stalled {
		t.Fatal("precondition: project should be stalled")
	}
	quality := c.quality

	// Unblock the gate with fresh, doable work.
	c.addTask(&Task{
		Title: "Rescue brief", Tag: "intake", Priority: PriorityUrgent,
		RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 1,
		CreatedAtHours: c.simHours,
	})
	c.StepHours(3)
	if c.phase != PhaseDiscovery {
		t.Fatalf("phase = %d, want Discovery after rescue task", c.phase)
	}
	if c.stalled {
		t.Fatal("stall flag not cleared by transition")
	}
	if c.quality != quality-1 {
		t.Fatalf("quality = %d, want %d after stalled transition", c.quality, quality-1)
	}
}

func TestBetaGateNeedsSatisfactionAndBurnCap(t *testing.T) {
	c := newTestCompany(t, lifecycleCatalogs(), quietTuning())
	c.phase = PhasePrivateBeta

	c.satisf = 69
	c.fin.BurnMinor = 0
	if c.gateMet() {
		t.Fatal("gate met below satisfaction floor")
	}
	c.satisf = 70
	if !c.gateMet() {
		t.Fatal("gate not met at satisfaction floor under cap")
	}
	c.fin.BurnMinor = c.tun.Phases.FundingCapMinor + 1
	if c.gateMet() {
		t.Fatal("gate met with burn over the funding cap")
	}
}

func TestLaunchGateNeedsRevenueAndStreak(t *testing.T) {
	c := newTestCompany(t, lifecycleCatalogs(), quietTuning())
	c.phase = PhasePublicLaunch

	c.fin.RevenueMinor = c.tun.Phases.RevenueTargetMinor
	c.fin.CashPositiveStreak = c.tun.Phases.SustainDays - 1
	if c.gateMet() {
		t.Fatal("gate met before the streak is long enough")
	}
	c.fin.CashPositiveStreak = c.tun.Phases.SustainDays
	if !c.gateMet() {
		t.Fatal("gate not met with target revenue and full streak")
	}
	c.fin.RevenueMinor = c.tun.Phases.RevenueTargetMinor - 1
	if c.gateMet() {
		t.Fatal("gate met below the revenue target")
	}
}
