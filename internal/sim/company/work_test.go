package company

import (
	"strings"
	"testing"

	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

func boardMember() catalogs.Role {
	return catalogs.Role{
		ID:         "BOARD-001",
		Name:       "Riya Patel",
		Title:      "Board Member",
		Department: "board",
		Seniority:  "L9",
		FTEPercent: 25,
		Skills:     map[string]int{"strategy": 90},
		Desk:       [2]int{600, 80},
	}
}

func TestDoubleHeldTaskQuarantines(t *testing.T) {
	c := newTestCompany(t,
		testCatalogs([]catalogs.Role{boardMember(), researcher()}, nil), quietTuning())

	task := c.addTask(&Task{Title: "Contested", Priority: PriorityHigh, EstimatedHours: 4})
	task.Status = TaskInProgress
	task.AssigneeID = "BOARD-001"
	for _, id := range []string{"BOARD-001", "UX-001"} {
		c.agents[id].CurrentTask = task.ID
		c.agents[id].Status = StatusWorking
	}

	ev := c.StepHours(5)
	if !c.quarantined {
		t.Fatal("double-held task did not quarantine")
	}
	if !strings.Contains(c.quarantineNote, "held by both") {
		t.Fatalf("note = %q, want the conflicting holders named", c.quarantineNote)
	}
	if c.simHours != 1 {
		t.Fatalf("sim hours = %d, want the step cut short at 1", c.simHours)
	}
	if !ev.Quarantined {
		t.Fatal("tick event does not flag the quarantine")
	}

	var sysRec bool
	for _, r := range ev.Records {
		if r.Kind == commlog.KindSystem && strings.Contains(r.Text, "quarantined") {
			sysRec = true
		}
	}
	if !sysRec {
		t.Fatal("no quarantine record in the tick event")
	}

	// Quarantine is read-only and permanent: time no longer moves.
	c.StepHours(10)
	if c.simHours != 1 {
		t.Fatalf("quarantined project advanced to hour %d", c.simHours)
	}
}

func TestAssigneeMismatchQuarantines(t *testing.T) {
	c := newTestCompany(t, testCatalogs([]catalogs.Role{researcher()}, nil), quietTuning())

	task := c.addTask(&Task{Title: "Orphaned", Priority: PriorityHigh, EstimatedHours: 4})
	task.Status = TaskInProgress
	task.AssigneeID = "DEV-999"
	c.agents["UX-001"].CurrentTask = task.ID
	c.agents["UX-001"].Status = StatusWorking

	c.StepHours(1)
	if !c.quarantined || !strings.Contains(c.quarantineNote, "does not match holder") {
		t.Fatalf("quarantined=%v note=%q, want an assignee mismatch", c.quarantined, c.quarantineNote)
	}
}

func TestPartTimerGoesOfflineAndResumes(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{boardMember()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Quarterly strategy review", Tag: "intake", Priority: "high",
				RequiredSkills: map[string]int{"strategy": 60}, EstimatedHours: 20}},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	a := c.agents["BOARD-001"]
	task := c.tasks[c.taskOrder[0]]

	// 25% FTE works hours 0-5 of each day; hour 1 assigns, hours 1-5 accrue.
	c.StepHours(6)
	if a.Status != StatusOffline {
		t.Fatalf("status at hour 6 = %s, want offline", a.Status)
	}
	if task.Status != TaskInProgress || task.AssigneeID != "BOARD-001" {
		t.Fatalf("task dropped at shift end: %+v", task)
	}
	if task.AccruedMilliHours != 5*860 {
		t.Fatalf("accrued = %d, want %d from five worked hours", task.AccruedMilliHours, 5*860)
	}
	if a.Energy != 65 {
		t.Fatalf("energy = %d, want 65 (assignment cost then one rest hour)", a.Energy)
	}

	// Rest caps energy; the held task waits untouched.
	c.StepHours(17)
	if a.Energy != 100 {
		t.Fatalf("energy after a night off = %d, want 100", a.Energy)
	}
	if task.AccruedMilliHours != 5*860 {
		t.Fatal("task accrued progress while its holder was offline")
	}

	// Hour 24 is hour 0 of the next day: back on shift, same task in hand.
	c.StepHours(1)
	if a.Status != StatusWorking || a.CurrentTask != task.ID {
		t.Fatalf("agent did not resume: status=%s task=%s", a.Status, a.CurrentTask)
	}
	if task.AccruedMilliHours != 6*860 {
		t.Fatalf("accrued = %d, want %d after resuming", task.AccruedMilliHours, 6*860)
	}
}

func TestDependentTaskWaitsForBlocker(t *testing.T) {
	c := newTestCompany(t, testCatalogs([]catalogs.Role{researcher()}, nil), quietTuning())

	first := c.addTask(&Task{Title: "Draft schema", Priority: PriorityHigh,
		RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 1})
	second := c.addTask(&Task{Title: "Review schema", Priority: PriorityUrgent,
		RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 1,
		DependsOn: first.ID})

	// Urgent but blocked: the dependency wins until it completes.
	c.StepHours(1)
	if first.Status != TaskInProgress {
		t.Fatalf("blocker not started: %s", first.Status)
	}
	if second.Status != TaskBacklog || second.AssigneeID != "" {
		t.Fatalf("dependent task started early: %+v", second)
	}

	c.StepHours(2) // blocker completes at hour 2, dependent starts at hour 3
	if first.Status != TaskCompleted {
		t.Fatalf("blocker status = %s, want completed", first.Status)
	}
	if second.Status != TaskInProgress {
		t.Fatalf("dependent status = %s, want in_progress once unblocked", second.Status)
	}
}

func TestCompletionGrowsSkillAndMorale(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "User interviews", Tag: "intake", Priority: "high",
				RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 1}},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	a := c.agents["UX-001"]

	ev := c.StepHours(2)
	if a.Skills["research"] != 71 {
		t.Fatalf("research skill = %d, want 71 after exercising it", a.Skills["research"])
	}
	if a.Morale != 76 {
		t.Fatalf("morale = %d, want 76 after a completion", a.Morale)
	}

	var taskRec bool
	for _, r := range ev.Records {
		if r.Kind == commlog.KindTask && strings.Contains(r.Text, "Completed") {
			taskRec = true
		}
	}
	if !taskRec {
		t.Fatal("no completion record in the tick event")
	}
}
