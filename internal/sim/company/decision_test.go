package company

import (
	"sort"
	"testing"
	"time"

	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

func testCatalogs(roles []catalogs.Role, phases map[int][]catalogs.TaskTemplate) *catalogs.Catalogs {
	rc := catalogs.RosterCatalog{ByID: map[string]catalogs.Role{}, Digest: "test"}
	for _, r := range roles {
		rc.Roles = append(rc.Roles, r)
		rc.ByID[r.ID] = r
	}
	sort.Slice(rc.Roles, func(i, j int) bool { return rc.Roles[i].ID < rc.Roles[j].ID })
	if phases == nil {
		phases = map[int][]catalogs.TaskTemplate{}
	}
	return &catalogs.Catalogs{
		Roster:    rc,
		Templates: catalogs.TemplateCatalog{Phases: phases, Digest: "test"},
	}
}

func quietTuning() tuning.Tuning {
	tun := tuning.Defaults()
	tun.Decisions.IdleChatterPerTick = 0
	return tun
}

func staticNow() func() time.Time {
	at := time.Unix(1_700_000_000, 0)
	return func() time.Time { return at }
}

func newTestCompany(t *testing.T, cats *catalogs.Catalogs, tun tuning.Tuning) *Company {
	t.Helper()
	c := New(Config{
		ProjectID: "TEST-01",
		SeedIdea:  "",
		Seed:      42,
		Tuning:    tun,
		Catalogs:  cats,
		Now:       staticNow(),
	})
	return c
}

func researcher() catalogs.Role {
	return catalogs.Role{
		ID:         "UX-001",
		Name:       "Morgan Kim",
		Title:      "Lead UX Researcher",
		Department: "design",
		Seniority:  "L6",
		FTEPercent: 100,
		Skills:     map[string]int{"research": 70},
		Desk:       [2]int{150, 250},
	}
}

func TestAssignmentScoreAndRecord(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Customer interviews", Tag: "intake", Priority: "high",
				RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 16}},
		},
	)
	c := newTestCompany(t, cats, quietTuning())

	a := c.agents["UX-001"]
	task := c.tasks[c.taskOrder[0]]
	if got := c.score(a, task); got != 800*1000*100 {
		t.Fatalf("raw score = %d, want %d (0.80 full scale)", got, 800*1000*100)
	}

	ev := c.StepHours(1)

	if task.Status != TaskInProgress || task.AssigneeID != "UX-001" {
		t.Fatalf("task not assigned: status=%s assignee=%s", task.Status, task.AssigneeID)
	}
	if a.Status != StatusWorking || a.CurrentTask != task.ID {
		t.Fatalf("agent not working: status=%s task=%s", a.Status, a.CurrentTask)
	}
	if len(ev.Records) != 1 {
		t.Fatalf("records this tick = %d, want 1", len(ev.Records))
	}
	if ev.Records[0].Kind != commlog.KindThought {
		t.Fatalf("record kind = %s, want thought", ev.Records[0].Kind)
	}
}

func TestSkillMatchPermille(t *testing.T) {
	cases := []struct {
		name     string
		agent    map[string]int
		required map[string]int
		want     int64
	}{
		{"no requirements", map[string]int{"go": 10}, nil, 1000},
		{"exact", map[string]int{"go": 50}, map[string]int{"go": 50}, 1000},
		{"overqualified capped", map[string]int{"go": 90}, map[string]int{"go": 30}, 1000},
		{"half", map[string]int{"go": 25}, map[string]int{"go": 50}, 500},
		{"missing skill", map[string]int{}, map[string]int{"go": 50}, 0},
		{"mixed", map[string]int{"go": 50, "sql": 25}, map[string]int{"go": 50, "sql": 50}, 750},
	}
	for _, tc := range cases {
		if got := skillMatchPermille(tc.agent, tc.required); got != tc.want {
			t.Errorf("%s: skillMatch = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPriorityOrdersAssignment(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {
				{Title: "Low value", Tag: "intake", Priority: "low",
					RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 8},
				{Title: "Urgent value", Tag: "intake", Priority: "urgent",
					RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 8},
			},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	c.StepHours(1)

	a := c.agents["UX-001"]
	got := c.tasks[a.CurrentTask]
	if got.Title != "Urgent value" {
		t.Fatalf("agent took %q, want the urgent task", got.Title)
	}
}

func TestTieBreakEarliestCreated(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {
				{Title: "First of equals", Tag: "intake", Priority: "high",
					RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 8},
				{Title: "Second of equals", Tag: "intake", Priority: "high",
					RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 8},
			},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	c.StepHours(1)

	a := c.agents["UX-001"]
	if got := c.tasks[a.CurrentTask]; got.Title != "First of equals" {
		t.Fatalf("tie went to %q, want the earliest-created task", got.Title)
	}
}

func TestEnergyGateRegenerates(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Waiting work", Tag: "intake", Priority: "high",
				RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 8}},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	a := c.agents["UX-001"]
	a.Energy = 4

	c.StepHours(1)
	if a.CurrentTask != "" {
		t.Fatalf("exhausted agent was assigned %s", a.CurrentTask)
	}
	if a.Energy != 9 {
		t.Fatalf("energy after regen = %d, want 9", a.Energy)
	}

	// One more regen crosses the floor and the next hour assigns.
	c.StepHours(2)
	if a.CurrentTask == "" {
		t.Fatal("recovered agent still idle")
	}
}

func TestAssignmentDecrementsEnergy(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Big estimate", Tag: "intake", Priority: "high",
				RequiredSkills: map[string]int{"research": 50}, EstimatedHours: 30}},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	c.StepHours(1)

	// Cost is 2 per estimated hour: 100 - 60.
	if got := c.agents["UX-001"].Energy; got != 40 {
		t.Fatalf("energy after assignment = %d, want 40", got)
	}
}

func TestUnassignableTaskLeavesAgentIdle(t *testing.T) {
	cats := testCatalogs(
		[]catalogs.Role{researcher()},
		map[int][]catalogs.TaskTemplate{
			0: {{Title: "Kernel port", Tag: "intake", Priority: "urgent",
				RequiredSkills: map[string]int{"kernels": 90}, EstimatedHours: 8}},
		},
	)
	c := newTestCompany(t, cats, quietTuning())
	c.StepHours(1)

	a := c.agents["UX-001"]
	if a.Status != StatusIdle || a.CurrentTask != "" {
		t.Fatalf("zero-fit task was assigned: status=%s task=%s", a.Status, a.CurrentTask)
	}
}
