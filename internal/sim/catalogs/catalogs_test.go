package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const repoConfigs = "../../../configs"

func TestLoadRepoConfigs(t *testing.T) {
	c, err := Load(repoConfigs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Roster.Roles) != RosterSize {
		t.Fatalf("roster size = %d, want %d", len(c.Roster.Roles), RosterSize)
	}
	if c.Roster.Digest == "" || c.Templates.Digest == "" {
		t.Fatalf("missing digests: roster=%q templates=%q", c.Roster.Digest, c.Templates.Digest)
	}
	for phase := 0; phase <= 7; phase++ {
		if len(c.Templates.Phases[phase]) == 0 {
			t.Fatalf("phase %d has no templates", phase)
		}
	}
}

// Every skill a template requires must be held by at least one roster role,
// otherwise no assignment can ever score well for it.
func TestTemplateSkillsCoveredByRoster(t *testing.T) {
	c, err := Load(repoConfigs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	held := map[string]bool{}
	for _, r := range c.Roster.Roles {
		for skill := range r.Skills {
			held[skill] = true
		}
	}
	for phase, tmpls := range c.Templates.Phases {
		for _, tt := range tmpls {
			for skill := range tt.RequiredSkills {
				if !held[skill] {
					t.Errorf("phase %d %q requires skill %q no role holds", phase, tt.Title, skill)
				}
			}
		}
	}
}

func TestRevenueTemplatesCarryAmounts(t *testing.T) {
	c, err := Load(repoConfigs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for phase, tmpls := range c.Templates.Phases {
		for _, tt := range tmpls {
			if tt.Revenue && tt.RevenueMinor <= 0 {
				t.Errorf("phase %d %q flagged revenue without amount", phase, tt.Title)
			}
			if !tt.Revenue && tt.RevenueMinor != 0 {
				t.Errorf("phase %d %q has amount without revenue flag", phase, tt.Title)
			}
		}
	}
}

func TestLoadRejectsBadRoster(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	tmplRaw, err := os.ReadFile(filepath.Join(repoConfigs, "task_templates.json"))
	if err != nil {
		t.Fatalf("read templates: %v", err)
	}
	write("task_templates.json", string(tmplRaw))

	// Wrong headcount.
	write("roster.json", `[{"id":"DEV-001","name":"A","title":"T","department":"development","seniority":"L5","fte_percent":100,"skills":{"backend":50},"personality":"builder","desk":[0,0]}]`)
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "roles") {
		t.Fatalf("short roster accepted: %v", err)
	}

	// Schema violation: bad seniority.
	rosterRaw, err := os.ReadFile(filepath.Join(repoConfigs, "roster.json"))
	if err != nil {
		t.Fatalf("read roster: %v", err)
	}
	write("roster.json", strings.Replace(string(rosterRaw), `"L7"`, `"VP"`, 1))
	if _, err := Load(dir); err == nil {
		t.Fatal("bad seniority accepted")
	}
}

// The loader validates against embedded copies of the published schema files
// so a missing schemas/ directory can never break startup. The copies must
// stay in sync with the files.
func TestEmbeddedSchemasMatchPublished(t *testing.T) {
	cases := []struct {
		file     string
		embedded string
	}{
		{"roster.schema.json", rosterSchema},
		{"task_templates.schema.json", templatesSchema},
	}
	for _, c := range cases {
		raw, err := os.ReadFile(filepath.Join("..", "..", "..", "schemas", c.file))
		if err != nil {
			t.Fatalf("read %s: %v", c.file, err)
		}
		if strings.TrimSpace(string(raw)) != strings.TrimSpace(c.embedded) {
			t.Errorf("schemas/%s drifted from the embedded copy", c.file)
		}
	}
}

func TestLoadRejectsDuplicatePhase(t *testing.T) {
	dir := t.TempDir()
	rosterRaw, err := os.ReadFile(filepath.Join(repoConfigs, "roster.json"))
	if err != nil {
		t.Fatalf("read roster: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "roster.json"), rosterRaw, 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	dup := `[
		{"phase":0,"tasks":[{"title":"a","tag":"intake","priority":"low","estimated_hours":1}]},
		{"phase":0,"tasks":[{"title":"b","tag":"intake","priority":"low","estimated_hours":1}]},
		{"phase":1,"tasks":[{"title":"c","tag":"discovery","priority":"low","estimated_hours":1}]},
		{"phase":2,"tasks":[{"title":"d","tag":"architecture","priority":"low","estimated_hours":1}]},
		{"phase":3,"tasks":[{"title":"e","tag":"mvp","priority":"low","estimated_hours":1}]},
		{"phase":4,"tasks":[{"title":"f","tag":"beta","priority":"low","estimated_hours":1}]},
		{"phase":5,"tasks":[{"title":"g","tag":"hardening","priority":"low","estimated_hours":1}]},
		{"phase":6,"tasks":[{"title":"h","tag":"launch","priority":"low","estimated_hours":1}]},
		{"phase":7,"tasks":[{"title":"i","tag":"scale","priority":"low","estimated_hours":1}]}
	]`
	if err := os.WriteFile(filepath.Join(dir, "task_templates.json"), []byte(dup), 0o644); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "duplicate phase") {
		t.Fatalf("duplicate phase accepted: %v", err)
	}
}
