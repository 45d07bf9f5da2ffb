package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RosterSize is the fixed headcount of every simulated company.
const RosterSize = 25

type Catalogs struct {
	Roster    RosterCatalog
	Templates TemplateCatalog
}

type RosterCatalog struct {
	Roles  []Role // sorted by id
	ByID   map[string]Role
	Digest string
}

// Role is one immutable worker-role definition. Loaded once at process start
// and shared read-only across every project.
type Role struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Department  string         `json:"department"`
	Seniority   string         `json:"seniority"` // L5..L9
	FTEPercent  int            `json:"fte_percent"`
	Skills      map[string]int `json:"skills"` // proficiency 0..100
	Personality string         `json:"personality"`
	Desk        [2]int         `json:"desk"`
}

type TemplateCatalog struct {
	Phases map[int][]TaskTemplate
	Digest string
}

// TaskTemplate seeds one backlog task at project start or phase transition.
// Recurring templates respawn a fresh copy whenever an instance completes.
type TaskTemplate struct {
	Title          string         `json:"title"`
	Tag            string         `json:"tag"`
	Priority       string         `json:"priority"` // urgent, high, medium, low
	RequiredSkills map[string]int `json:"required_skills,omitempty"`
	EstimatedHours int            `json:"estimated_hours"`
	Revenue        bool           `json:"revenue,omitempty"`
	RevenueMinor   int64          `json:"revenue_minor,omitempty"`
	Recurring      bool           `json:"recurring,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadRoster(filepath.Join(configDir, "roster.json"), &c.Roster); err != nil {
		return nil, err
	}
	if err := loadTemplates(filepath.Join(configDir, "task_templates.json"), &c.Templates); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadRoster(path string, out *RosterCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validateAgainst(rosterSchema, "roster.schema.json", raw); err != nil {
		return fmt.Errorf("roster.json: %w", err)
	}

	var roles []Role
	if err := json.Unmarshal(raw, &roles); err != nil {
		return fmt.Errorf("roster.json: %w", err)
	}
	if len(roles) != RosterSize {
		return fmt.Errorf("roster.json: want %d roles, have %d", RosterSize, len(roles))
	}

	out.ByID = make(map[string]Role, len(roles))
	for _, r := range roles {
		if _, dup := out.ByID[r.ID]; dup {
			return fmt.Errorf("roster.json: duplicate id %s", r.ID)
		}
		for skill, v := range r.Skills {
			if v < 0 || v > 100 {
				return fmt.Errorf("roster.json: %s: skill %s out of range: %d", r.ID, skill, v)
			}
		}
		out.ByID[r.ID] = r
	}

	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	out.Roles = roles
	return nil
}

func loadTemplates(path string, out *TemplateCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validateAgainst(templatesSchema, "task_templates.schema.json", raw); err != nil {
		return fmt.Errorf("task_templates.json: %w", err)
	}

	var defs []struct {
		Phase int            `json:"phase"`
		Tasks []TaskTemplate `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("task_templates.json: %w", err)
	}

	out.Phases = make(map[int][]TaskTemplate, len(defs))
	for _, d := range defs {
		if _, dup := out.Phases[d.Phase]; dup {
			return fmt.Errorf("task_templates.json: duplicate phase %d", d.Phase)
		}
		out.Phases[d.Phase] = d.Tasks
	}
	for phase := 0; phase <= 7; phase++ {
		if _, ok := out.Phases[phase]; !ok {
			return fmt.Errorf("task_templates.json: missing phase %d", phase)
		}
	}
	return nil
}

func validateAgainst(schemaJSON, name string, raw []byte) error {
	schema, err := jsonschema.CompileString(name, schemaJSON)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}
