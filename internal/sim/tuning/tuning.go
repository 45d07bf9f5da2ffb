package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Clock       Clock       `yaml:"clock"`
	Phases      Phases      `yaml:"phases"`
	Decisions   Decisions   `yaml:"decisions"`
	Finance     Finance     `yaml:"finance"`
	Narrative   Narrative   `yaml:"narrative"`
	Persistence Persistence `yaml:"persistence"`
}

type Clock struct {
	SimHoursPerRealSecond int `yaml:"sim_hours_per_real_second"`
	TickIntervalMs        int `yaml:"tick_interval_ms"`
}

// Phases holds gate thresholds and per-phase duration caps. MaxDays has one
// entry per phase 0..7; 0 means unlimited.
type Phases struct {
	MaxDays []int `yaml:"max_days"`

	IntakeTasks        int   `yaml:"intake_tasks"`
	DiscoveryTasks     int   `yaml:"discovery_tasks"`
	ArchitectureTasks  int   `yaml:"architecture_tasks"`
	MVPTasks           int   `yaml:"mvp_tasks"`
	BetaSatisfaction   int   `yaml:"beta_satisfaction"`
	FundingCapMinor    int64 `yaml:"funding_cap_minor"`
	HardeningTasks     int   `yaml:"hardening_tasks"`
	RevenueTargetMinor int64 `yaml:"revenue_target_minor"`
	SustainDays        int   `yaml:"sustain_days"`
}

type Decisions struct {
	MinAssignEnergy            int     `yaml:"min_assign_energy"`
	EnergyRegenPerTick         int     `yaml:"energy_regen_per_tick"`
	EnergyCostPerEstimatedHour int     `yaml:"energy_cost_per_estimated_hour"`
	IdleChatterPerTick         float64 `yaml:"idle_chatter_per_tick"`
	MoveStepPerTick            int     `yaml:"move_step_per_tick"`
}

type Finance struct {
	OperatingCostPerAgentHourMinor int64   `yaml:"operating_cost_per_agent_hour_minor"`
	StartingReservesMinor          int64   `yaml:"starting_reserves_minor"`
	RevenueMultiplierPermille      []int64 `yaml:"revenue_multiplier_permille"`
}

type Narrative struct {
	Provider  string `yaml:"provider"` // template, anthropic, openai
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type Persistence struct {
	SnapshotEverySimHours int `yaml:"snapshot_every_sim_hours"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Clock: Clock{
			SimHoursPerRealSecond: 1,
			TickIntervalMs:        1000,
		},
		Phases: Phases{
			MaxDays:            []int{1, 5, 3, 14, 7, 14, 1, 0},
			IntakeTasks:        1,
			DiscoveryTasks:     3,
			ArchitectureTasks:  3,
			MVPTasks:           5,
			BetaSatisfaction:   70,
			FundingCapMinor:    50_000_000,
			HardeningTasks:     4,
			RevenueTargetMinor: 10_000_000,
			SustainDays:        7,
		},
		Decisions: Decisions{
			MinAssignEnergy:            10,
			EnergyRegenPerTick:         5,
			EnergyCostPerEstimatedHour: 2,
			IdleChatterPerTick:         0.05,
			MoveStepPerTick:            25,
		},
		Finance: Finance{
			OperatingCostPerAgentHourMinor: 417,
			StartingReservesMinor:          45_000_000,
			RevenueMultiplierPermille:      []int64{0, 0, 0, 100, 250, 500, 1000, 1500},
		},
		Narrative: Narrative{
			Provider:  "template",
			MaxTokens: 256,
			TimeoutMs: 8000,
		},
		Persistence: Persistence{
			SnapshotEverySimHours: 24,
		},
	}
}

// Load reads path over Defaults, so partial files override only what they
// name.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Clock.SimHoursPerRealSecond < 1 {
		return fmt.Errorf("sim_hours_per_real_second must be >= 1, have %d", t.Clock.SimHoursPerRealSecond)
	}
	if t.Clock.TickIntervalMs < 1 {
		return fmt.Errorf("tick_interval_ms must be >= 1, have %d", t.Clock.TickIntervalMs)
	}
	if n := len(t.Phases.MaxDays); n != 8 {
		return fmt.Errorf("phases.max_days needs 8 entries, have %d", n)
	}
	for i, d := range t.Phases.MaxDays {
		if d < 0 {
			return fmt.Errorf("phases.max_days[%d] negative: %d", i, d)
		}
	}
	if n := len(t.Finance.RevenueMultiplierPermille); n != 8 {
		return fmt.Errorf("finance.revenue_multiplier_permille needs 8 entries, have %d", n)
	}
	for i, m := range t.Finance.RevenueMultiplierPermille {
		if m < 0 {
			return fmt.Errorf("finance.revenue_multiplier_permille[%d] negative: %d", i, m)
		}
	}
	if t.Finance.OperatingCostPerAgentHourMinor < 0 {
		return fmt.Errorf("finance.operating_cost_per_agent_hour_minor negative")
	}
	if t.Decisions.MinAssignEnergy < 0 || t.Decisions.MinAssignEnergy > 100 {
		return fmt.Errorf("decisions.min_assign_energy out of range: %d", t.Decisions.MinAssignEnergy)
	}
	if t.Decisions.IdleChatterPerTick < 0 || t.Decisions.IdleChatterPerTick > 1 {
		return fmt.Errorf("decisions.idle_chatter_per_tick out of range: %g", t.Decisions.IdleChatterPerTick)
	}
	switch t.Narrative.Provider {
	case "template", "anthropic", "openai":
	default:
		return fmt.Errorf("narrative.provider unknown: %q", t.Narrative.Provider)
	}
	return nil
}
