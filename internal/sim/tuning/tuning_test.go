package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadRepoConfig(t *testing.T) {
	tun, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tun.Clock.SimHoursPerRealSecond != 1 {
		t.Fatalf("sim_hours_per_real_second = %d, want 1", tun.Clock.SimHoursPerRealSecond)
	}
	if tun.Finance.StartingReservesMinor != 45_000_000 {
		t.Fatalf("starting_reserves_minor = %d", tun.Finance.StartingReservesMinor)
	}
}

func TestLoadPartialOverridesOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "clock:\n  sim_hours_per_real_second: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tun, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tun.Clock.SimHoursPerRealSecond != 4 {
		t.Fatalf("override not applied: %d", tun.Clock.SimHoursPerRealSecond)
	}
	def := Defaults()
	if tun.Phases.MVPTasks != def.Phases.MVPTasks {
		t.Fatalf("untouched field changed: %d", tun.Phases.MVPTasks)
	}
	if tun.Finance.OperatingCostPerAgentHourMinor != def.Finance.OperatingCostPerAgentHourMinor {
		t.Fatalf("untouched field changed: %d", tun.Finance.OperatingCostPerAgentHourMinor)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Tuning)
		want   string
	}{
		{"zero clock rate", func(t *Tuning) { t.Clock.SimHoursPerRealSecond = 0 }, "sim_hours_per_real_second"},
		{"short max_days", func(t *Tuning) { t.Phases.MaxDays = []int{1, 2, 3} }, "max_days"},
		{"short multipliers", func(t *Tuning) { t.Finance.RevenueMultiplierPermille = nil }, "revenue_multiplier_permille"},
		{"negative multiplier", func(t *Tuning) { t.Finance.RevenueMultiplierPermille[3] = -1 }, "revenue_multiplier_permille"},
		{"chatter above one", func(t *Tuning) { t.Decisions.IdleChatterPerTick = 1.5 }, "idle_chatter_per_tick"},
		{"unknown provider", func(t *Tuning) { t.Narrative.Provider = "cohere" }, "narrative.provider"},
	}
	for _, tc := range cases {
		tun := Defaults()
		tc.mutate(&tun)
		err := tun.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want contains %q", tc.name, err, tc.want)
		}
	}
}
