package scenarios

import (
	"strings"
	"testing"
)

func TestLoad_RepoScenarios(t *testing.T) {
	cfg, err := Load("../../../configs/scenarios.yaml")
	if err != nil {
		t.Fatalf("load scenarios.yaml: %v", err)
	}
	if len(cfg.Scenarios) == 0 || cfg.Samples <= 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestNormalize_FillsIDsAndPlacement(t *testing.T) {
	cfg := Config{Scenarios: []ScenarioSpec{{Program: " Disperse ", Sizes: []int{3}}}}
	cfg.Normalize()
	s := cfg.Scenarios[0]
	if s.ID != "disperse_0" || s.Placement != "random" || cfg.Samples != 1 {
		t.Fatalf("normalize: %+v samples=%d", s, cfg.Samples)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"empty", Config{}, "must not be empty"},
		{"unknown program", Config{Scenarios: []ScenarioSpec{{ID: "a", Program: "fly", Sizes: []int{2}}}}, "unknown program"},
		{"no sizes", Config{Scenarios: []ScenarioSpec{{ID: "a", Program: "measure"}}}, "at least one size"},
		{"bad size", Config{Scenarios: []ScenarioSpec{{ID: "a", Program: "measure", Sizes: []int{0}}}}, "must be > 0"},
		{"duplicate", Config{Scenarios: []ScenarioSpec{
			{ID: "a", Program: "measure", Sizes: []int{2}},
			{ID: "a", Program: "wander", Sizes: []int{2}},
		}}, "duplicate"},
		{"fault rate", Config{Scenarios: []ScenarioSpec{{ID: "a", Program: "measure", Sizes: []int{2}, FaultRate: -1}}}, "fault_rate"},
		{"placement", Config{Scenarios: []ScenarioSpec{{ID: "a", Program: "measure", Sizes: []int{2}, Placement: "ring"}}}, "placement"},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want %q", tc.name, err, tc.want)
		}
	}
}

func TestExpand(t *testing.T) {
	cfg := Config{
		Samples:  3,
		BaseSeed: 10,
		Scenarios: []ScenarioSpec{
			{ID: "a", Program: "disperse", Sizes: []int{2, 4}},
			{ID: "b", Program: "wander", Sizes: []int{5}, Unoriented: true, SeedOffset: 100},
		},
	}
	cfg.Normalize()
	runs := cfg.Expand()
	if len(runs) != 9 {
		t.Fatalf("runs=%d want 9", len(runs))
	}
	seeds := map[int64]bool{}
	for _, r := range runs {
		if seeds[r.World.Seed] {
			t.Fatalf("seed %d reused", r.World.Seed)
		}
		seeds[r.World.Seed] = true
	}
	last := runs[8]
	if last.ScenarioID != "b" || !last.World.Unoriented || last.World.Size != 5 || last.MaxRounds != 240 {
		t.Fatalf("last run: %+v", last)
	}
	if runs[0].World.ID != "a_n2_s0" {
		t.Fatalf("first id %q", runs[0].World.ID)
	}
}
