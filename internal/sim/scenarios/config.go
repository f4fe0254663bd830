package scenarios

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"robogrid.ai/internal/sim/programs"
	"robogrid.ai/internal/sim/world"
)

// Config is the benchmark matrix: every scenario is run for every size,
// Samples times each.
type Config struct {
	Samples   int            `yaml:"samples"`
	BaseSeed  int64          `yaml:"base_seed"`
	MaxRounds int            `yaml:"max_rounds"` // per run; 0 derives 40·size+40
	Scenarios []ScenarioSpec `yaml:"scenarios"`
}

type ScenarioSpec struct {
	ID         string  `yaml:"id"`
	Program    string  `yaml:"program"`
	Sizes      []int   `yaml:"sizes"`
	Agents     int     `yaml:"agents"`
	Unoriented bool    `yaml:"unoriented"`
	Placement  string  `yaml:"placement"`
	FaultRate  float64 `yaml:"fault_rate"`
	SeedOffset int64   `yaml:"seed_offset"`
}

// Run is one sample of one scenario at one size.
type Run struct {
	ScenarioID string
	Sample     int
	MaxRounds  int
	World      world.Config
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("scenarios.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("scenarios.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Samples:  20,
		BaseSeed: 1,
		Scenarios: []ScenarioSpec{
			{ID: "disperse_random", Program: "disperse", Sizes: []int{2, 3, 4, 5, 6, 8, 10}, Placement: "random"},
			{ID: "disperse_stacked", Program: "disperse", Sizes: []int{2, 4, 8}, Placement: "stacked", SeedOffset: 1000},
			{ID: "measure_random", Program: "measure", Sizes: []int{2, 4, 8, 16}, Placement: "random", SeedOffset: 2000},
			{ID: "wander_unoriented", Program: "wander", Sizes: []int{3, 5, 7, 9}, Unoriented: true, Placement: "random", SeedOffset: 3000},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if c.Samples <= 0 {
		c.Samples = 1
	}
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		s.Program = strings.ToLower(strings.TrimSpace(s.Program))
		if strings.TrimSpace(s.ID) == "" {
			s.ID = fmt.Sprintf("%s_%d", s.Program, i)
		}
		if s.Placement == "" {
			s.Placement = string(world.PlaceRandom)
		}
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("scenarios must not be empty")
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be >= 0")
	}
	seen := map[string]bool{}
	for _, s := range c.Scenarios {
		if seen[s.ID] {
			return fmt.Errorf("duplicate scenario id: %s", s.ID)
		}
		seen[s.ID] = true
		if _, err := programs.Lookup(s.Program); err != nil {
			return fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		if len(s.Sizes) == 0 {
			return fmt.Errorf("scenario %s must list at least one size", s.ID)
		}
		for _, n := range s.Sizes {
			if n <= 0 {
				return fmt.Errorf("scenario %s size %d must be > 0", s.ID, n)
			}
		}
		if s.Agents < 0 {
			return fmt.Errorf("scenario %s agents must be >= 0", s.ID)
		}
		if s.FaultRate < 0 || s.FaultRate > 1 {
			return fmt.Errorf("scenario %s fault_rate must be in [0,1]", s.ID)
		}
		switch world.Placement(s.Placement) {
		case world.PlaceRandom, world.PlaceStacked:
		default:
			return fmt.Errorf("scenario %s unknown placement %q", s.ID, s.Placement)
		}
	}
	return nil
}

// Expand lists every run of the matrix in a stable order. Seeds differ per
// scenario, size and sample so runs are independent and reproducible.
func (c Config) Expand() []Run {
	var out []Run
	for _, s := range c.Scenarios {
		for _, n := range s.Sizes {
			limit := c.MaxRounds
			if limit == 0 {
				limit = 40*n + 40
			}
			for k := 0; k < c.Samples; k++ {
				out = append(out, Run{
					ScenarioID: s.ID,
					Sample:     k,
					MaxRounds:  limit,
					World: world.Config{
						ID:         fmt.Sprintf("%s_n%d_s%d", s.ID, n, k),
						Program:    s.Program,
						Size:       n,
						Agents:     s.Agents,
						Unoriented: s.Unoriented,
						Placement:  world.Placement(s.Placement),
						FaultRate:  s.FaultRate,
						Seed:       c.BaseSeed + s.SeedOffset + int64(n)*7919 + int64(k),
					},
				})
			}
		}
	}
	return out
}
