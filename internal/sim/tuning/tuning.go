package tuning

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"robogrid.ai/internal/sim/world"
)

//go:embed tuning.schema.json
var schemaJSON string

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	WorldID    string  `yaml:"world_id" json:"world_id"`
	Program    string  `yaml:"program" json:"program"`
	Size       int     `yaml:"size" json:"size"`
	Agents     int     `yaml:"agents" json:"agents"`
	Unoriented bool    `yaml:"unoriented" json:"unoriented"`
	Placement  string  `yaml:"placement" json:"placement"`
	StackRow   int     `yaml:"stack_row" json:"stack_row"`
	StackCol   int     `yaml:"stack_col" json:"stack_col"`
	FaultRate  float64 `yaml:"fault_rate" json:"fault_rate"`
	Seed       int64   `yaml:"seed" json:"seed"`

	Workers      int  `yaml:"workers" json:"workers"`
	ShuffleOrder bool `yaml:"shuffle_order" json:"shuffle_order"`

	TickRateHz          int    `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	MaxRounds           uint64 `yaml:"max_rounds" json:"max_rounds"`
	SnapshotEveryRounds uint64 `yaml:"snapshot_every_rounds" json:"snapshot_every_rounds"`
	ObserverEvery       int    `yaml:"observer_every" json:"observer_every"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		WorldID:             "world_1",
		Program:             "disperse",
		Size:                4,
		Placement:           string(world.PlaceRandom),
		Seed:                1,
		Workers:             1,
		TickRateHz:          10,
		SnapshotEveryRounds: 50,
		ObserverEvery:       1,
	}
}

// Load reads a tuning file on top of Defaults. A missing file yields the
// defaults; anything present is schema-checked before decoding.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := validateSchema(raw); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

var schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("tuning.schema.json", schemaJSON)
})

// validateSchema checks the YAML document against the embedded schema. YAML is
// decoded generically and round-tripped through JSON so the validator sees
// plain JSON types.
func validateSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, err := schema()
	if err != nil {
		return err
	}
	return s.Validate(v)
}

// Validate checks what the schema cannot express.
func (t Tuning) Validate() error {
	if t.Placement == string(world.PlaceStacked) {
		if t.StackRow >= t.Size || t.StackCol >= t.Size {
			return fmt.Errorf("stack position (%d,%d) outside %dx%d grid", t.StackRow, t.StackCol, t.Size, t.Size)
		}
	}
	return nil
}

// WorldConfig maps the tuning onto an engine config.
func (t Tuning) WorldConfig() world.Config {
	return world.Config{
		ID:           t.WorldID,
		Program:      t.Program,
		Size:         t.Size,
		Agents:       t.Agents,
		Unoriented:   t.Unoriented,
		Placement:    world.Placement(t.Placement),
		StackRow:     t.StackRow,
		StackCol:     t.StackCol,
		FaultRate:    t.FaultRate,
		Seed:         t.Seed,
		Workers:      t.Workers,
		ShuffleOrder: t.ShuffleOrder,
	}
}

func (t Tuning) RunConfig() world.RunConfig {
	return world.RunConfig{
		TickRateHz:          t.TickRateHz,
		MaxRounds:           t.MaxRounds,
		SnapshotEveryRounds: t.SnapshotEveryRounds,
	}
}
