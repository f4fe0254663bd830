package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"robogrid.ai/internal/sim/world"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_RepoConfig(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning.yaml: %v", err)
	}
	if tu.Program != "disperse" || tu.Size != 4 || tu.Placement != "stacked" {
		t.Fatalf("unexpected tuning: %+v", tu)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	tu, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu != Defaults() {
		t.Fatalf("got %+v want defaults", tu)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	tu, err := Load(writeYAML(t, "size: 7\nunoriented: true\nprogram: wander\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.Size != 7 || !tu.Unoriented || tu.Program != "wander" {
		t.Fatalf("overlay lost: %+v", tu)
	}
	if tu.TickRateHz != Defaults().TickRateHz {
		t.Fatalf("default tick rate lost: %d", tu.TickRateHz)
	}
	cfg := tu.WorldConfig()
	if cfg.Size != 7 || !cfg.Unoriented || cfg.Placement != world.PlaceRandom {
		t.Fatalf("world config: %+v", cfg)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"zero size", "size: 0\n", "tuning.yaml"},
		{"unknown key", "sizee: 4\n", "tuning.yaml"},
		{"bad program", "program: teleport\n", "tuning.yaml"},
		{"fault rate", "fault_rate: 2\n", "tuning.yaml"},
		{"stack outside", "size: 3\nplacement: stacked\nstack_row: 3\n", "stack position"},
	}
	for _, tc := range cases {
		_, err := Load(writeYAML(t, tc.body))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want substring %q", tc.name, err, tc.want)
		}
	}
}
