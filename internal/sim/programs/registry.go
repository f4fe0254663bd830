package programs

import (
	"fmt"
	"sort"
	"strings"

	"robogrid.ai/internal/sim/world"
)

var registry = map[string]world.AgentFactory{
	"disperse": func(id world.AgentID) *world.Agent { return world.NewAgent(id, Disperse, &State{}) },
	"measure":  func(id world.AgentID) *world.Agent { return world.NewAgent(id, Measure, &State{}) },
	"wander":   func(id world.AgentID) *world.Agent { return world.NewAgent(id, Wander, &WanderState{}) },
}

// Lookup returns the agent factory registered under name.
func Lookup(name string) (world.AgentFactory, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown program %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
