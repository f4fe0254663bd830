package world

import "fmt"

// Phase is a program-defined state tag. The zero value is never used by shipped programs.
type Phase uint8

// Step is one round of behavior for one phase. It runs in the compute phase:
// it may read at (ports, neighbors, occupants), mutate the agent's own memory
// and data, and Defer an action. It must not move anything.
type Step func(a *Agent, at *Node) error

// Program is a state machine expressed as a dispatch table keyed by phase.
// A phase mapped to a nil step is idle.
type Program struct {
	Name    string
	Initial Phase
	Steps   map[Phase]Step
	Names   map[Phase]string
}

func (p *Program) PhaseName(ph Phase) string {
	if p != nil {
		if s, ok := p.Names[ph]; ok {
			return s
		}
	}
	return fmt.Sprintf("phase_%d", ph)
}

func (p *Program) lookup(ph Phase) (Step, error) {
	step, ok := p.Steps[ph]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", ErrUnknownPhase, p.Name, p.PhaseName(ph))
	}
	return step, nil
}
