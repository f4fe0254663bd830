package world

import "fmt"

// AgentID is totally ordered and used only to break symmetry, never to address.
type AgentID int

// Memory holds the engine-reserved part of an agent's private memory.
// Program-specific state lives in the agent's data record (see DataOf).
type Memory struct {
	Cycle      uint64 // rounds executed by this agent
	Checkpoint uint64 // Cycle at the last phase transition that asked for it
	Phase      Phase
	Done       bool
}

type Agent struct {
	id   AgentID
	mem  Memory
	data any
	prog *Program

	at *Node

	deferred    Action
	hasDeferred bool
	violation   error
	executing   bool
}

// NewAgent builds an unplaced agent. data is the program's own typed record
// (a pointer) and may be nil for programs without extra state.
func NewAgent(id AgentID, prog *Program, data any) *Agent {
	a := &Agent{id: id, prog: prog, data: data}
	if prog != nil {
		a.mem.Phase = prog.Initial
	}
	return a
}

func (a *Agent) ID() AgentID       { return a.id }
func (a *Agent) Memory() Memory    { return a.mem }
func (a *Agent) Data() any         { return a.data }
func (a *Agent) Program() *Program { return a.prog }
func (a *Agent) Location() *Node   { return a.at }
func (a *Agent) Cycle() uint64     { return a.mem.Cycle }
func (a *Agent) Phase() Phase      { return a.mem.Phase }
func (a *Agent) Done() bool        { return a.mem.Done }
func (a *Agent) Pending() Action   { return a.deferred }
func (a *Agent) Elapsed() uint64   { return a.mem.Cycle - a.mem.Checkpoint }
func (a *Agent) SetCheckpoint()    { a.mem.Checkpoint = a.mem.Cycle }
func (a *Agent) MarkDone()         { a.mem.Done = true }
func (a *Agent) Goto(next Phase)   { a.mem.Phase = next }

// Defer records the action to apply in this round's execute phase.
// A second call in the same round is reported when the step returns.
func (a *Agent) Defer(act Action) {
	if a.hasDeferred {
		a.violation = fmt.Errorf("%w: had %s, got %s", ErrDoubleDefer, a.deferred, act)
		return
	}
	a.deferred = act
	a.hasDeferred = true
}

// DataOf returns the agent's data record as *T. A mismatch is a wiring bug.
func DataOf[T any](a *Agent) *T {
	p, ok := a.data.(*T)
	if !ok {
		panic(fmt.Sprintf("world: agent %d carries %T, want %T", a.id, a.data, (*T)(nil)))
	}
	return p
}

func (a *Agent) runCompute() error {
	if a.prog == nil {
		return ErrNilProgram
	}
	if a.at == nil {
		return ErrNotPlaced
	}
	step, err := a.prog.lookup(a.mem.Phase)
	if err != nil {
		return err
	}
	// A round aborted by another agent's error may have left a slot filled.
	a.deferred = NoOp
	a.hasDeferred = false
	a.violation = nil
	if step != nil {
		if err := step(a, a.at); err != nil {
			return err
		}
	}
	return a.violation
}

// runExecute applies the deferred action and advances the agent's clock.
func (a *Agent) runExecute() (moved bool, err error) {
	act := a.deferred
	a.deferred = NoOp
	a.hasDeferred = false

	if act.Kind == ActMove {
		if a.at == nil {
			return false, ErrNotPlaced
		}
		to := a.at.Neighbor(act.Port)
		if to == nil {
			return false, fmt.Errorf("%w: port %d on a degree-%d node", ErrNoSuchPort, act.Port, a.at.Degree())
		}
		a.executing = true
		err = a.move(to)
		a.executing = false
		if err != nil {
			return false, err
		}
		moved = true
	}
	a.mem.Cycle++
	return moved, nil
}

// move relocates the agent atomically with respect to occupant sets.
// It is only legal while the agent is executing.
func (a *Agent) move(to *Node) error {
	if !a.executing {
		return ErrMoveOutsideExecute
	}
	a.at.remove(a)
	a.at = to
	to.add(a)
	return nil
}

func (a *Agent) place(n *Node) {
	if a.at != nil {
		a.at.remove(a)
	}
	a.at = n
	if n != nil {
		n.add(a)
	}
}
