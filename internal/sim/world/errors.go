package world

import (
	"errors"
	"fmt"
)

// Configuration errors. Returned from New; a world is never built from a bad config.
var (
	ErrInvalidSize   = errors.New("grid size must be > 0")
	ErrNilFactory    = errors.New("nil agent factory")
	ErrInvalidConfig = errors.New("invalid world config")
)

// Invariant violations. These are defects in an agent program and abort the round.
var (
	ErrMoveOutsideExecute = errors.New("move outside execute phase")
	ErrNoSuchPort         = errors.New("no such port")
	ErrDoubleDefer        = errors.New("action already deferred this round")
	ErrUnknownPhase       = errors.New("unknown phase")
	ErrNilProgram         = errors.New("agent has no program")
	ErrNotPlaced          = errors.New("agent is not placed on the grid")
)

// InvariantError reports which agent broke the round contract and where.
type InvariantError struct {
	Round   uint64
	AgentID AgentID
	Stage   string // "compute" or "execute"
	Err     error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("round %d: agent %d: %s: %v", e.Round, e.AgentID, e.Stage, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
