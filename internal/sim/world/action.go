package world

import "fmt"

type ActionKind uint8

const (
	ActNoOp ActionKind = iota
	ActMove
)

// Action is the decision a program leaves for the execute phase.
type Action struct {
	Kind ActionKind
	Port int
}

// NoOp is the empty deferred action.
var NoOp = Action{}

// MoveTo moves the agent through port at execute time.
func MoveTo(port int) Action { return Action{Kind: ActMove, Port: port} }

func (a Action) String() string {
	switch a.Kind {
	case ActNoOp:
		return "NOOP"
	case ActMove:
		return fmt.Sprintf("MOVE_TO(%d)", a.Port)
	default:
		return fmt.Sprintf("Action(%d)", a.Kind)
	}
}
