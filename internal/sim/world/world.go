package world

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync/atomic"
)

type Placement string

const (
	PlaceRandom  Placement = "random"
	PlaceStacked Placement = "stacked"
)

type Config struct {
	ID      string
	Program string // informational; recorded in snapshots and logs

	Size       int
	Agents     int // 0 means Size*Size
	Unoriented bool

	Placement          Placement
	StackRow, StackCol int

	FaultRate    float64 // probability per round of removing one agent
	Seed         int64
	Workers      int  // >1 runs compute/execute concurrently
	ShuffleOrder bool // shuffle agent order every round
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = "world_1"
	}
	if c.Agents == 0 {
		c.Agents = c.Size * c.Size
	}
	if c.Placement == "" {
		c.Placement = PlaceRandom
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}

func (c Config) validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, c.Size)
	}
	if c.Agents < 0 {
		return fmt.Errorf("%w: agents must be >= 0", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}
	if c.FaultRate < 0 || c.FaultRate > 1 {
		return fmt.Errorf("%w: fault rate %v not in [0,1]", ErrInvalidConfig, c.FaultRate)
	}
	switch c.Placement {
	case PlaceRandom:
	case PlaceStacked:
		if c.StackRow < 0 || c.StackCol < 0 || c.StackRow >= c.Size || c.StackCol >= c.Size {
			return fmt.Errorf("%w: stack position (%d,%d) outside %dx%d grid", ErrInvalidConfig, c.StackRow, c.StackCol, c.Size, c.Size)
		}
	default:
		return fmt.Errorf("%w: unknown placement %q", ErrInvalidConfig, c.Placement)
	}
	return nil
}

// AgentFactory builds the agent with the given id. It must not place it.
type AgentFactory func(id AgentID) *Agent

// RoundLogger receives one entry per completed round.
type RoundLogger interface {
	WriteRound(entry RoundLogEntry) error
}

type RoundLogEntry struct {
	WorldID    string    `json:"world_id"`
	Round      uint64    `json:"round"`
	Population int       `json:"population"`
	Moves      int       `json:"moves"`
	Removed    []AgentID `json:"removed,omitempty"`
	Done       bool      `json:"done"`
	Digest     string    `json:"digest,omitempty"`

	// LogErr is what the round logger returned for this entry. It never
	// aborts the round.
	LogErr error `json:"-"`
}

// World owns the grid and the agent population and advances them one
// synchronous round at a time. It is driven from a single goroutine; Workers
// only parallelise inside a round.
type World struct {
	cfg  Config
	grid *Grid

	agents []*Agent // ascending id
	byID   map[AgentID]*Agent

	round atomic.Uint64

	roundLogger RoundLogger
}

// NewWorld builds a size×size world with size² uniformly placed agents.
func NewWorld(size int, factory AgentFactory) (*World, error) {
	return New(Config{Size: size}, factory)
}

func New(cfg Config, factory AgentFactory) (*World, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	grid, err := BuildGrid(cfg.Size)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Unoriented {
		grid.Unorient(rng)
	}

	w := &World{
		cfg:  cfg,
		grid: grid,
		byID: make(map[AgentID]*Agent, cfg.Agents),
	}

	nodes := grid.Nodes()
	for i := 0; i < cfg.Agents; i++ {
		a := factory(AgentID(i))
		if a == nil {
			return nil, fmt.Errorf("%w: factory returned nil for agent %d", ErrInvalidConfig, i)
		}
		if err := w.adopt(a); err != nil {
			return nil, err
		}
		switch cfg.Placement {
		case PlaceStacked:
			a.place(grid.Node(cfg.StackRow, cfg.StackCol))
		default:
			a.place(nodes[rng.Intn(len(nodes))])
		}
	}
	w.sortAgents()
	return w, nil
}

func (w *World) adopt(a *Agent) error {
	if _, dup := w.byID[a.id]; dup {
		return fmt.Errorf("%w: duplicate agent id %d", ErrInvalidConfig, a.id)
	}
	w.byID[a.id] = a
	w.agents = append(w.agents, a)
	return nil
}

func (w *World) sortAgents() {
	sort.Slice(w.agents, func(i, j int) bool { return w.agents[i].id < w.agents[j].id })
}

func (w *World) SetRoundLogger(l RoundLogger) { w.roundLogger = l }

func (w *World) Config() Config    { return w.cfg }
func (w *World) Grid() *Grid       { return w.grid }
func (w *World) Round() uint64     { return w.round.Load() }
func (w *World) Population() int   { return len(w.agents) }
func (w *World) Snapshot() [][]int { return w.grid.Occupancy() }

// Agents returns the surviving population ordered by id.
func (w *World) Agents() []*Agent {
	return append([]*Agent(nil), w.agents...)
}

func (w *World) Agent(id AgentID) *Agent { return w.byID[id] }

// Locate reports the grid position of an agent. Harness use only.
func (w *World) Locate(id AgentID) (row, col int, ok bool) {
	a := w.byID[id]
	if a == nil || a.at == nil {
		return 0, 0, false
	}
	return a.at.row, a.at.col, true
}

// Done reports whether every surviving agent has recorded the done marker.
func (w *World) Done() bool {
	for _, a := range w.agents {
		if !a.mem.Done {
			return false
		}
	}
	return true
}

// RemoveAgent takes an agent out of its node and the population for good.
func (w *World) RemoveAgent(id AgentID) bool {
	a := w.byID[id]
	if a == nil {
		return false
	}
	if a.at != nil {
		a.at.remove(a)
		a.at = nil
	}
	delete(w.byID, id)
	i := sort.Search(len(w.agents), func(i int) bool { return w.agents[i].id >= id })
	if i < len(w.agents) && w.agents[i] == a {
		w.agents = append(w.agents[:i], w.agents[i+1:]...)
	}
	return true
}
