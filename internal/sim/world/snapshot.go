package world

import (
	"encoding/json"
	"fmt"

	"robogrid.ai/internal/persistence/snapshot"
)

// ExportSnapshot captures the world at the current round boundary.
func (w *World) ExportSnapshot() (snapshot.SnapshotV1, error) {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Round:   w.round.Load(),
		},
		Program:      w.cfg.Program,
		Size:         w.cfg.Size,
		Seed:         w.cfg.Seed,
		Unoriented:   !w.grid.oriented,
		FaultRate:    w.cfg.FaultRate,
		ShuffleOrder: w.cfg.ShuffleOrder,
	}
	if !w.grid.oriented {
		for _, nd := range w.grid.Nodes() {
			labels, dirs := nd.portTable()
			raw := make([]uint8, len(dirs))
			for i, d := range dirs {
				raw[i] = uint8(d)
			}
			snap.Ports = append(snap.Ports, snapshot.NodePortsV1{Row: nd.row, Col: nd.col, Labels: labels, Dirs: raw})
		}
	}
	snap.Agents = make([]snapshot.AgentV1, 0, len(w.agents))
	for _, a := range w.agents {
		if a.hasDeferred {
			return snapshot.SnapshotV1{}, fmt.Errorf("agent %d has a pending action; snapshots are taken between rounds", a.id)
		}
		av := snapshot.AgentV1{
			ID:         int(a.id),
			Cycle:      a.mem.Cycle,
			Checkpoint: a.mem.Checkpoint,
			Phase:      uint8(a.mem.Phase),
			Done:       a.mem.Done,
		}
		if a.at != nil {
			av.Row, av.Col = a.at.row, a.at.col
		}
		if a.data != nil {
			b, err := json.Marshal(a.data)
			if err != nil {
				return snapshot.SnapshotV1{}, fmt.Errorf("agent %d data: %w", a.id, err)
			}
			av.Data = b
		}
		snap.Agents = append(snap.Agents, av)
	}
	return snap, nil
}

// FromSnapshot rebuilds a world from snap. factory supplies each agent's program
// and an empty data record, which is then filled from the snapshot. Workers is
// a runtime choice and not stored.
func FromSnapshot(snap snapshot.SnapshotV1, workers int, factory AgentFactory) (*World, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	cfg := Config{
		ID:           snap.Header.WorldID,
		Program:      snap.Program,
		Size:         snap.Size,
		Agents:       len(snap.Agents),
		Unoriented:   snap.Unoriented,
		FaultRate:    snap.FaultRate,
		Seed:         snap.Seed,
		Workers:      workers,
		ShuffleOrder: snap.ShuffleOrder,
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}
	grid, err := BuildGrid(cfg.Size)
	if err != nil {
		return nil, err
	}
	if snap.Unoriented {
		if len(snap.Ports) != cfg.Size*cfg.Size {
			return nil, fmt.Errorf("%w: snapshot has %d port tables for %d nodes", ErrInvalidConfig, len(snap.Ports), cfg.Size*cfg.Size)
		}
		for _, p := range snap.Ports {
			nd := grid.Node(p.Row, p.Col)
			if nd == nil {
				return nil, fmt.Errorf("%w: port table for (%d,%d) outside grid", ErrInvalidConfig, p.Row, p.Col)
			}
			dirs := make([]Direction, len(p.Dirs))
			for i, d := range p.Dirs {
				dirs[i] = Direction(d)
			}
			if err := nd.setPortTable(p.Labels, dirs); err != nil {
				return nil, err
			}
		}
		grid.oriented = false
	}

	w := &World{
		cfg:  cfg,
		grid: grid,
		byID: make(map[AgentID]*Agent, len(snap.Agents)),
	}
	for _, av := range snap.Agents {
		a := factory(AgentID(av.ID))
		if a == nil {
			return nil, fmt.Errorf("%w: factory returned nil for agent %d", ErrInvalidConfig, av.ID)
		}
		if a.id != AgentID(av.ID) {
			return nil, fmt.Errorf("%w: factory built agent %d for id %d", ErrInvalidConfig, a.id, av.ID)
		}
		a.mem = Memory{
			Cycle:      av.Cycle,
			Checkpoint: av.Checkpoint,
			Phase:      Phase(av.Phase),
			Done:       av.Done,
		}
		if len(av.Data) > 0 && a.data != nil {
			if err := json.Unmarshal(av.Data, a.data); err != nil {
				return nil, fmt.Errorf("agent %d data: %w", av.ID, err)
			}
		}
		nd := grid.Node(av.Row, av.Col)
		if nd == nil {
			return nil, fmt.Errorf("%w: agent %d at (%d,%d) outside grid", ErrInvalidConfig, av.ID, av.Row, av.Col)
		}
		if err := w.adopt(a); err != nil {
			return nil, err
		}
		a.place(nd)
	}
	w.sortAgents()
	w.round.Store(snap.Header.Round)
	return w, nil
}
