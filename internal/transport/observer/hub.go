package observer

import (
	"encoding/json"
	"sync"

	"robogrid.ai/internal/protocol"
	"robogrid.ai/internal/sim/encoding"
	"robogrid.ai/internal/sim/world"
)

// Hub fans occupancy frames out to observers. Publish never blocks: every
// subscriber holds at most one pending frame and a newer frame replaces it.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber

	latest    protocol.FrameMsg
	latestRaw []byte
	latestRLE []byte
}

type subscriber struct {
	every   int
	compact bool
	out     chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: map[uint64]*subscriber{}}
}

// NewFrame captures the world after the round described by e. It reads the
// grid, so call it from the goroutine that drives the world.
func NewFrame(w *world.World, e world.RoundLogEntry) protocol.FrameMsg {
	return protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		WorldID:         e.WorldID,
		Program:         w.Config().Program,
		Round:           e.Round,
		Population:      e.Population,
		Moves:           e.Moves,
		Done:            e.Done,
		Grid:            w.Snapshot(),
	}
}

func (h *Hub) Publish(f protocol.FrameMsg) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	c, err := json.Marshal(compactFrame(f))
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest, h.latestRaw, h.latestRLE = f, b, c
	for _, s := range h.subs {
		if f.Done || f.Round%uint64(s.every) == 0 {
			offer(s.out, s.pick(b, c))
		}
	}
}

// compactFrame swaps the grid for its run-length encoding.
func compactFrame(f protocol.FrameMsg) protocol.FrameMsg {
	if f.Grid == nil {
		return f
	}
	f.Size = len(f.Grid)
	f.GridRLE = encoding.EncodeGrid(f.Grid)
	f.Grid = nil
	return f
}

func (s *subscriber) pick(full, compact []byte) []byte {
	if s.compact {
		return compact
	}
	return full
}

// offer replaces whatever frame is pending. Only Publish and subscribe send,
// both under h.mu, so the slot cannot be refilled between drain and send.
func offer(ch chan []byte, b []byte) {
	select {
	case <-ch:
	default:
	}
	ch <- b
}

func (h *Hub) subscribe(every int, compact bool) (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &subscriber{every: normalizeEvery(every), compact: compact, out: make(chan []byte, 1)}
	h.subs[h.nextID] = s
	if h.latestRaw != nil {
		offer(s.out, s.pick(h.latestRaw, h.latestRLE))
	}
	return h.nextID, s.out
}

func (h *Hub) update(id uint64, every int, compact bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s := h.subs[id]; s != nil {
		s.every = normalizeEvery(every)
		s.compact = compact
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Latest returns the most recently published frame.
func (h *Hub) Latest() (protocol.FrameMsg, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.latestRaw != nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func normalizeEvery(every int) int {
	if every <= 0 {
		return 1
	}
	if every > 10000 {
		return 10000
	}
	return every
}
