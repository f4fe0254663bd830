package protocol

// SubscribeMsg is the first message an observer sends. Every asks for one
// frame per Every rounds; 0 means the server default. Compact asks for
// run-length encoded grids.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Every           int    `json:"every,omitempty"`
	Compact         bool   `json:"compact,omitempty"`
}

// FrameMsg is the occupancy of the whole grid after a round. Exactly one of
// Grid and GridRLE is set; GridRLE is row-major with Size cells per row.
type FrameMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	WorldID         string  `json:"world_id"`
	Program         string  `json:"program,omitempty"`
	Round           uint64  `json:"round"`
	Population      int     `json:"population"`
	Moves           int     `json:"moves"`
	Done            bool    `json:"done"`
	Grid            [][]int `json:"grid,omitempty"`
	Size            int     `json:"size,omitempty"`
	GridRLE         string  `json:"grid_rle,omitempty"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// BootstrapResponse describes the world an observer is about to subscribe to.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Program         string      `json:"program"`
	WorldParams     WorldParams `json:"world_params"`
	Round           uint64      `json:"round"`
	Population      int         `json:"population"`
	Done            bool        `json:"done"`
}

type WorldParams struct {
	Size       int     `json:"size"`
	Unoriented bool    `json:"unoriented"`
	FaultRate  float64 `json:"fault_rate"`
	Seed       int64   `json:"seed"`
	TickRateHz int     `json:"tick_rate_hz"`
}
