package main

import (
	"fmt"
	"io"
	"net/http"

	"robogrid.ai/internal/persistence/indexdb"
	"robogrid.ai/internal/transport/observer"
)

func metricsHandler(worldID string, hub *observer.Hub, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, worldID, hub, idx)
	}
}

// writeMetrics renders a minimal Prometheus exposition of the latest frame
// and the index queue.
func writeMetrics(w io.Writer, worldID string, hub *observer.Hub, idx *indexdb.SQLiteIndex) {
	f, _ := hub.Latest()
	done := 0
	if f.Done {
		done = 1
	}

	fmt.Fprintf(w, "# HELP robogrid_world_round Rounds executed so far.\n")
	fmt.Fprintf(w, "# TYPE robogrid_world_round gauge\n")
	fmt.Fprintf(w, "robogrid_world_round{world=%q} %d\n", worldID, f.Round)

	fmt.Fprintf(w, "# HELP robogrid_world_population Agents currently on the grid.\n")
	fmt.Fprintf(w, "# TYPE robogrid_world_population gauge\n")
	fmt.Fprintf(w, "robogrid_world_population{world=%q} %d\n", worldID, f.Population)

	fmt.Fprintf(w, "# HELP robogrid_world_moves Moves applied in the last round.\n")
	fmt.Fprintf(w, "# TYPE robogrid_world_moves gauge\n")
	fmt.Fprintf(w, "robogrid_world_moves{world=%q} %d\n", worldID, f.Moves)

	fmt.Fprintf(w, "# HELP robogrid_world_done 1 once every agent has terminated.\n")
	fmt.Fprintf(w, "# TYPE robogrid_world_done gauge\n")
	fmt.Fprintf(w, "robogrid_world_done{world=%q} %d\n", worldID, done)

	fmt.Fprintf(w, "# HELP robogrid_observers Connected observer sessions.\n")
	fmt.Fprintf(w, "# TYPE robogrid_observers gauge\n")
	fmt.Fprintf(w, "robogrid_observers{world=%q} %d\n", worldID, hub.Subscribers())

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(w, "# HELP robogrid_index_queue_depth Pending index writes.\n")
	fmt.Fprintf(w, "# TYPE robogrid_index_queue_depth gauge\n")
	fmt.Fprintf(w, "robogrid_index_queue_depth{world=%q} %d\n", worldID, st.QueueDepth)
	fmt.Fprintf(w, "robogrid_index_queue_capacity{world=%q} %d\n", worldID, st.QueueCapacity)

	fmt.Fprintf(w, "# HELP robogrid_index_dropped_total Index writes dropped on a full queue.\n")
	fmt.Fprintf(w, "# TYPE robogrid_index_dropped_total counter\n")
	fmt.Fprintf(w, "robogrid_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "round", st.DropRoundTotal)
	fmt.Fprintf(w, "robogrid_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", st.DropSnapshotTotal)
	fmt.Fprintf(w, "robogrid_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "run", st.DropRunTotal)
	fmt.Fprintf(w, "robogrid_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "archive", st.DropArchiveTotal)
}
