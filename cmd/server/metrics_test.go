package main

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"robogrid.ai/internal/persistence/indexdb"
	"robogrid.ai/internal/protocol"
	"robogrid.ai/internal/transport/observer"
)

func TestMetrics(t *testing.T) {
	hub := observer.NewHub()
	hub.Publish(protocol.FrameMsg{Type: protocol.TypeFrame, WorldID: "w", Round: 12, Population: 9, Moves: 3, Done: true})

	rec := httptest.NewRecorder()
	metricsHandler("w", hub, nil)(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`robogrid_world_round{world="w"} 12`,
		`robogrid_world_population{world="w"} 9`,
		`robogrid_world_moves{world="w"} 3`,
		`robogrid_world_done{world="w"} 1`,
		`robogrid_observers{world="w"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
	if strings.Contains(body, "robogrid_index_") {
		t.Fatalf("index metrics without an index:\n%s", body)
	}
}

func TestMetrics_Index(t *testing.T) {
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	var sb strings.Builder
	writeMetrics(&sb, "w", observer.NewHub(), idx)
	if !strings.Contains(sb.String(), `robogrid_index_dropped_total{world="w",kind="round"} 0`) {
		t.Fatalf("missing index metrics:\n%s", sb.String())
	}
	if !strings.Contains(sb.String(), `robogrid_world_round{world="w"} 0`) {
		t.Fatalf("missing round metric:\n%s", sb.String())
	}
}
