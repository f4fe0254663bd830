package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"robogrid.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip turns a Go value into the generic form the validator expects.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateMessages(t *testing.T) {
	subscribe := compile(t, "subscribe.schema.json")
	frame := compile(t, "frame.schema.json")
	bootstrap := compile(t, "bootstrap.schema.json")
	errSchema := compile(t, "error.schema.json")

	if err := subscribe.Validate(roundTrip(t, protocol.SubscribeMsg{
		Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, Every: 2,
	})); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := frame.Validate(roundTrip(t, protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		WorldID:         "world_1",
		Program:         "disperse",
		Round:           12,
		Population:      4,
		Moves:           3,
		Grid:            [][]int{{1, 1}, {2, 0}},
	})); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if err := frame.Validate(roundTrip(t, protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		WorldID:         "world_1",
		Round:           40,
		Population:      4,
		Done:            true,
		Size:            2,
		GridRLE:         "AQQ=",
	})); err != nil {
		t.Fatalf("compact frame: %v", err)
	}
	if err := bootstrap.Validate(roundTrip(t, protocol.BootstrapResponse{
		ProtocolVersion: protocol.Version,
		WorldID:         "world_1",
		Program:         "disperse",
		WorldParams:     protocol.WorldParams{Size: 4, Seed: 1, TickRateHz: 10},
	})); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := errSchema.Validate(roundTrip(t, protocol.NewError(protocol.ErrProtoBadRequest, "expected SUBSCRIBE"))); err != nil {
		t.Fatalf("error: %v", err)
	}
}

func TestSchemas_RejectBadMessages(t *testing.T) {
	frame := compile(t, "frame.schema.json")
	var bad any
	_ = json.Unmarshal([]byte(`{"type":"FRAME","protocol_version":"1.0","world_id":"w","round":-1,"population":1,"moves":0,"done":false,"grid":[[1]]}`), &bad)
	if err := frame.Validate(bad); err == nil {
		t.Fatalf("negative round should be rejected")
	}
	_ = json.Unmarshal([]byte(`{"type":"FRAME","protocol_version":"1.0","world_id":"w","round":1,"population":1,"moves":0,"done":false,"grid":[[1]],"grid_rle":"AQE=","size":1}`), &bad)
	if err := frame.Validate(bad); err == nil {
		t.Fatalf("frame with both grid forms should be rejected")
	}
	_ = json.Unmarshal([]byte(`{"type":"FRAME","protocol_version":"1.0","world_id":"w","round":1,"population":1,"moves":0,"done":false}`), &bad)
	if err := frame.Validate(bad); err == nil {
		t.Fatalf("frame without a grid should be rejected")
	}
	subscribe := compile(t, "subscribe.schema.json")
	_ = json.Unmarshal([]byte(`{"type":"FRAME","protocol_version":"1.0"}`), &bad)
	if err := subscribe.Validate(bad); err == nil {
		t.Fatalf("wrong type should be rejected")
	}
}
