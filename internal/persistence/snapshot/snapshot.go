package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Round   uint64 `json:"round"`
}

// SnapshotV1 is everything needed to resume a world at a round boundary.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Program      string  `json:"program"`
	Size         int     `json:"size"`
	Seed         int64   `json:"seed"`
	Unoriented   bool    `json:"unoriented"`
	FaultRate    float64 `json:"fault_rate,omitempty"`
	ShuffleOrder bool    `json:"shuffle_order,omitempty"`

	// Ports is only populated for unoriented worlds; oriented port tables are
	// rebuilt from Size.
	Ports  []NodePortsV1 `json:"ports,omitempty"`
	Agents []AgentV1     `json:"agents"`
}

type NodePortsV1 struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Labels []int   `json:"labels"`
	Dirs   []uint8 `json:"dirs"`
}

type AgentV1 struct {
	ID         int    `json:"id"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Cycle      uint64 `json:"cycle"`
	Checkpoint uint64 `json:"checkpoint"`
	Phase      uint8  `json:"phase"`
	Done       bool   `json:"done,omitempty"`
	Data       []byte `json:"data,omitempty"` // program record, JSON
}

// Counts summarises a snapshot for indexes and log lines.
func (s SnapshotV1) Counts() (agents, done int) {
	for _, a := range s.Agents {
		if a.Done {
			done++
		}
	}
	return len(s.Agents), done
}

// WriteSnapshot reports success only once the file is flushed and closed, so
// a snapshot on disk is never a silently truncated one.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := encode(enc, snap); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return f.Sync()
}

func encode(w io.Writer, snap SnapshotV1) error {
	bw := bufio.NewWriterSize(w, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return bw.Flush()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is for humans and tools; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// FileName is the canonical snapshot file name for a round.
func FileName(round uint64) string {
	return fmt.Sprintf("%d.snap.zst", round)
}
