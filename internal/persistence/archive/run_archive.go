package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"robogrid.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	WorldID   string `json:"world_id"`
	Program   string `json:"program"`
	Size      int    `json:"size"`
	Seed      int64  `json:"seed"`
	Round     uint64 `json:"round"`
	Agents    int    `json:"agents"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveCompletedRun copies the snapshot of a finished run (every surviving
// agent done) into worldDir/archives/round_<N>/ next to a meta.json.
// Snapshots of unfinished runs are left alone and archived is false.
func ArchiveCompletedRun(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	agents, done := snap.Counts()
	if done != agents {
		return "", false, nil
	}

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("round_%06d", snap.Header.Round))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := RunArchiveMeta{
		WorldID:   snap.Header.WorldID,
		Program:   snap.Program,
		Size:      snap.Size,
		Seed:      snap.Seed,
		Round:     snap.Header.Round,
		Agents:    agents,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
