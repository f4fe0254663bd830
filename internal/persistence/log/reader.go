package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"robogrid.ai/internal/sim/world"
)

const RoundsPrefix = "rounds"

func RoundsDir(worldDir string) string { return filepath.Join(worldDir, "events") }

// RoundFiles lists the round log files of a world in chronological order.
func RoundFiles(worldDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(RoundsDir(worldDir), RoundsPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ScanRounds decodes every round entry under worldDir in file order and
// calls fn for each. fn returning an error stops the scan.
func ScanRounds(worldDir string, fn func(world.RoundLogEntry) error) error {
	files, err := RoundFiles(worldDir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := scanFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func scanFile(path string, fn func(world.RoundLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var e world.RoundLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
