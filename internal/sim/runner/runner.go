// Package runner wires a world to its on-disk surroundings: round log,
// snapshot files, the sqlite index and the run archive. None of it changes
// what the world computes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"robogrid.ai/internal/persistence/archive"
	"robogrid.ai/internal/persistence/indexdb"
	persistlog "robogrid.ai/internal/persistence/log"
	"robogrid.ai/internal/persistence/snapshot"
	"robogrid.ai/internal/sim/programs"
	"robogrid.ai/internal/sim/tuning"
	"robogrid.ai/internal/sim/world"
)

type Options struct {
	// DataDir roots every file the runtime writes. Empty keeps the world in
	// memory: no round log, index, snapshots or archive, and LoadLatest is
	// ignored.
	DataDir string
	Tuning  tuning.Tuning

	// SnapshotPath resumes from a specific snapshot. With LoadLatest and no
	// path, the newest snapshot under the world directory is used.
	SnapshotPath string
	LoadLatest   bool

	DisableDB  bool
	DisableLog bool

	Logger *log.Logger
}

type Runtime struct {
	World    *world.World
	WorldDir string
	Index    *indexdb.SQLiteIndex
	Resumed  string // snapshot path the world was restored from

	tune      tuning.Tuning
	log       *log.Logger
	roundLog  *persistlog.RoundLogger
	ephemeral bool
	logErrs   atomic.Uint64

	snapCh chan snapshot.SnapshotV1
	wg     sync.WaitGroup
	once   sync.Once
}

func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[runner] ", log.LstdFlags)
	}
	tune := opts.Tuning
	ephemeral := strings.TrimSpace(opts.DataDir) == ""
	var worldDir string
	if !ephemeral {
		worldDir = filepath.Join(opts.DataDir, "worlds", tune.WorldID)
		if err := os.MkdirAll(worldDir, 0o755); err != nil {
			return nil, err
		}
	}

	snapPath := strings.TrimSpace(opts.SnapshotPath)
	if snapPath == "" && opts.LoadLatest && !ephemeral {
		snapPath = LatestSnapshot(worldDir)
	}

	w, err := buildWorld(tune, snapPath)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		World:     w,
		WorldDir:  worldDir,
		Resumed:   snapPath,
		tune:      tune,
		log:       logger,
		ephemeral: ephemeral,
		snapCh:    make(chan snapshot.SnapshotV1, 2),
	}

	var loggers persistlog.Tee
	if !opts.DisableLog && !ephemeral {
		r.roundLog = persistlog.NewRoundLogger(worldDir)
		loggers = append(loggers, r.roundLog)
	}
	if !opts.DisableDB && !ephemeral {
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		r.Index = idx
		loggers = append(loggers, idx)
		if err := idx.UpsertConfig("tuning", tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
	}
	if len(loggers) > 0 {
		w.SetRoundLogger(loggers)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for snap := range r.snapCh {
			r.persist(snap)
		}
	}()
	return r, nil
}

func buildWorld(tune tuning.Tuning, snapPath string) (*world.World, error) {
	if snapPath == "" {
		factory, err := programs.Lookup(tune.Program)
		if err != nil {
			return nil, err
		}
		return world.New(tune.WorldConfig(), factory)
	}
	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != tune.WorldID {
		return nil, fmt.Errorf("snapshot world id mismatch: want=%s snap=%s", tune.WorldID, snap.Header.WorldID)
	}
	factory, err := programs.Lookup(snap.Program)
	if err != nil {
		return nil, fmt.Errorf("snapshot program: %w", err)
	}
	return world.FromSnapshot(snap, tune.Workers, factory)
}

// Run drives the world until it is done, the round budget is spent or ctx
// ends, then writes a final snapshot and records the run.
func (r *Runtime) Run(ctx context.Context, onRound func(world.RoundLogEntry)) (uint64, error) {
	rc := r.tune.RunConfig()
	rc.OnRound = func(e world.RoundLogEntry) {
		if e.LogErr != nil {
			// First failure and every 100th after it.
			if n := r.logErrs.Add(1); n%100 == 1 {
				r.log.Printf("round %d: round log: %v (failures=%d)", e.Round, e.LogErr, n)
			}
		}
		if onRound != nil {
			onRound(e)
		}
	}
	if !r.ephemeral {
		rc.SnapshotSink = r.snapCh
	}

	n, err := r.World.Run(ctx, rc)
	if err != nil && !errors.Is(err, context.Canceled) {
		return n, err
	}
	if r.ephemeral {
		return n, err
	}
	// The final snapshot goes through the writer so it never races a
	// periodic one for the same file.
	if snap, serr := r.World.ExportSnapshot(); serr == nil {
		r.snapCh <- snap
	} else {
		r.log.Printf("final snapshot: %v", serr)
	}
	r.recordRun()
	return n, err
}

func (r *Runtime) persist(snap snapshot.SnapshotV1) {
	path := filepath.Join(r.WorldDir, "snapshots", snapshot.FileName(snap.Header.Round))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		r.log.Printf("snapshot write: %v", err)
		return
	}
	r.Index.RecordSnapshot(path, snap)

	archivedPath, ok, err := archive.ArchiveCompletedRun(r.WorldDir, path, snap)
	if err != nil {
		r.log.Printf("archive run: %v", err)
		return
	}
	if ok {
		r.Index.RecordArchive(snap.Header.WorldID, snap.Header.Round, archivedPath)
	}
}

func (r *Runtime) recordRun() {
	w := r.World
	cfg := w.Config()
	r.Index.RecordRun(indexdb.RunRecord{
		WorldID:    cfg.ID,
		Program:    cfg.Program,
		Size:       cfg.Size,
		Agents:     cfg.Agents,
		Unoriented: cfg.Unoriented,
		FaultRate:  cfg.FaultRate,
		Seed:       cfg.Seed,
		Rounds:     w.Round(),
		Done:       w.Done(),
		Dispersed:  dispersed(w.Snapshot()),
		Survivors:  w.Population(),
	})
}

func dispersed(grid [][]int) bool {
	for _, row := range grid {
		for _, c := range row {
			if c != 1 {
				return false
			}
		}
	}
	return true
}

// LogErrors counts rounds whose round log or index write failed.
func (r *Runtime) LogErrors() uint64 { return r.logErrs.Load() }

// Close stops the snapshot writer and flushes the round log and index.
func (r *Runtime) Close() error {
	var errs []error
	r.once.Do(func() {
		close(r.snapCh)
		r.wg.Wait()
		if r.roundLog != nil {
			errs = append(errs, r.roundLog.Close())
		}
		if r.Index != nil {
			errs = append(errs, r.Index.Close())
		}
	})
	return errors.Join(errs...)
}

// LatestSnapshot returns the highest-round snapshot file under worldDir, or "".
func LatestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestRound uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		round, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || round > bestRound {
			bestRound = round
			best = filepath.Join(dir, name)
		}
	}
	return best
}
