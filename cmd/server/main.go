package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"robogrid.ai/internal/protocol"
	"robogrid.ai/internal/sim/runner"
	"robogrid.ai/internal/sim/tuning"
	"robogrid.ai/internal/sim/world"
	"robogrid.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		worldID    = flag.String("world", "", "world id (overrides tuning)")
		seed       = flag.Int64("seed", 0, "seed for a fresh world (overrides tuning when non-zero)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		linger     = flag.Bool("linger", true, "keep serving after the world is done")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if id := strings.TrimSpace(*worldID); id != "" {
		tune.WorldID = id
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	rt, err := runner.Open(runner.Options{
		DataDir:      *dataDir,
		Tuning:       tune,
		SnapshotPath: *snapPath,
		LoadLatest:   *loadLatest,
		DisableDB:    *disableDB,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("open world: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Printf("close: %v", err)
		}
	}()
	w := rt.World
	cfg := w.Config()
	if rt.Resumed != "" {
		logger.Printf("resumed from snapshot=%s round=%d", filepath.Base(rt.Resumed), w.Round())
	}
	logger.Printf("world=%s program=%s size=%d agents=%d unoriented=%v", cfg.ID, cfg.Program, cfg.Size, w.Population(), cfg.Unoriented)

	ctx, cancel := signalContext()
	defer cancel()

	hub := observer.NewHub()
	hub.Publish(observer.NewFrame(w, world.RoundLogEntry{WorldID: cfg.ID, Round: w.Round(), Population: w.Population(), Done: w.Done()}))

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		n, err := rt.Run(ctx, func(e world.RoundLogEntry) {
			hub.Publish(observer.NewFrame(w, e))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
			cancel()
			return
		}
		logger.Printf("run finished rounds=%d round=%d done=%v population=%d", n, w.Round(), w.Done(), w.Population())
		if !*linger {
			cancel()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(cfg.ID, hub, rt.Index))

	obsSrv := observer.NewServer(hub, observer.Info{
		WorldID: cfg.ID,
		Program: cfg.Program,
		Params: protocol.WorldParams{
			Size:       cfg.Size,
			Unoriented: cfg.Unoriented,
			FaultRate:  cfg.FaultRate,
			Seed:       cfg.Seed,
			TickRateHz: tune.TickRateHz,
		},
		Every: tune.ObserverEvery,
	}, logger)
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	if envBool("RG_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (RG_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-runDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
