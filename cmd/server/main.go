package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/blackrab369/Versaas-ai/internal/narrative"
	persistlog "github.com/blackrab369/Versaas-ai/internal/persistence/log"
	"github.com/blackrab369/Versaas-ai/internal/persistence/store"
	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/multiproject"
	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
	"github.com/blackrab369/Versaas-ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		recoverAll = flag.Bool("recover", true, "restart registered projects from their latest snapshots on boot")

		bootProject = flag.String("project", "", "create this project on boot if it is not registered yet")
		bootIdea    = flag.String("idea", "", "seed idea for -project")
		bootSeed    = flag.Int64("seed", 0, "seed for -project (0 derives one from the id)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional read-model index (does not affect sim determinism).
	var idx *store.SQLiteStore
	if !*disableDB {
		idx, err = store.OpenSQLite(filepath.Join(*dataDir, "index", "versaas.sqlite"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertConfigMeta(*configDir, cats, tune); err != nil {
			logger.Printf("index db upsert config meta: %v", err)
		}
	}

	logs := persistlog.NewProjectLogs(filepath.Join(*dataDir, "logs"))
	defer logs.Close()

	narr, err := narrative.New(tune.Narrative)
	if err != nil {
		logger.Fatalf("narrative: %v", err)
	}

	mir, err := buildMirror(*dataDir, logger)
	if err != nil {
		logger.Fatalf("init mirror: %v", err)
	}
	defer mir.Close()
	if mir != nil {
		logger.Printf("snapshot mirror enabled")
	}

	ctx, cancel := signalContext()
	defer cancel()

	events := make(chan protocol.TickEvent, 256)
	mgr, err := multiproject.NewManager(multiproject.Config{
		Catalogs:  cats,
		Tuning:    tune,
		DataDir:   *dataDir,
		StateFile: filepath.Join(*dataDir, "manager_state.json"),
		Narrator:  narr,
		Store:     idx,
		Logs:      logs,
		Mirror:    mir,
		Events:    events,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("project manager: %v", err)
	}
	defer mgr.Close()

	if *recoverAll {
		if n := mgr.Recover(ctx); n > 0 {
			logger.Printf("recovered %d project(s)", n)
		}
	}
	if id := strings.TrimSpace(*bootProject); id != "" {
		if _, err := mgr.Create(ctx, id, *bootIdea, *bootSeed); err != nil {
			var dup *protocol.DuplicateError
			if !errors.As(err, &dup) {
				logger.Fatalf("create project %s: %v", id, err)
			}
		}
	}

	hub := ws.NewHub(logger)
	go hub.Run(ctx, events)

	enableAdminHTTP := envBool("VS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VS_ENABLE_PPROF_HTTP", false)
	if !enableAdminHTTP {
		logger.Printf("admin endpoints disabled (VS_ENABLE_ADMIN_HTTP=false)")
	}
	if !enablePprofHTTP {
		logger.Printf("pprof endpoints disabled (VS_ENABLE_PPROF_HTTP=false)")
	}
	mux := buildServerMux(mgr, hub, idx, mir, logger, enableAdminHTTP, enablePprofHTTP)

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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
