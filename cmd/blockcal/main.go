package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"blockcal/internal/clock"
	"blockcal/internal/config"
	"blockcal/internal/engine"
	appLog "blockcal/internal/log"
	"blockcal/internal/model"
	"blockcal/internal/snapshot"
	"blockcal/internal/store"
	"blockcal/internal/store/httpstore"
	"blockcal/internal/store/sqlitestore"
	"blockcal/internal/web"
	"blockcal/internal/widget"
)

// flagConfig holds CLI flag values; non-empty values override the file.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	snapshot   bool
}

func main() {
	appLog.Info("blockcal starting", "version", "0.1.0")

	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err)
		os.Exit(1)
	}

	norm := clock.NewNormalizer(conf.Timezone)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", norm.Zone(),
		"offset_ms", norm.OffsetMillis(),
		"store_driver", conf.StoreDriver,
		"refresh", conf.RefreshCron,
		"snapshot", flags.snapshot,
	)

	st, closeStore, err := openStore(conf)
	if err != nil {
		appLog.Error("failed to open event store", err)
		os.Exit(1)
	}
	defer closeStore()

	// Engine wiring. The gate owns the one-shot surface initialization;
	// gesture callbacks feed the edit session and the coordinator.
	cache := engine.NewCache()
	surface := widget.New()
	notifier := widget.NewNotifier()
	session := engine.NewSession(norm)

	var coord *engine.Coordinator
	callbacks := engine.Callbacks{
		OnRangeSelect: func(start, end time.Time) {
			session.OpenForRange(start, end)
		},
		OnEventClick: func(ev model.Event) {
			session.OpenForEvent(ev)
		},
		OnEventDrop: func(ev model.Event) {
			// A drop carries the event at its new position; commit it.
			_ = coord.Update(context.Background(), ev.ID, ev)
		},
		OnEventResize: func(ev model.Event) {
			_ = coord.Update(context.Background(), ev.ID, ev)
		},
	}
	gate := engine.NewGate(surface, callbacks, cache.Snapshot)
	coord = engine.NewCoordinator(st, cache, gate, surface, notifier, norm)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	server := web.NewServer(conf, coord, session, surface, notifier, norm)
	httpServer := &http.Server{Addr: conf.Listen, Handler: server.Handler()}

	// Binding the listener is the surface's resource load: the embedded page
	// and its API are unreachable until it succeeds.
	listener, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		gate.MarkResourcesFailed(err)
		appLog.Error("failed to bind listen address", err, "listen", conf.Listen)
		os.Exit(1)
	}
	gate.MarkResourcesLoaded()

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	// Initial data fetch; completion marks the gate's second readiness flag.
	go coord.Load(ctx)

	// Periodic cache refresh, the only consistency-repair mechanism against
	// server-side changes this client did not make.
	if conf.RefreshCron != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(conf.RefreshCron, func() {
			coord.Refresh(context.Background())
		}); err != nil {
			appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	if flags.snapshot {
		runSnapshot(ctx, conf, gate)
		cancel()
	} else {
		<-ctx.Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	appLog.Info("blockcal exiting")
}

// openStore builds the configured store backend, seeding the local one when
// a seed rule is configured.
func openStore(conf *config.Config) (store.Store, func(), error) {
	switch conf.StoreDriver {
	case config.DriverHTTP:
		return httpstore.New(conf.StoreURL), func() {}, nil
	default:
		db, err := sqlitestore.Open(conf.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if conf.Seed != nil && conf.Seed.Rule != "" {
			if _, err := db.Seed(context.Background(), sqlitestore.SeedSpec{
				Rule:  conf.Seed.Rule,
				Title: conf.Seed.Title,
				Hours: conf.Seed.Hours,
				Count: conf.Seed.Count,
			}); err != nil {
				appLog.Error("seed failed", err)
			}
		}
		return db, func() { _ = db.Close() }, nil
	}
}

// runSnapshot captures the rendered page once the gate reports readiness.
func runSnapshot(ctx context.Context, conf *config.Config, gate *engine.Gate) {
	deadline := time.Now().Add(30 * time.Second)
	for !gate.Initialized() {
		if time.Now().After(deadline) || ctx.Err() != nil {
			appLog.Error("snapshot aborted, calendar never initialized", errors.New("readiness timeout"))
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	opts := snapshot.Options{
		URL:        "http://" + conf.Listen + "/",
		OutputPath: conf.SnapshotPath,
	}
	if err := snapshot.CapturePNG(ctx, opts); err != nil {
		appLog.Error("snapshot capture failed", err)
		return
	}
	appLog.Info("snapshot written", "path", conf.SnapshotPath)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/blockcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Render one calendar snapshot PNG and exit")

	flag.Parse()

	return cfg
}
