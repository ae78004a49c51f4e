package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statusforge/statusforge/internal/auth"
	"github.com/statusforge/statusforge/internal/config"
	"github.com/statusforge/statusforge/internal/event"
	"github.com/statusforge/statusforge/internal/grafana"
	"github.com/statusforge/statusforge/internal/metricsapi"
	"github.com/statusforge/statusforge/internal/probe"
	"github.com/statusforge/statusforge/internal/reconcile"
	"github.com/statusforge/statusforge/internal/report"
	"github.com/statusforge/statusforge/internal/scheduler"
	"github.com/statusforge/statusforge/internal/server"
	"github.com/statusforge/statusforge/internal/status"
	"github.com/statusforge/statusforge/internal/store"
	"github.com/statusforge/statusforge/internal/version"
	"github.com/statusforge/statusforge/internal/ws"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("StatusForge server starting", zap.String("version", version.Short()))

	if f := cfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Open database
	dbPath := cfg.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared services
	bus := event.NewBus(logger.Named("event"))

	statusStore, err := status.NewStore(ctx, db, bus)
	if err != nil {
		logger.Fatal("failed to initialize status store", zap.Error(err))
	}
	logger.Info("status store initialized", zap.String("component", "status"))

	// External signal sources
	var source metricsapi.Source
	if url := cfg.GetString("metrics_api.url"); url != "" {
		source, err = metricsapi.NewSource(
			cfg.GetString("metrics_api.mode"),
			url,
			cfg.GetDuration("metrics_api.timeout"),
			logger.Named("metricsapi"),
		)
		if err != nil {
			logger.Fatal("invalid metrics API configuration", zap.Error(err))
		}
		logger.Info("metrics API client configured",
			zap.String("component", "metricsapi"),
			zap.String("url", url),
			zap.String("mode", cfg.GetString("metrics_api.mode")),
		)
	} else {
		logger.Warn("metrics API not configured", zap.String("component", "metricsapi"))
	}

	grafanaClient := grafana.NewClient(
		cfg.GetString("grafana.url"),
		cfg.GetString("grafana.token"),
		cfg.GetDuration("grafana.timeout"),
	)
	if grafanaClient.IsConfigured() {
		logger.Info("grafana client configured",
			zap.String("component", "grafana"),
			zap.String("url", grafanaClient.BaseURL()),
		)
	} else {
		logger.Warn("grafana integration not configured", zap.String("component", "grafana"))
	}

	// Reconcile engine and periodic sync
	engine := reconcile.NewEngine(statusStore, source, grafanaClient, logger.Named("reconcile"))

	sched := scheduler.NewScheduler(
		cfg.GetDuration("sync.interval"),
		cfg.GetDuration("sync.initial_delay"),
		engine.RunCycle,
		logger.Named("scheduler"),
	)
	sched.Start(ctx)

	// Admin guard
	guard := auth.New(auth.Config{
		Username:     cfg.GetString("admin.username"),
		Password:     cfg.GetString("admin.password"),
		PasswordHash: cfg.GetString("admin.password_hash"),
	}, logger.Named("auth"))

	// HTTP surface
	statusHandler := status.NewHandler(statusStore, engine, guard, logger.Named("status"))
	metricsAPIHandler := metricsapi.NewHandler(source)
	grafanaHandler := grafana.NewHandler(grafanaClient, engine, guard, logger.Named("grafana"))
	reportHandler := report.NewHandler(report.NewBuilder(statusStore), logger.Named("report"))
	probeHandler := probe.NewHandler(probe.NewChecker(cfg.GetDuration("probe.timeout"), logger.Named("probe")))
	wsHandler := ws.NewHandler(bus, logger.Named("ws"))

	srv := server.New(
		cfg.GetString("server.addr"),
		logger.Named("server"),
		db.Ping,
		statusHandler,
		metricsAPIHandler,
		grafanaHandler,
		reportHandler,
		probeHandler,
		wsHandler,
		guard,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("StatusForge server stopped")
}
