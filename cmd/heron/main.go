// Heron - Inventory allocation and replenishment intelligence.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/heron/internal/api"
	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/config"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/engine"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/scheduler"
	"github.com/opensource-finance/heron/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"workers", cfg.Engine.Workers,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	eng := engine.New(cfg.Engine.Workers)
	slog.Info("engine initialized", "workers", eng.Workers())

	// Async recompute worker
	var asyncWorker *worker.Worker
	if cfg.Engine.AsyncWorker {
		asyncWorker = worker.NewWorker(busImpl, repo, eng, cacheImpl)
		workerCfg := worker.Config{
			TenantIDs: cfg.Sweep.TenantIDs,
			ResultTTL: cfg.Cache.ResultTTL,
		}
		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		}
	}

	// Periodic risk sweeps
	var sched *scheduler.Scheduler
	if cfg.Sweep.Enabled {
		sched = scheduler.New()
		job := scheduler.NewSweepJob(busImpl, repo, cfg.Sweep.TenantIDs)
		if err := sched.AddJob(cfg.Sweep.Spec, job); err != nil {
			slog.Error("failed to schedule risk sweep", "error", err)
			os.Exit(1)
		}
		sched.Start()
	}

	srv := api.NewServer(cfg.Server, api.Options{
		Repository: repo,
		Cache:      cacheImpl,
		Bus:        busImpl,
		Engine:     eng,
		ResultTTL:  cfg.Cache.ResultTTL,
		Version:    Version,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			cancel()
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if sched != nil {
		sched.Stop()
	}
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	opts := &slog.HandlerOptions{Level: config.LogLevel(cfg)}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  HERON - inventory allocation & replenishment")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    PUT  /snapshot          - Store the tenant snapshot")
	fmt.Println("    GET  /snapshot/summary  - Snapshot generation and latest risk run")
	fmt.Println("    POST /allocations       - Rank open order lines against stock")
	fmt.Println("    POST /risk              - Stockout and overstock risk")
	fmt.Println("    POST /reorders          - Reorder suggestions")
	fmt.Println("    POST /channel-splits    - Replenishment by sales channel")
	fmt.Println("    POST /scenarios         - Service vs margin policy presets")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}
