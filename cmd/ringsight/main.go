// Ringsight - forensic transaction analysis for money mule networks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ringsight/ringsight/internal/api"
	"github.com/ringsight/ringsight/internal/bus"
	"github.com/ringsight/ringsight/internal/config"
	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/engine"
	"github.com/ringsight/ringsight/internal/graphexport"
	"github.com/ringsight/ringsight/internal/repository"
	"github.com/ringsight/ringsight/internal/store"
	"github.com/ringsight/ringsight/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Logging))
	slog.SetDefault(logger)

	slog.Info("starting ringsight",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"store", cfg.Store.Type,
		"eventbus", cfg.EventBus.Type,
		"repository", cfg.Repository.Driver,
		"rules", len(cfg.Rules),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Result store
	resultStore, err := store.New(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize result store", "error", err)
		os.Exit(1)
	}
	defer resultStore.Close()
	slog.Info("result store initialized", "type", cfg.Store.Type, "ttl_seconds", cfg.Store.TTLSeconds)

	// Run-history repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Event bus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Analysis engine (compiles custom rules, validates thresholds)
	eng, err := engine.New(cfg, logger)
	if err != nil {
		slog.Error("failed to initialize analysis engine", "error", err)
		os.Exit(1)
	}
	slog.Info("analysis engine initialized",
		"min_cycle", cfg.Detect.MinCycleLength,
		"max_cycle", cfg.Detect.MaxCycleLength,
		"fan_threshold", cfg.Detect.FanMinCounterparties,
	)

	// Optional Neo4j graph export
	var exporter *graphexport.Exporter
	if cfg.GraphExport.URI != "" {
		exporter, err = graphexport.New(ctx, cfg.GraphExport)
		if err != nil {
			slog.Error("failed to initialize graph export", "error", err)
			os.Exit(1)
		}
		defer exporter.Close(context.Background())
		slog.Info("graph export initialized", "uri", cfg.GraphExport.URI)
	}

	// Run-history worker
	runWorker := worker.NewWorker(busImpl, repo, logger)
	if err := runWorker.Start(); err != nil {
		slog.Error("failed to start run-history worker", "error", err)
		os.Exit(1)
	}
	defer runWorker.Stop()

	// HTTP server
	handler := api.NewHandler(cfg.Server, eng, resultStore, repo, busImpl, exporter, cfg.Rings.AlertThreshold, Version)
	srv := api.NewServer(cfg.Server, handler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("ringsight is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("ringsight shutdown complete")
}

func newLogHandler(cfg domain.LoggingConfig) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               RINGSIGHT                   ║")
	fmt.Println("  ║   Forensic Transaction Analysis Engine    ║")
	fmt.Println("  ║      Follow the money, find the ring.     ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze        - Upload a transaction CSV")
	fmt.Println("    GET  /results        - Retrieve results by session token")
	fmt.Println("    GET  /runs           - Run history")
	fmt.Println("    GET  /health         - Health check")
	fmt.Println("    GET  /ready          - Readiness check")
	fmt.Println()
}
