package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/neurosnake/config"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	generations := flag.Int("generations", 0, "Generations to run (0 = use config)")
	workers := flag.Int("workers", -1, "Evaluation workers (-1 = use config, 0 = GOMAXPROCS)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot, hall of fame and plot")
	storeKind := flag.String("store", "memory", "Archive backend: memory | sqlite")
	sqlitePath := flag.String("sqlite-path", "neurosnake.db", "SQLite file for -store sqlite")
	resume := flag.String("resume", "", "Seed the first population from a stored run id, or \"latest\"")
	seedHOF := flag.String("seed-hof", "", "Seed the first population from a hall_of_fame.json")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	watchAddr := flag.String("watch-addr", "", "Stream champion replays over websocket on this address (e.g. :8080)")
	replayDelay := flag.Duration("replay-delay", 50*time.Millisecond, "Pause between replayed ticks")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI overrides
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if *generations > 0 {
		cfg.Evolution.Generations = *generations
	}
	if *workers >= 0 {
		cfg.Evolution.Workers = *workers
	}
	cfg.ComputeDerived()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		OutputDir:   *outputDir,
		StoreKind:   *storeKind,
		SQLitePath:  *sqlitePath,
		Resume:      *resume,
		SeedHOF:     *seedHOF,
		MetricsAddr: *metricsAddr,
		WatchAddr:   *watchAddr,
		ReplayDelay: *replayDelay,
	}

	if err := run(ctx, cfg, opts, logger); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}
