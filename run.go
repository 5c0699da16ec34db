package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pthm-cable/neurosnake/config"
	"github.com/pthm-cable/neurosnake/evolve"
	"github.com/pthm-cable/neurosnake/game"
	"github.com/pthm-cable/neurosnake/neural"
	"github.com/pthm-cable/neurosnake/replay"
	"github.com/pthm-cable/neurosnake/storage"
	"github.com/pthm-cable/neurosnake/telemetry"
)

type runOptions struct {
	OutputDir   string
	StoreKind   string
	SQLitePath  string
	Resume      string
	SeedHOF     string
	MetricsAddr string
	WatchAddr   string
	ReplayDelay time.Duration
}

func run(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger) error {
	runID := storage.NewRunID()
	arch := neural.Architecture(cfg.Network.Architecture)

	store, err := storage.NewStore(opts.StoreKind, opts.SQLitePath)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("initializing %s store: %w", opts.StoreKind, err)
	}
	defer func() {
		if err := storage.CloseIfSupported(store); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	seeds, err := loadSeeds(ctx, store, opts, logger)
	if err != nil {
		return err
	}

	if err := store.SaveRun(ctx, storage.RunInfo{
		ID:           runID,
		Seed:         cfg.Seed,
		Architecture: arch,
		StartedAt:    time.Now(),
	}); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	hof := telemetry.NewHallOfFame(runID, arch, cfg.Telemetry.HallOfFameSize)
	bookmarks := telemetry.NewBookmarkDetector(max(cfg.Evolution.PlateauWindow, 10))

	var metrics *telemetry.Metrics
	if opts.MetricsAddr != "" {
		metrics = telemetry.NewMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		serve(ctx, opts.MetricsAddr, mux, logger)
	}

	var hub *replay.Hub
	if opts.WatchAddr != "" {
		hub = replay.NewHub(cfg.World.Width, cfg.World.Height, logger)
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		serve(ctx, opts.WatchAddr, mux, logger)
	}

	var engine *evolve.Engine
	hook := func(ctx context.Context, gen *evolve.Generation) error {
		stats := telemetry.ComputeGenerationStats(gen)
		stats.LogStats(logger)
		for _, b := range bookmarks.Check(stats) {
			b.Log(logger)
		}

		if err := om.WriteGeneration(stats); err != nil {
			return err
		}
		if _, err := hof.Consider(gen); err != nil {
			return err
		}
		metrics.Observe(stats, hof.TopFitness())

		records, err := storage.FromGeneration(runID, arch, gen)
		if err != nil {
			return err
		}
		if err := store.SaveGeneration(ctx, records); err != nil {
			return fmt.Errorf("archiving generation %d: %w", gen.Index, err)
		}

		if hub != nil && hub.Clients() > 0 {
			champion := &gen.Population[stats.BestIndex]
			hub.Begin(gen.Index, champion.Fitness)
			if _, err := engine.Play(champion, game.WithObserver(replay.Paced(hub, opts.ReplayDelay))); err != nil {
				return fmt.Errorf("replaying champion: %w", err)
			}
		}
		return nil
	}

	engine, err = evolve.New(cfg,
		evolve.WithLogger(logger),
		evolve.WithSeeds(seeds),
		evolve.OnGeneration(hook),
	)
	if err != nil {
		return err
	}

	stop := evolve.MaxGenerations(cfg.Evolution.Generations)
	if cfg.Evolution.PlateauWindow > 0 {
		stop = evolve.Any(stop, evolve.Plateau(cfg.Evolution.PlateauWindow, cfg.Evolution.PlateauEpsilon))
	}

	logger.Info("starting evolution",
		"run_id", runID,
		"seed", cfg.Seed,
		"architecture", cfg.Network.Architecture,
		"population", cfg.Evolution.Population,
		"generations", cfg.Evolution.Generations,
		"store", opts.StoreKind,
	)

	start := time.Now()
	last, runErr := engine.Run(ctx, stop)
	if errors.Is(runErr, context.Canceled) {
		logger.Warn("evolution interrupted", "generation", engine.Generation())
		runErr = nil
	}

	if err := om.WriteHallOfFame(hof); err != nil {
		return err
	}
	if cfg.Telemetry.Plot {
		if err := om.WritePlot(); err != nil {
			return err
		}
	}

	if last != nil {
		best := last.Population[last.Population.Best()]
		logger.Info("evolution finished",
			"run_id", runID,
			"generations", len(engine.History()),
			"last_best_fitness", best.Fitness,
			"last_best_score", best.Score,
			"hall_of_fame_top", hof.TopFitness(),
			"elapsed", time.Since(start).String(),
			"output_dir", om.Dir(),
		)
	}
	return runErr
}

// loadSeeds gathers the initial population seeds from a stored run and a
// hall of fame file.
func loadSeeds(ctx context.Context, store storage.Store, opts runOptions, logger *slog.Logger) ([]*neural.ParameterSet, error) {
	var seeds []*neural.ParameterSet

	if opts.Resume != "" {
		runID := opts.Resume
		if runID == "latest" {
			runID = ""
		}
		records, ok, err := store.LoadLatest(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("loading run %q: %w", opts.Resume, err)
		}
		if !ok {
			return nil, fmt.Errorf("no stored generation for run %q", opts.Resume)
		}
		resumed, err := storage.Seeds(records)
		if err != nil {
			return nil, err
		}
		logger.Info("resuming from stored generation",
			"run_id", records[0].RunID,
			"generation", records[0].Generation,
			"individuals", len(resumed),
		)
		seeds = append(seeds, resumed...)
	}

	if opts.SeedHOF != "" {
		hof, err := telemetry.LoadHallOfFameFromFile(opts.SeedHOF)
		if err != nil {
			return nil, err
		}
		fromHOF, err := hof.Seeds()
		if err != nil {
			return nil, err
		}
		logger.Info("seeding from hall of fame", "path", opts.SeedHOF, "individuals", len(fromHOF))
		// Hall of fame entries go first; they are the best seen.
		seeds = append(fromHOF, seeds...)
	}

	return seeds, nil
}

// serve runs an HTTP server until ctx is done.
func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "addr", addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
