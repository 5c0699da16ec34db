package main

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/neurosnake/config"
	"github.com/pthm-cable/neurosnake/evolve"
	"github.com/pthm-cable/neurosnake/telemetry"
)

// FitnessEvaluator runs short evolutions and scores a parameter vector.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []int64
	baseConfig  *config.Config

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastMeanBest   float64 // champion fitness from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastMeanBest returns the mean champion fitness of the most recent
// evaluation.
func (fe *FitnessEvaluator) LastMeanBest() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMeanBest
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	seed       int64
	score      float64
	hallOfFame *telemetry.HallOfFame
}

// Evaluate computes fitness for a parameter vector (lower = better).
// The score of one seed blends the best fitness of the final generation with
// the best fitness seen overall, so noisy late generations are not punished
// too hard.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.ComputeDerived()

	// Run all seeds in parallel, one worker per evolution
	p := pool.NewWithResults[seedResult]().WithErrors()
	for _, seed := range fe.seeds {
		p.Go(func() (seedResult, error) {
			return fe.runEvolution(cfg, seed)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return math.Inf(1)
	}

	// Aggregate in seed order, the pool returns results as they finish
	slices.SortFunc(results, func(a, b seedResult) int { return cmp.Compare(a.seed, b.seed) })
	var total float64
	bestSeed := math.Inf(-1)
	var bestSeedHallOfFame *telemetry.HallOfFame
	for _, r := range results {
		total += r.score
		if r.score > bestSeed {
			bestSeed = r.score
			bestSeedHallOfFame = r.hallOfFame
		}
	}
	meanBest := total / float64(len(results))
	fitness := -meanBest

	fe.mu.Lock()
	fe.lastMeanBest = meanBest
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.mu.Unlock()

	return fitness
}

func (fe *FitnessEvaluator) runEvolution(base *config.Config, seed int64) (seedResult, error) {
	cfg := *base
	cfg.Seed = seed
	cfg.Evolution.Workers = 1
	cfg.Evolution.Generations = fe.generations

	hof := telemetry.NewHallOfFame("optimize", cfg.Network.Architecture, max(cfg.Telemetry.HallOfFameSize, 1))
	hook := func(_ context.Context, gen *evolve.Generation) error {
		_, err := hof.Consider(gen)
		return err
	}

	e, err := evolve.New(&cfg, evolve.OnGeneration(hook))
	if err != nil {
		return seedResult{}, err
	}
	if _, err := e.Run(context.Background(), evolve.MaxGenerations(fe.generations)); err != nil {
		return seedResult{}, err
	}

	history := e.History()
	if len(history) == 0 {
		return seedResult{seed: seed, hallOfFame: hof}, nil
	}
	final := history[len(history)-1]
	return seedResult{
		seed:       seed,
		score:      0.5*final + 0.5*hof.TopFitness(),
		hallOfFame: hof,
	}, nil
}

// copyConfig creates a copy of the base config for this evaluation.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Network.Architecture = append([]int(nil), fe.baseConfig.Network.Architecture...)
	return &cfg
}
