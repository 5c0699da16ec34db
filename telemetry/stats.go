// Package telemetry provides generation statistics, bookmarking, the hall of
// fame and run output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/evolve"
)

// GenerationStats holds aggregated statistics for one evaluated generation.
type GenerationStats struct {
	Generation int `csv:"generation"`

	// Fitness distribution
	BestFitness float64 `csv:"best_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	MinFitness  float64 `csv:"min_fitness"`
	StdFitness  float64 `csv:"std_fitness"`
	P10Fitness  float64 `csv:"p10_fitness"`
	P50Fitness  float64 `csv:"p50_fitness"`
	P90Fitness  float64 `csv:"p90_fitness"`

	// Game results
	BestScore  int     `csv:"best_score"`
	MeanScore  float64 `csv:"mean_score"`
	MeanSteps  float64 `csv:"mean_steps"`
	Captures   int     `csv:"captures"`
	BestIndex  int     `csv:"best_index"`
	BestSeed   int64   `csv:"best_seed"`
	Population int     `csv:"population"`

	// Outcome counts
	Starved     int `csv:"starved"`
	Collided    int `csv:"collided"`
	OutOfBounds int `csv:"out_of_bounds"`
	Filled      int `csv:"filled"`
	Timeout     int `csv:"timeout"`

	// Operators applied to produce this generation
	Crossovers int `csv:"crossovers"`
	Mutations  int `csv:"mutations"`

	EvalMillis float64 `csv:"eval_ms"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeGenerationStats summarizes an evaluated generation.
func ComputeGenerationStats(gen *evolve.Generation) GenerationStats {
	pop := gen.Population
	s := GenerationStats{
		Generation: gen.Index,
		Population: len(pop),
		Crossovers: gen.Breeding.Crossovers,
		Mutations:  gen.Breeding.Mutations,
		EvalMillis: float64(gen.EvalTime.Microseconds()) / 1000,
		BestIndex:  -1,
	}
	if len(pop) == 0 {
		return s
	}

	fitness := pop.Fitness()
	s.MeanFitness, s.StdFitness = stat.MeanStdDev(fitness, nil)

	sorted := make([]float64, len(fitness))
	copy(sorted, fitness)
	sort.Float64s(sorted)
	s.MinFitness = sorted[0]
	s.P10Fitness = Percentile(sorted, 0.10)
	s.P50Fitness = Percentile(sorted, 0.50)
	s.P90Fitness = Percentile(sorted, 0.90)

	best := pop.Best()
	s.BestIndex = best
	s.BestFitness = pop[best].Fitness
	s.BestSeed = pop[best].Seed

	scores := make([]float64, len(pop))
	steps := make([]float64, len(pop))
	for i, ind := range pop {
		scores[i] = float64(ind.Score)
		steps[i] = float64(ind.Steps)
		if ind.Score > s.BestScore {
			s.BestScore = ind.Score
		}
		s.Captures += ind.Captures

		switch ind.Outcome {
		case components.OutcomeStarved:
			s.Starved++
		case components.OutcomeCollided:
			s.Collided++
		case components.OutcomeOutOfBounds:
			s.OutOfBounds++
		case components.OutcomeFilled:
			s.Filled++
		case components.OutcomeTimeout:
			s.Timeout++
		}
	}
	s.MeanScore = stat.Mean(scores, nil)
	s.MeanSteps = stat.Mean(steps, nil)

	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("min_fitness", s.MinFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("p50_fitness", s.P50Fitness),
		slog.Int("best_score", s.BestScore),
		slog.Float64("mean_score", s.MeanScore),
		slog.Float64("mean_steps", s.MeanSteps),
		slog.Int("captures", s.Captures),
		slog.Int("starved", s.Starved),
		slog.Int("collided", s.Collided),
		slog.Int("out_of_bounds", s.OutOfBounds),
		slog.Int("filled", s.Filled),
		slog.Int("timeout", s.Timeout),
		slog.Int("crossovers", s.Crossovers),
		slog.Int("mutations", s.Mutations),
		slog.Float64("eval_ms", s.EvalMillis),
	)
}

// LogStats logs the max, mean and min fitness of the generation.
func (s GenerationStats) LogStats(logger *slog.Logger) {
	logger.Info("generation",
		"gen", s.Generation,
		"best", s.BestFitness,
		"mean", s.MeanFitness,
		"min", s.MinFitness,
		"best_score", s.BestScore,
		"captures", s.Captures,
		"eval_ms", s.EvalMillis,
	)
}
