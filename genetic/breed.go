package genetic

import (
	"fmt"
	"math/rand"
)

// Params holds the breeding knobs.
type Params struct {
	TournamentSize int
	CrossoverRate  float64
	MutationRate   float64
}

// Validate checks the knobs before any breeding happens.
func (p Params) Validate() error {
	if p.TournamentSize < 1 {
		return fmt.Errorf("invalid tournament size: %d", p.TournamentSize)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return fmt.Errorf("crossover %w: %v", ErrInvalidRate, p.CrossoverRate)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("mutation %w: %v", ErrInvalidRate, p.MutationRate)
	}
	return nil
}

// BreedStats summarizes the operators applied during one Breed call.
type BreedStats struct {
	Crossovers int // pairs whose tails were swapped
	Mutations  int // genes replaced
}

// Breed builds a same-size set of children: a mating pool is filled by
// tournament selection, adjacent pool entries are paired and crossed over,
// and each child is mutated independently. Parents are never modified.
func Breed(rng *rand.Rand, parents [][]float64, fitness []float64, p Params) ([][]float64, BreedStats, error) {
	var stats BreedStats

	if err := p.Validate(); err != nil {
		return nil, stats, err
	}
	n := len(parents)
	if n%2 != 0 {
		return nil, stats, fmt.Errorf("%w: %d", ErrOddPopulationSize, n)
	}
	if len(fitness) != n {
		return nil, stats, fmt.Errorf("%d fitness values for %d parents", len(fitness), n)
	}

	pool, err := MatingPool(rng, fitness, p.TournamentSize, n)
	if err != nil {
		return nil, stats, err
	}

	children := make([][]float64, 0, n)
	for i := 0; i < n; i += 2 {
		c1, c2, fired, err := Crossover(rng, parents[pool[i]], parents[pool[i+1]], p.CrossoverRate)
		if err != nil {
			return nil, stats, err
		}
		if fired {
			stats.Crossovers++
		}
		stats.Mutations += Mutate(rng, c1, p.MutationRate)
		stats.Mutations += Mutate(rng, c2, p.MutationRate)
		children = append(children, c1, c2)
	}

	return children, stats, nil
}
