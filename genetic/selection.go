// Package genetic implements the operators that turn one generation's
// chromosomes and fitness scores into the next generation's chromosomes.
// The operators know nothing about networks; they see flat gene slices.
package genetic

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	// ErrOddPopulationSize is returned when parents cannot be paired.
	ErrOddPopulationSize = errors.New("population size must be even")

	// ErrLengthMismatch is returned when two parents differ in length.
	ErrLengthMismatch = errors.New("parent chromosomes differ in length")

	// ErrInvalidRate is returned for probabilities outside [0, 1].
	ErrInvalidRate = errors.New("rate must be within [0, 1]")
)

// DefaultTournamentSize is the number of competitors per tournament.
const DefaultTournamentSize = 3

// Tournament draws k competitors uniformly with replacement and returns the
// index of the fittest. Ties keep the competitor drawn first.
func Tournament(rng *rand.Rand, fitness []float64, k int) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(fitness) == 0 {
		return 0, fmt.Errorf("tournament over empty population")
	}
	if k < 1 {
		return 0, fmt.Errorf("invalid tournament size: %d", k)
	}

	best := rng.Intn(len(fitness))
	for i := 1; i < k; i++ {
		candidate := rng.Intn(len(fitness))
		if fitness[candidate] > fitness[best] {
			best = candidate
		}
	}
	return best, nil
}

// MatingPool runs n tournaments and returns the winning indices in order.
func MatingPool(rng *rand.Rand, fitness []float64, k, n int) ([]int, error) {
	pool := make([]int, n)
	for i := range pool {
		idx, err := Tournament(rng, fitness, k)
		if err != nil {
			return nil, err
		}
		pool[i] = idx
	}
	return pool, nil
}
