// Package evolve runs the generational loop: evaluate every individual in
// parallel, then breed the next population from the fitness scores.
package evolve

import (
	"github.com/pthm-cable/neurosnake/game"
	"github.com/pthm-cable/neurosnake/neural"
)

// Individual is one candidate network and the result of its evaluation.
type Individual struct {
	Params   *neural.ParameterSet
	Fitness  float64
	Score    int // agent length at the end of the game
	Steps    int
	Captures int
	Outcome  game.Outcome
	Seed     int64 // game seed used for the evaluation

	evaluated bool
}

// Evaluated reports whether the individual has played its game.
func (ind *Individual) Evaluated() bool { return ind.evaluated }

// Population is a fixed-size generation of individuals.
type Population []Individual

// Fitness returns the fitness of every individual, in population order.
func (p Population) Fitness() []float64 {
	f := make([]float64, len(p))
	for i := range p {
		f[i] = p[i].Fitness
	}
	return f
}

// Best returns the index of the fittest individual; ties go to the lowest
// index. It returns -1 for an empty population.
func (p Population) Best() int {
	if len(p) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i].Fitness > p[best].Fitness {
			best = i
		}
	}
	return best
}

// Chromosomes flattens every parameter set.
func (p Population) Chromosomes(arch neural.Architecture) ([][]float64, error) {
	out := make([][]float64, len(p))
	for i := range p {
		c, err := neural.Flatten(p[i].Params, arch)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
