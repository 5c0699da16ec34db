package genetic

import (
	"fmt"
	"math/rand"
)

// Crossover performs single-point crossover with probability rate. The point
// is drawn uniformly from [1, M-2] so neither child is a plain copy of a
// parent. When crossover does not fire, or the chromosomes are too short to
// hold an interior point, the children are fresh copies of the parents.
// fired reports whether the tails were swapped.
func Crossover(rng *rand.Rand, p1, p2 []float64, rate float64) (c1, c2 []float64, fired bool, err error) {
	if len(p1) != len(p2) {
		return nil, nil, false, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(p1), len(p2))
	}
	if rate < 0 || rate > 1 {
		return nil, nil, false, fmt.Errorf("crossover %w: %v", ErrInvalidRate, rate)
	}

	m := len(p1)
	if m < 3 || rng.Float64() >= rate {
		return clone(p1), clone(p2), false, nil
	}

	point := 1 + rng.Intn(m-2)
	c1, c2, err = CrossoverAt(p1, p2, point)
	return c1, c2, err == nil, err
}

// CrossoverAt swaps the tails of two parents at point:
// c1 = p1[:point] + p2[point:], c2 = p2[:point] + p1[point:].
func CrossoverAt(p1, p2 []float64, point int) (c1, c2 []float64, err error) {
	if len(p1) != len(p2) {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(p1), len(p2))
	}
	if point < 0 || point > len(p1) {
		return nil, nil, fmt.Errorf("crossover point %d outside [0, %d]", point, len(p1))
	}

	c1 = make([]float64, len(p1))
	c2 = make([]float64, len(p2))

	copy(c1[:point], p1[:point])
	copy(c1[point:], p2[point:])
	copy(c2[:point], p2[:point])
	copy(c2[point:], p1[point:])

	return c1, c2, nil
}

func clone(c []float64) []float64 {
	return append([]float64(nil), c...)
}
