package genetic

import "math/rand"

// Mutate replaces each gene, with probability rate, by a fresh draw from
// U[-1, 1]. It works in place and returns how many genes were replaced.
func Mutate(rng *rand.Rand, c []float64, rate float64) int {
	count := 0
	for i := range c {
		if rng.Float64() < rate {
			c[i] = rng.Float64()*2 - 1
			count++
		}
	}
	return count
}
