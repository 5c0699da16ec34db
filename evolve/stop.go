package evolve

// StopCondition decides whether to stop before evaluating another generation.
// history holds the best fitness of every generation evaluated so far.
type StopCondition func(history []float64) bool

// MaxGenerations stops after n generations.
func MaxGenerations(n int) StopCondition {
	return func(history []float64) bool {
		return len(history) >= n
	}
}

// Plateau stops once the best fitness of the last window generations has not
// beaten the best before them by more than epsilon.
func Plateau(window int, epsilon float64) StopCondition {
	return func(history []float64) bool {
		if window <= 0 || len(history) <= window {
			return false
		}
		split := len(history) - window
		return maxOf(history[split:]) <= maxOf(history[:split])+epsilon
	}
}

// Any stops as soon as one of conds does.
func Any(conds ...StopCondition) StopCondition {
	return func(history []float64) bool {
		for _, c := range conds {
			if c(history) {
				return true
			}
		}
		return false
	}
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
