package evolve

// DeriveSeed returns the game seed for individual index of a generation.
// Seeds depend only on their inputs, so results do not depend on how many
// workers evaluate the population or in which order.
func DeriveSeed(runSeed int64, generation, index int) int64 {
	x := uint64(runSeed)
	x = splitmix64(x ^ uint64(generation))
	x = splitmix64(x ^ uint64(index))
	return int64(x >> 1)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
