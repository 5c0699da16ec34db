package systems

import (
	"math/rand"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/config"
)

// Feed handles a capture when the head is on the target. The bonus uses the
// energy left before the refill. If growth fills the grid the run ends with
// OutcomeFilled and the target stays put; otherwise the target is relocated
// to a free cell and the distance reference is reset to it.
func Feed(
	rng *rand.Rand,
	body *components.Body,
	energy *components.Energy,
	vitals *components.Vitals,
	target *components.Target,
	grid components.Grid,
	cfg *config.Config,
) bool {
	if body.Head() != target.Cell {
		return false
	}

	vitals.Fitness += cfg.Reward.CaptureBonus + cfg.Reward.EnergyBonus*float64(energy.Value)
	vitals.Captures++
	if cfg.World.GrowOnCapture {
		body.Grow()
	}
	vitals.Score = body.Len()
	energy.Value = cfg.Energy.Refill

	if body.Len() >= grid.Cells() {
		vitals.Outcome = components.OutcomeFilled
		return true
	}

	target.Cell = RelocateTarget(rng, body, grid)
	vitals.LastDistance = Distance(body.Head(), target.Cell)
	return true
}

// RelocateTarget draws cells uniformly until one is free of the body. The
// caller must make sure a free cell exists.
func RelocateTarget(rng *rand.Rand, body *components.Body, grid components.Grid) components.Cell {
	for {
		c := components.Cell{X: rng.Intn(grid.Width), Y: rng.Intn(grid.Height)}
		if !body.Occupies(c) {
			return c
		}
	}
}
