package systems

import (
	"math"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/config"
)

// Distance returns the Euclidean distance between two cells.
func Distance(a, b components.Cell) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// Reward scores the move just made: approach if the head got strictly closer
// to the target, retreat otherwise. LastDistance is updated for the next tick.
func Reward(body *components.Body, target components.Cell, vitals *components.Vitals, rw config.RewardConfig) {
	d := Distance(body.Head(), target)
	if d < vitals.LastDistance {
		vitals.Fitness += rw.Approach
	} else {
		vitals.Fitness += rw.Retreat
	}
	vitals.LastDistance = d
}
