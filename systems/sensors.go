// Package systems holds the per-tick rules of the grid game.
package systems

import (
	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/config"
)

// Input layout. The target delta is always first; enabled extensions follow
// in the order below.
const (
	TargetInputs = 2 // dx, dy from head to target
	WallInputs   = 4 // left, up, right, down
	BodyInputs   = 4 // left, up, right, down
)

// bodyScan is the absolute scan order shared by the wall and body sensors.
var bodyScan = [4]components.Direction{components.Left, components.Up, components.Right, components.Down}

// InputLabels returns a name for every input enabled by the sensor config.
func InputLabels(s config.SensorsConfig) []string {
	labels := []string{"target_dx", "target_dy"}
	if s.Walls {
		labels = append(labels, "wall_left", "wall_up", "wall_right", "wall_down")
	}
	if s.Body {
		labels = append(labels, "body_left", "body_up", "body_right", "body_down")
	}
	return labels
}

// BuildInputs computes the network input vector into dst, reusing its
// backing array when it is large enough.
func BuildInputs(
	dst []float64,
	body *components.Body,
	target components.Cell,
	grid components.Grid,
	sensors config.SensorsConfig,
) []float64 {
	dst = dst[:0]
	head := body.Head()

	dst = append(dst, float64(target.X-head.X), float64(target.Y-head.Y))

	if sensors.Walls {
		dst = append(dst,
			float64(head.X),
			float64(head.Y),
			float64(grid.Width-1-head.X),
			float64(grid.Height-1-head.Y),
		)
	}

	if sensors.Body {
		for _, d := range bodyScan {
			dst = append(dst, bodyProximity(body, d, grid))
		}
	}

	return dst
}

// bodyProximity scans from the head along d and returns 1/k for the first
// trailing segment k cells away, or 0 if the scan leaves the grid first.
func bodyProximity(body *components.Body, d components.Direction, grid components.Grid) float64 {
	head := body.Head()
	trailing := body.Trailing()
	step := d.Delta()
	c := head.Add(step)
	for k := 1; grid.Contains(c); k++ {
		for _, seg := range trailing {
			if seg == c {
				return 1 / float64(k)
			}
		}
		c = c.Add(step)
	}
	return 0
}
