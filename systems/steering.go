package systems

import (
	"fmt"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/neural"
)

// Steer runs the brain on its current inputs and turns the heading toward
// the strongest output. The first output is turn left, the second go
// straight and the third turn right.
func Steer(brain *components.Brain, heading *components.Heading) (components.Action, error) {
	var out []float64
	if brain.Capture {
		trace, err := brain.Net.Trace(brain.Inputs)
		if err != nil {
			return components.Straight, fmt.Errorf("steering: %w", err)
		}
		brain.Trace = trace
		out = trace[len(trace)-1]
	} else {
		var err error
		out, err = brain.Net.Forward(brain.Inputs)
		if err != nil {
			return components.Straight, fmt.Errorf("steering: %w", err)
		}
	}

	action := components.Action(neural.Argmax(out))
	heading.Dir = heading.Dir.Turn(action)
	return action, nil
}
