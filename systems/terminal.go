package systems

import "github.com/pthm-cable/neurosnake/components"

// CheckTerminal reports the condition that ends the run after a move, in
// priority order, or OutcomeRunning. maxTicks of 0 disables the tick cap.
func CheckTerminal(
	body *components.Body,
	energy *components.Energy,
	vitals *components.Vitals,
	grid components.Grid,
	maxTicks int,
) components.Outcome {
	switch {
	case energy.Value <= 0:
		return components.OutcomeStarved
	case body.HeadOnBody():
		return components.OutcomeCollided
	case !grid.Contains(body.Head()):
		return components.OutcomeOutOfBounds
	case body.Len() >= grid.Cells():
		return components.OutcomeFilled
	case maxTicks > 0 && vitals.Steps >= maxTicks:
		return components.OutcomeTimeout
	}
	return components.OutcomeRunning
}
