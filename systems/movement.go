package systems

import "github.com/pthm-cable/neurosnake/components"

// Move advances the body one cell along the heading and spends one unit of
// energy.
func Move(body *components.Body, heading *components.Heading, energy *components.Energy, vitals *components.Vitals) {
	body.Advance(heading.Dir)
	energy.Value--
	vitals.Steps++
}
