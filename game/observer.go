package game

import "github.com/pthm-cable/neurosnake/components"

// Observer receives a snapshot after every tick. Observe must not block for
// long; it runs on the game's goroutine.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

// Observe calls f(s).
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Snapshot is the visible state of a game after a tick.
type Snapshot struct {
	Tick        int                `json:"tick"`
	Body        []components.Cell  `json:"body"`
	Heading     string             `json:"heading"`
	Target      components.Cell    `json:"target"`
	Energy      int                `json:"energy"`
	Fitness     float64            `json:"fitness"`
	Score       int                `json:"score"`
	Steps       int                `json:"steps"`
	Outcome     components.Outcome `json:"outcome"`
	Inputs      []float64          `json:"inputs"`
	Activations [][]float64        `json:"activations,omitempty"`
}

func newSnapshot(
	tick int,
	body *components.Body,
	heading *components.Heading,
	energy *components.Energy,
	brain *components.Brain,
	vitals *components.Vitals,
	target *components.Target,
) *Snapshot {
	return &Snapshot{
		Tick:        tick,
		Body:        body.Snapshot(),
		Heading:     heading.Dir.String(),
		Target:      target.Cell,
		Energy:      energy.Value,
		Fitness:     vitals.Fitness,
		Score:       vitals.Score,
		Steps:       vitals.Steps,
		Outcome:     vitals.Outcome,
		Inputs:      append([]float64(nil), brain.Inputs...),
		Activations: brain.Trace,
	}
}
