package game

import (
	"fmt"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/systems"
)

// Step runs a single tick:
//  1. sensors build the network inputs
//  2. the brain picks a relative turn
//  3. the agent moves and spends energy
//  4. terminal conditions are checked
//  5. progress toward the target is rewarded
//  6. a capture pays its bonus, grows the agent and relocates the target
func (g *Game) Step() error {
	if g.done {
		return ErrFinished
	}

	target := g.targetMap.Get(g.target)

	var (
		err  error
		snap *Snapshot
	)
	query := g.agentFilter.Query()
	for query.Next() {
		body, heading, energy, brain, vitals := query.Get()
		if err = g.stepAgent(body, heading, energy, brain, vitals, target); err != nil {
			continue
		}
		if g.observer != nil {
			snap = newSnapshot(g.tick+1, body, heading, energy, brain, vitals, target)
		}
	}
	if err != nil {
		return fmt.Errorf("tick %d: %w", g.tick, err)
	}

	g.tick++
	if snap != nil {
		g.observer.Observe(*snap)
	}
	return nil
}

func (g *Game) stepAgent(
	body *components.Body,
	heading *components.Heading,
	energy *components.Energy,
	brain *components.Brain,
	vitals *components.Vitals,
	target *components.Target,
) error {
	brain.Inputs = systems.BuildInputs(brain.Inputs, body, target.Cell, g.grid, g.cfg.Sensors)

	if _, err := systems.Steer(brain, heading); err != nil {
		return err
	}

	systems.Move(body, heading, energy, vitals)

	if outcome := systems.CheckTerminal(body, energy, vitals, g.grid, g.cfg.World.MaxTicks); outcome != components.OutcomeRunning {
		vitals.Outcome = outcome
		g.done = true
		return nil
	}

	systems.Reward(body, target.Cell, vitals, g.cfg.Reward)

	if systems.Feed(g.rng, body, energy, vitals, target, g.grid, g.cfg) && vitals.Outcome != components.OutcomeRunning {
		g.done = true
	}
	return nil
}
