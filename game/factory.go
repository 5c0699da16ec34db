package game

import (
	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/neural"
	"github.com/pthm-cable/neurosnake/systems"
)

// spawn creates the agent at the grid centre heading right, with its body
// stacked on the start cell, and places the first target.
func (g *Game) spawn(net *neural.Network) {
	start := g.grid.Center()

	body := components.NewBody(start, g.cfg.World.InitialLength)
	heading := components.Heading{Dir: components.Right}
	energy := components.Energy{Value: g.cfg.Energy.Initial}
	brain := components.Brain{
		Net:     net,
		Inputs:  make([]float64, 0, g.cfg.Derived.NumInputs),
		Capture: g.observer != nil,
	}

	var target components.Target
	if g.fixedTarget != nil {
		target.Cell = *g.fixedTarget
	} else {
		target.Cell = systems.RelocateTarget(g.rng, &body, g.grid)
	}

	vitals := components.Vitals{
		Score:        body.Len(),
		LastDistance: systems.Distance(start, target.Cell),
	}

	g.agent = g.agentMapper.NewEntity(&body, &heading, &energy, &brain, &vitals)
	g.target = g.targetMap.NewEntity(&target)
}
