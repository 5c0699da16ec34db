// Package game runs one agent against one target on a grid until a terminal
// condition, producing the fitness the evolution loop selects on.
package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/config"
	"github.com/pthm-cable/neurosnake/neural"
)

// Outcome is the terminal condition that ended a game.
type Outcome = components.Outcome

// ErrFinished is returned by Step once the game has ended.
var ErrFinished = errors.New("game already finished")

// Result is the evaluation of one game.
type Result struct {
	Fitness  float64
	Score    int // final agent length
	Steps    int
	Captures int
	Outcome  Outcome
}

// Option configures a Game.
type Option func(*Game)

// WithObserver streams a snapshot to o after every tick. Layer activations
// are captured while an observer is attached.
func WithObserver(o Observer) Option {
	return func(g *Game) { g.observer = o }
}

// WithTarget places the first target at c instead of drawing it.
func WithTarget(c components.Cell) Option {
	return func(g *Game) {
		g.fixedTarget = &c
	}
}

// Game holds the state of one evaluation run.
type Game struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config
	grid  components.Grid

	// Agent entity mapper and filter
	agentMapper *ecs.Map5[
		components.Body,
		components.Heading,
		components.Energy,
		components.Brain,
		components.Vitals,
	]
	agentFilter *ecs.Filter5[
		components.Body,
		components.Heading,
		components.Energy,
		components.Brain,
		components.Vitals,
	]
	targetMap *ecs.Map1[components.Target]

	agent  ecs.Entity
	target ecs.Entity

	observer    Observer
	fixedTarget *components.Cell

	tick int
	done bool
}

// New creates a game for net. The seed drives every random draw, so the same
// (config, network, seed) always plays the same game.
func New(cfg *config.Config, net *neural.Network, seed int64, opts ...Option) (*Game, error) {
	if got, want := net.Arch.Inputs(), cfg.Derived.NumInputs; got != want {
		return nil, fmt.Errorf("%w: network takes %d inputs, sensors produce %d", neural.ErrDimensionMismatch, got, want)
	}
	if got := net.Arch.Outputs(); got != config.Actions {
		return nil, fmt.Errorf("%w: network has %d outputs, want %d", neural.ErrDimensionMismatch, got, config.Actions)
	}

	world := ecs.NewWorld()
	g := &Game{
		world: world,
		rng:   rand.New(rand.NewSource(seed)),
		cfg:   cfg,
		grid:  components.Grid{Width: cfg.World.Width, Height: cfg.World.Height},
		agentMapper: ecs.NewMap5[
			components.Body,
			components.Heading,
			components.Energy,
			components.Brain,
			components.Vitals,
		](world),
		agentFilter: ecs.NewFilter5[
			components.Body,
			components.Heading,
			components.Energy,
			components.Brain,
			components.Vitals,
		](world),
		targetMap: ecs.NewMap1[components.Target](world),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.spawn(net)
	return g, nil
}

// Done reports whether the game has reached a terminal condition.
func (g *Game) Done() bool { return g.done }

// Tick returns the number of completed ticks.
func (g *Game) Tick() int { return g.tick }

// Result returns the current evaluation. It is final once Done is true.
func (g *Game) Result() Result {
	_, _, _, _, vitals := g.agentMapper.Get(g.agent)
	return Result{
		Fitness:  vitals.Fitness,
		Score:    vitals.Score,
		Steps:    vitals.Steps,
		Captures: vitals.Captures,
		Outcome:  vitals.Outcome,
	}
}

// Run steps the game until it ends and returns the result.
func (g *Game) Run() (Result, error) {
	for !g.done {
		if err := g.Step(); err != nil {
			return g.Result(), err
		}
	}
	return g.Result(), nil
}
