package evolve

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/pthm-cable/neurosnake/config"
	"github.com/pthm-cable/neurosnake/game"
	"github.com/pthm-cable/neurosnake/genetic"
	"github.com/pthm-cable/neurosnake/neural"
)

// Generation is an evaluated population handed to hooks before it is
// replaced.
type Generation struct {
	Index      int
	Population Population
	Breeding   genetic.BreedStats // operators applied to produce this population
	EvalTime   time.Duration
}

// Hook is called once per generation after evaluation. An error aborts the
// run.
type Hook func(ctx context.Context, gen *Generation) error

// Option configures an Engine.
type Option func(*Engine)

// WithSeeds starts the first population from the given parameter sets. Extra
// seeds are dropped and missing individuals are drawn at random.
func WithSeeds(seeds []*neural.ParameterSet) Option {
	return func(e *Engine) { e.seeds = seeds }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// OnGeneration registers a hook.
func OnGeneration(h Hook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}

// Engine owns the population and runs the generational loop.
type Engine struct {
	cfg     *config.Config
	arch    neural.Architecture
	act     neural.Activation
	breed   genetic.Params
	workers int

	rng    *rand.Rand // initial population and breeding
	logger *slog.Logger
	hooks  []Hook
	seeds  []*neural.ParameterSet

	pop        Population
	generation int
	lastBreed  genetic.BreedStats
	history    []float64
}

// New builds the first population. The configuration is validated first.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	act, err := neural.ParseActivation(cfg.Network.Activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg:  cfg,
		arch: neural.Architecture(cfg.Network.Architecture).Clone(),
		act:  act,
		breed: genetic.Params{
			TournamentSize: cfg.Evolution.TournamentSize,
			CrossoverRate:  cfg.Evolution.CrossoverRate,
			MutationRate:   cfg.Evolution.MutationRate,
		},
		workers: cfg.Evolution.Workers,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		logger:  slog.Default(),
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	for _, opt := range opts {
		opt(e)
	}

	pop, err := e.initialPopulation()
	if err != nil {
		return nil, err
	}
	e.pop = pop
	return e, nil
}

func (e *Engine) initialPopulation() (Population, error) {
	n := e.cfg.Evolution.Population
	pop := make(Population, n)
	seeded := 0
	for i := 0; i < n; i++ {
		if i < len(e.seeds) {
			if err := e.seeds[i].Conforms(e.arch); err != nil {
				return nil, fmt.Errorf("seed %d: %w", i, err)
			}
			pop[i].Params = e.seeds[i].Clone()
			seeded++
			continue
		}
		params, err := neural.NewRandomParameters(e.rng, e.arch, e.cfg.Network.InitScale)
		if err != nil {
			return nil, err
		}
		pop[i].Params = params
	}
	if len(e.seeds) > 0 {
		e.logger.Info("population seeded", "seeded", seeded, "random", n-seeded, "dropped", max(0, len(e.seeds)-n))
	}
	return pop, nil
}

// Population returns the current population.
func (e *Engine) Population() Population { return e.pop }

// Generation returns the index of the current population, counted from 0.
func (e *Engine) Generation() int { return e.generation }

// Architecture returns the network shape every individual shares.
func (e *Engine) Architecture() neural.Architecture { return e.arch }

// History returns the best fitness of every evaluated generation.
func (e *Engine) History() []float64 { return e.history }

// Network binds an individual's parameters to the run's architecture.
func (e *Engine) Network(ind *Individual) (*neural.Network, error) {
	return neural.NewNetwork(e.arch, ind.Params, e.act)
}

// Evaluate plays one game per individual on a bounded worker pool. Each
// individual writes only its own slot. Cancellation is checked before each
// game starts; a started game runs to its end.
func (e *Engine) Evaluate(ctx context.Context) error {
	p := pool.New().WithMaxGoroutines(e.workers).WithContext(ctx).WithCancelOnError()
	for i := range e.pop {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return e.evaluate(i)
		})
	}
	return p.Wait()
}

func (e *Engine) evaluate(i int) error {
	ind := &e.pop[i]
	ind.Seed = DeriveSeed(e.cfg.Seed, e.generation, i)

	res, err := e.Play(ind)
	if err != nil {
		return fmt.Errorf("generation %d individual %d: %w", e.generation, i, err)
	}
	ind.Fitness = res.Fitness
	ind.Score = res.Score
	ind.Steps = res.Steps
	ind.Captures = res.Captures
	ind.Outcome = res.Outcome
	ind.evaluated = true
	return nil
}

// Play runs the individual's game with its recorded seed. Passing
// game.WithObserver replays an evaluated individual tick by tick.
func (e *Engine) Play(ind *Individual, opts ...game.Option) (game.Result, error) {
	net, err := e.Network(ind)
	if err != nil {
		return game.Result{}, err
	}
	g, err := game.New(e.cfg, net, ind.Seed, opts...)
	if err != nil {
		return game.Result{}, err
	}
	return g.Run()
}

// Breed replaces the population with children of the current one. The
// current population must have been evaluated.
func (e *Engine) Breed() error {
	parents, err := e.pop.Chromosomes(e.arch)
	if err != nil {
		return err
	}
	children, stats, err := genetic.Breed(e.rng, parents, e.pop.Fitness(), e.breed)
	if err != nil {
		return fmt.Errorf("breeding generation %d: %w", e.generation, err)
	}

	next := make(Population, len(children))
	for i, c := range children {
		params, err := neural.Reshape(c, e.arch)
		if err != nil {
			return err
		}
		next[i].Params = params
	}

	e.logger.Debug("bred",
		"generation", e.generation+1,
		"crossovers", stats.Crossovers,
		"mutations", stats.Mutations,
	)

	e.pop = next
	e.lastBreed = stats
	e.generation++
	return nil
}

// Step evaluates the current population, runs the hooks and breeds the next
// one. It returns the evaluated generation.
func (e *Engine) Step(ctx context.Context) (*Generation, error) {
	start := time.Now()
	if err := e.Evaluate(ctx); err != nil {
		return nil, err
	}

	gen := &Generation{
		Index:      e.generation,
		Population: e.pop,
		Breeding:   e.lastBreed,
		EvalTime:   time.Since(start),
	}
	e.history = append(e.history, e.pop[e.pop.Best()].Fitness)

	for _, h := range e.hooks {
		if err := h(ctx, gen); err != nil {
			return gen, fmt.Errorf("generation %d hook: %w", gen.Index, err)
		}
	}

	if err := e.Breed(); err != nil {
		return gen, err
	}
	return gen, nil
}

// Run steps until stop fires or ctx is cancelled and returns the last
// evaluated generation.
func (e *Engine) Run(ctx context.Context, stop StopCondition) (*Generation, error) {
	var last *Generation
	for !stop(e.history) {
		gen, err := e.Step(ctx)
		if err != nil {
			return last, err
		}
		last = gen
	}
	return last, nil
}
