package evolve

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/neurosnake/config"
	"github.com/pthm-cable/neurosnake/game"
	"github.com/pthm-cable/neurosnake/neural"
)

var update = flag.Bool("update", false, "rewrite golden files")

func testConfig(workers int) *config.Config {
	cfg := config.Default()
	cfg.Seed = 20240607
	cfg.Network.Architecture = []int{2, 4, 3}
	cfg.Evolution.Population = 10
	cfg.Evolution.Generations = 5
	cfg.Evolution.TournamentSize = 3
	cfg.Evolution.CrossoverRate = 0.7
	cfg.Evolution.MutationRate = 0.1
	cfg.Evolution.Workers = workers
	cfg.ComputeDerived()
	return cfg
}

// runMeans runs a full evolution and returns the mean fitness per generation.
func runMeans(t *testing.T, cfg *config.Config) []float64 {
	t.Helper()
	var means []float64
	hook := func(_ context.Context, gen *Generation) error {
		sum := 0.0
		for _, ind := range gen.Population {
			sum += ind.Fitness
		}
		means = append(means, sum/float64(len(gen.Population)))
		return nil
	}

	e, err := New(cfg, OnGeneration(hook))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Run(context.Background(), MaxGenerations(cfg.Evolution.Generations)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return means
}

func TestRunGolden(t *testing.T) {
	got := runMeans(t, testConfig(2))
	if len(got) != 5 {
		t.Fatalf("got %d generations, want 5", len(got))
	}

	path := filepath.Join("testdata", "mean_fitness.golden.json")
	if *update {
		data, err := json.MarshalIndent(got, "", "  ")
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		t.Logf("recorded %s", path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading golden file (rerun with -update to record it): %v", err)
	}
	var want []float64
	if err := json.Unmarshal(data, &want); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(want) != len(got) {
		t.Fatalf("golden has %d generations, run produced %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("generation %d: mean fitness %v, golden %v", i, got[i], want[i])
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	a := runMeans(t, testConfig(2))
	b := runMeans(t, testConfig(2))
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("generation %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRunIndependentOfWorkers(t *testing.T) {
	serial := runMeans(t, testConfig(1))
	parallel := runMeans(t, testConfig(8))
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Errorf("generation %d: 1 worker %v, 8 workers %v", i, serial[i], parallel[i])
		}
	}
}

func TestStepReplacesPopulation(t *testing.T) {
	cfg := testConfig(2)
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := e.Population()
	gen, err := e.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if gen.Index != 0 || e.Generation() != 1 {
		t.Errorf("gen.Index = %d, engine generation = %d, want 0 and 1", gen.Index, e.Generation())
	}
	for i := range gen.Population {
		if !gen.Population[i].Evaluated() {
			t.Errorf("individual %d was not evaluated", i)
		}
	}

	after := e.Population()
	if len(after) != len(before) {
		t.Fatalf("population size changed from %d to %d", len(before), len(after))
	}
	for i := range after {
		if after[i].Evaluated() {
			t.Errorf("child %d carries an evaluation", i)
		}
		for j := range before {
			if after[i].Params == before[j].Params {
				t.Errorf("child %d shares parameters with parent %d", i, j)
			}
		}
	}
	if len(e.History()) != 1 {
		t.Errorf("history has %d entries, want 1", len(e.History()))
	}
}

func TestPlayReplaysEvaluation(t *testing.T) {
	e, err := New(testConfig(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gen, err := e.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	best := &gen.Population[gen.Population.Best()]
	ticks := 0
	res, err := e.Play(best, game.WithObserver(game.ObserverFunc(func(game.Snapshot) { ticks++ })))
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Fitness != best.Fitness || res.Steps != best.Steps || res.Score != best.Score {
		t.Errorf("replay %+v differs from evaluation (fitness %v, steps %d, score %d)", res, best.Fitness, best.Steps, best.Score)
	}
	if ticks != best.Steps {
		t.Errorf("observer saw %d ticks, want %d", ticks, best.Steps)
	}
}

func TestWithSeeds(t *testing.T) {
	cfg := testConfig(1)
	arch := neural.Architecture(cfg.Network.Architecture)
	rng := rand.New(rand.NewSource(42))

	seeds := make([]*neural.ParameterSet, 3)
	for i := range seeds {
		p, err := neural.NewRandomParameters(rng, arch, 1)
		if err != nil {
			t.Fatalf("NewRandomParameters: %v", err)
		}
		seeds[i] = p
	}

	e, err := New(cfg, WithSeeds(seeds))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := e.Population()
	if len(pop) != cfg.Evolution.Population {
		t.Fatalf("population size %d, want %d", len(pop), cfg.Evolution.Population)
	}
	for i, s := range seeds {
		if !pop[i].Params.Equal(s) {
			t.Errorf("individual %d does not match its seed", i)
		}
		if pop[i].Params == s {
			t.Errorf("individual %d aliases its seed", i)
		}
	}
}

func TestWithSeedsTruncates(t *testing.T) {
	cfg := testConfig(1)
	cfg.Evolution.Population = 2
	arch := neural.Architecture(cfg.Network.Architecture)
	rng := rand.New(rand.NewSource(42))

	var seeds []*neural.ParameterSet
	for i := 0; i < 5; i++ {
		p, _ := neural.NewRandomParameters(rng, arch, 1)
		seeds = append(seeds, p)
	}

	e, err := New(cfg, WithSeeds(seeds))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(e.Population()) != 2 {
		t.Errorf("population size %d, want 2", len(e.Population()))
	}
}

func TestWithSeedsRejectsWrongShape(t *testing.T) {
	cfg := testConfig(1)
	p, _ := neural.NewRandomParameters(rand.New(rand.NewSource(1)), neural.Architecture{2, 5, 3}, 1)

	if _, err := New(cfg, WithSeeds([]*neural.ParameterSet{p})); !errors.Is(err, neural.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(1)
	cfg.Evolution.Population = 9

	if _, err := New(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	e, err := New(testConfig(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Evaluate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHookErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	hook := func(context.Context, *Generation) error {
		calls++
		return boom
	}

	e, err := New(testConfig(2), OnGeneration(hook))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Run(context.Background(), MaxGenerations(5)); !errors.Is(err, boom) {
		t.Errorf("expected hook error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("hook called %d times, want 1", calls)
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := testConfig(0)
	cfg.Evolution.Population = 100
	e, err := New(cfg)
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Step(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
