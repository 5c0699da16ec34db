package storage

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/neurosnake/components"
	"github.com/pthm-cable/neurosnake/evolve"
	"github.com/pthm-cable/neurosnake/neural"
)

var testArch = neural.Architecture{2, 4, 3}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "neurosnake.db")),
	}
	for name, s := range stores {
		if err := s.Init(ctx); err != nil {
			t.Fatalf("%s init: %v", name, err)
		}
		t.Cleanup(func() { _ = CloseIfSupported(s) })
	}
	return stores
}

func testGeneration(t *testing.T, index, size int) *evolve.Generation {
	t.Helper()
	rng := rand.New(rand.NewSource(int64(index) + 100))
	pop := make(evolve.Population, size)
	for i := range pop {
		p, err := neural.NewRandomParameters(rng, testArch, 1)
		if err != nil {
			t.Fatalf("NewRandomParameters: %v", err)
		}
		pop[i] = evolve.Individual{
			Params:  p,
			Fitness: float64(i*10 - index),
			Score:   4 + i,
			Steps:   20 + i,
			Seed:    int64(1000 + i),
			Outcome: components.OutcomeStarved,
		}
	}
	return &evolve.Generation{Index: index, Population: pop}
}

func TestStoreGenerationRoundTrip(t *testing.T) {
	ctx := context.Background()
	gen := testGeneration(t, 2, 4)
	records, err := FromGeneration("run-a", testArch, gen)
	if err != nil {
		t.Fatalf("FromGeneration: %v", err)
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveGeneration(ctx, records); err != nil {
				t.Fatalf("SaveGeneration: %v", err)
			}

			loaded, ok, err := store.GetGeneration(ctx, "run-a", 2)
			if err != nil || !ok {
				t.Fatalf("GetGeneration: ok=%v err=%v", ok, err)
			}
			if len(loaded) != len(records) {
				t.Fatalf("loaded %d records, want %d", len(loaded), len(records))
			}
			for i, r := range loaded {
				want := records[i]
				if r.RunID != want.RunID || r.Generation != want.Generation || r.Index != want.Index ||
					r.Fitness != want.Fitness || r.Score != want.Score || r.Steps != want.Steps ||
					r.Seed != want.Seed || r.Outcome != want.Outcome {
					t.Errorf("record %d: got %+v, want %+v", i, r, want)
				}
				p, err := r.Parameters()
				if err != nil {
					t.Fatalf("Parameters: %v", err)
				}
				if !p.Equal(gen.Population[i].Params) {
					t.Errorf("record %d parameters differ after round trip", i)
				}
			}

			if _, ok, err := store.GetGeneration(ctx, "run-a", 3); err != nil || ok {
				t.Errorf("missing generation: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreUpsert(t *testing.T) {
	ctx := context.Background()
	records, err := FromGeneration("run-a", testArch, testGeneration(t, 0, 2))
	if err != nil {
		t.Fatalf("FromGeneration: %v", err)
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveGeneration(ctx, records); err != nil {
				t.Fatalf("SaveGeneration: %v", err)
			}
			updated := records[1]
			updated.Fitness = 999
			if err := store.SaveGeneration(ctx, []Record{updated}); err != nil {
				t.Fatalf("SaveGeneration: %v", err)
			}

			loaded, _, err := store.GetGeneration(ctx, "run-a", 0)
			if err != nil {
				t.Fatalf("GetGeneration: %v", err)
			}
			if len(loaded) != 2 {
				t.Fatalf("got %d records, want 2", len(loaded))
			}
			if loaded[1].Fitness != 999 {
				t.Errorf("fitness = %v, want 999", loaded[1].Fitness)
			}
		})
	}
}

func TestStoreLoadLatest(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.LoadLatest(ctx, ""); err != nil || ok {
				t.Fatalf("empty store: ok=%v err=%v", ok, err)
			}

			for _, run := range []string{"run-a", "run-b"} {
				if err := store.SaveRun(ctx, RunInfo{ID: run, Seed: 7, Architecture: testArch, StartedAt: time.Now()}); err != nil {
					t.Fatalf("SaveRun: %v", err)
				}
				for g := 0; g < 3; g++ {
					records, err := FromGeneration(run, testArch, testGeneration(t, g, 2))
					if err != nil {
						t.Fatalf("FromGeneration: %v", err)
					}
					if err := store.SaveGeneration(ctx, records); err != nil {
						t.Fatalf("SaveGeneration: %v", err)
					}
				}
			}

			latest, ok, err := store.LoadLatest(ctx, "")
			if err != nil || !ok {
				t.Fatalf("LoadLatest: ok=%v err=%v", ok, err)
			}
			if latest[0].RunID != "run-b" || latest[0].Generation != 2 {
				t.Errorf("latest is %s generation %d, want run-b generation 2", latest[0].RunID, latest[0].Generation)
			}

			latest, ok, err = store.LoadLatest(ctx, "run-a")
			if err != nil || !ok {
				t.Fatalf("LoadLatest(run-a): ok=%v err=%v", ok, err)
			}
			if latest[0].RunID != "run-a" || latest[0].Generation != 2 {
				t.Errorf("got %s generation %d, want run-a generation 2", latest[0].RunID, latest[0].Generation)
			}

			if _, ok, err := store.LoadLatest(ctx, "missing"); err != nil || ok {
				t.Errorf("unknown run: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	run := RunInfo{ID: NewRunID(), Seed: 42, Architecture: []int{2, 4, 3}, StartedAt: started}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun: %v", err)
			}
			got, ok, err := store.GetRun(ctx, run.ID)
			if err != nil || !ok {
				t.Fatalf("GetRun: ok=%v err=%v", ok, err)
			}
			if got.ID != run.ID || got.Seed != run.Seed || !got.StartedAt.Equal(started) || len(got.Architecture) != 3 {
				t.Errorf("got %+v, want %+v", got, run)
			}
			if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
				t.Errorf("missing run: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreNotInitialized(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "x.db")),
	} {
		if err := store.SaveGeneration(ctx, nil); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("%s: expected ErrNotInitialized, got %v", name, err)
		}
	}
}

func TestSeedsFittestFirst(t *testing.T) {
	gen := testGeneration(t, 0, 3)
	records, err := FromGeneration("run", testArch, gen)
	if err != nil {
		t.Fatalf("FromGeneration: %v", err)
	}

	seeds, err := Seeds(records)
	if err != nil {
		t.Fatalf("Seeds: %v", err)
	}
	// Fitness grows with the index in testGeneration.
	if !seeds[0].Equal(gen.Population[2].Params) || !seeds[2].Equal(gen.Population[0].Params) {
		t.Error("seeds are not ordered by fitness")
	}
}

func TestRecordParametersRejectsWrongLength(t *testing.T) {
	r := Record{Architecture: testArch, Chromosome: neural.Chromosome{1, 2, 3}}
	if _, err := r.Parameters(); !errors.Is(err, neural.ErrChromosomeLength) {
		t.Errorf("expected ErrChromosomeLength, got %v", err)
	}
}

func TestNewStore(t *testing.T) {
	for _, kind := range []string{"", "memory", "sqlite"} {
		if _, err := NewStore(kind, filepath.Join(t.TempDir(), "f.db")); err != nil {
			t.Errorf("%q: %v", kind, err)
		}
	}
	if _, err := NewStore("postgres", ""); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestChromosomeCodec(t *testing.T) {
	c := neural.Chromosome{0.5, -1, 0.125}
	data, err := EncodeChromosome(c)
	if err != nil {
		t.Fatalf("EncodeChromosome: %v", err)
	}
	got, err := DecodeChromosome(data)
	if err != nil {
		t.Fatalf("DecodeChromosome: %v", err)
	}
	for i := range c {
		if got[i] != c[i] {
			t.Errorf("gene %d = %v, want %v", i, got[i], c[i])
		}
	}

	if _, err := DecodeChromosome([]byte(`{"v":9,"genes":[]}`)); err == nil {
		t.Error("expected a version error")
	}
}
