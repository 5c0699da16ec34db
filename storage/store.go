// Package storage archives evaluated individuals so a later run can resume
// from them.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/neurosnake/evolve"
	"github.com/pthm-cable/neurosnake/neural"
)

// ErrNotInitialized is returned when a store is used before Init.
var ErrNotInitialized = errors.New("store is not initialized")

// Store persists runs and their evaluated generations.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunInfo) error
	GetRun(ctx context.Context, id string) (RunInfo, bool, error)
	SaveGeneration(ctx context.Context, records []Record) error
	GetGeneration(ctx context.Context, runID string, generation int) ([]Record, bool, error)
	// LoadLatest returns the last saved generation of runID, or of the most
	// recently saved run when runID is empty.
	LoadLatest(ctx context.Context, runID string) ([]Record, bool, error)
}

// RunInfo describes one evolution run.
type RunInfo struct {
	ID           string    `json:"id"`
	Seed         int64     `json:"seed"`
	Architecture []int     `json:"architecture"`
	StartedAt    time.Time `json:"started_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record is the persistent form of an evaluated individual.
type Record struct {
	RunID        string            `json:"run_id"`
	Generation   int               `json:"generation"`
	Index        int               `json:"index"`
	Fitness      float64           `json:"fitness"`
	Score        int               `json:"score"`
	Steps        int               `json:"steps"`
	Seed         int64             `json:"seed"`
	Outcome      string            `json:"outcome"`
	Architecture []int             `json:"architecture"`
	Chromosome   neural.Chromosome `json:"chromosome"`
}

// Parameters decodes the chromosome with the recorded architecture.
func (r Record) Parameters() (*neural.ParameterSet, error) {
	return neural.Reshape(r.Chromosome, neural.Architecture(r.Architecture))
}

// FromGeneration converts an evaluated generation to records.
func FromGeneration(runID string, arch neural.Architecture, gen *evolve.Generation) ([]Record, error) {
	records := make([]Record, len(gen.Population))
	for i := range gen.Population {
		ind := &gen.Population[i]
		c, err := neural.Flatten(ind.Params, arch)
		if err != nil {
			return nil, err
		}
		records[i] = Record{
			RunID:        runID,
			Generation:   gen.Index,
			Index:        i,
			Fitness:      ind.Fitness,
			Score:        ind.Score,
			Steps:        ind.Steps,
			Seed:         ind.Seed,
			Outcome:      ind.Outcome.String(),
			Architecture: arch.Clone(),
			Chromosome:   c,
		}
	}
	return records, nil
}

// Seeds decodes records into parameter sets, fittest first.
func Seeds(records []Record) ([]*neural.ParameterSet, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness > sorted[j].Fitness
	})

	seeds := make([]*neural.ParameterSet, len(sorted))
	for i, r := range sorted {
		p, err := r.Parameters()
		if err != nil {
			return nil, err
		}
		seeds[i] = p
	}
	return seeds, nil
}
