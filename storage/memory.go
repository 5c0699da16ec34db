package storage

import (
	"context"
	"slices"
	"sync"
)

type generationKey struct {
	runID      string
	generation int
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]RunInfo
	runOrder    []string
	generations map[generationKey][]Record
	latest      map[string]int
}

// NewMemoryStore creates an empty store. Call Init before use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]RunInfo)
	s.runOrder = nil
	s.generations = make(map[generationKey][]Record)
	s.latest = make(map[string]int)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, ok := s.runs[run.ID]; !ok {
		s.runOrder = append(s.runOrder, run.ID)
	}
	run.Architecture = slices.Clone(run.Architecture)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (RunInfo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return RunInfo{}, false, ErrNotInitialized
	}
	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	for _, r := range records {
		if _, ok := s.runs[r.RunID]; !ok {
			s.runOrder = append(s.runOrder, r.RunID)
			s.runs[r.RunID] = RunInfo{ID: r.RunID}
		}
		key := generationKey{r.RunID, r.Generation}
		s.generations[key] = upsertRecord(s.generations[key], cloneRecord(r))
		if latest, ok := s.latest[r.RunID]; !ok || r.Generation > latest {
			s.latest[r.RunID] = r.Generation
		}
	}
	return nil
}

func (s *MemoryStore) GetGeneration(_ context.Context, runID string, generation int) ([]Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	records, ok := s.generations[generationKey{runID, generation}]
	if !ok {
		return nil, false, nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = cloneRecord(r)
	}
	return out, true, nil
}

func (s *MemoryStore) LoadLatest(ctx context.Context, runID string) ([]Record, bool, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return nil, false, ErrNotInitialized
	}
	if runID == "" {
		for i := len(s.runOrder) - 1; i >= 0; i-- {
			if _, ok := s.latest[s.runOrder[i]]; ok {
				runID = s.runOrder[i]
				break
			}
		}
	}
	gen, ok := s.latest[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	return s.GetGeneration(ctx, runID, gen)
}

// upsertRecord replaces the record with the same index or inserts it in
// index order.
func upsertRecord(records []Record, r Record) []Record {
	i, found := slices.BinarySearchFunc(records, r.Index, func(e Record, idx int) int {
		return e.Index - idx
	})
	if found {
		records[i] = r
		return records
	}
	return slices.Insert(records, i, r)
}

func cloneRecord(r Record) Record {
	r.Architecture = slices.Clone(r.Architecture)
	r.Chromosome = r.Chromosome.Clone()
	return r
}
