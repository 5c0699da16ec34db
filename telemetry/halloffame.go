package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/neurosnake/evolve"
	"github.com/pthm-cable/neurosnake/neural"
)

// HallEntry is one of the best individuals seen during a run.
type HallEntry struct {
	RunID      string            `json:"run_id"`
	Generation int               `json:"generation"`
	Index      int               `json:"index"`
	Fitness    float64           `json:"fitness"`
	Score      int               `json:"score"`
	Steps      int               `json:"steps"`
	Outcome    string            `json:"outcome"`
	Seed       int64             `json:"seed"`
	Chromosome neural.Chromosome `json:"chromosome"`
}

// HallOfFame keeps the top individuals across every generation, sorted by
// fitness, best first.
type HallOfFame struct {
	runID   string
	arch    neural.Architecture
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates an empty hall with the given capacity.
func NewHallOfFame(runID string, arch neural.Architecture, maxSize int) *HallOfFame {
	return &HallOfFame{
		runID:   runID,
		arch:    arch.Clone(),
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers every individual of an evaluated generation to the hall.
// Returns the number of individuals that entered.
func (hof *HallOfFame) Consider(gen *evolve.Generation) (int, error) {
	added := 0
	for i := range gen.Population {
		ind := &gen.Population[i]
		if !hof.qualifies(ind.Fitness) {
			continue
		}
		c, err := neural.Flatten(ind.Params, hof.arch)
		if err != nil {
			return added, fmt.Errorf("hall of fame: %w", err)
		}
		hof.entries = hof.insertEntry(hof.entries, HallEntry{
			RunID:      hof.runID,
			Generation: gen.Index,
			Index:      i,
			Fitness:    ind.Fitness,
			Score:      ind.Score,
			Steps:      ind.Steps,
			Outcome:    ind.Outcome.String(),
			Seed:       ind.Seed,
			Chromosome: c,
		})
		added++
	}
	return added, nil
}

func (hof *HallOfFame) qualifies(fitness float64) bool {
	if hof.maxSize <= 0 {
		return false
	}
	return len(hof.entries) < hof.maxSize || fitness > hof.entries[len(hof.entries)-1].Fitness
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed. Equal fitness
// keeps the earlier entry ahead.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	// Insert at position
	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	// Trim if over capacity
	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}

	return hall
}

// Entries returns the hall, best first.
func (hof *HallOfFame) Entries() []HallEntry { return hof.entries }

// Size returns the number of entries.
func (hof *HallOfFame) Size() int { return len(hof.entries) }

// TopFitness returns the highest fitness in the hall, or 0 if it is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// Seeds decodes every entry into a parameter set for seeding a new run.
func (hof *HallOfFame) Seeds() ([]*neural.ParameterSet, error) {
	seeds := make([]*neural.ParameterSet, 0, len(hof.entries))
	for i, e := range hof.entries {
		p, err := neural.Reshape(e.Chromosome, hof.arch)
		if err != nil {
			return nil, fmt.Errorf("hall of fame entry %d: %w", i, err)
		}
		seeds = append(seeds, p)
	}
	return seeds, nil
}

// hallOfFameJSON is the JSON-serializable representation of the hall.
type hallOfFameJSON struct {
	RunID        string      `json:"run_id"`
	Architecture []int       `json:"architecture"`
	Entries      []HallEntry `json:"entries"`
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hallOfFameJSON{
		RunID:        hof.runID,
		Architecture: hof.arch,
		Entries:      hof.entries,
	}, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file. Every chromosome is
// checked against the recorded architecture.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw hallOfFameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	arch := neural.Architecture(raw.Architecture)
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("hall of fame: %w", err)
	}
	for i, e := range raw.Entries {
		if len(e.Chromosome) != arch.ChromosomeLen() {
			return nil, fmt.Errorf("hall of fame entry %d: %w: %d genes, want %d", i, neural.ErrChromosomeLength, len(e.Chromosome), arch.ChromosomeLen())
		}
	}

	hof := NewHallOfFame(raw.RunID, arch, max(len(raw.Entries), 1))
	for _, e := range raw.Entries {
		hof.entries = hof.insertEntry(hof.entries, e)
	}
	return hof, nil
}
