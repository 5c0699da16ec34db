package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists to a single SQLite file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store backed by the file at path. Call Init
// before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run RunInfo) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	arch, err := encodeArchitecture(run.Architecture)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, architecture, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seed = excluded.seed,
			architecture = excluded.architecture,
			started_at = excluded.started_at
	`, run.ID, run.Seed, arch, run.StartedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (RunInfo, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return RunInfo{}, false, err
	}

	var (
		run     RunInfo
		arch    string
		started string
	)
	err = db.QueryRowContext(ctx, `SELECT id, seed, architecture, started_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Seed, &arch, &started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunInfo{}, false, nil
		}
		return RunInfo{}, false, err
	}

	if run.Architecture, err = decodeArchitecture(arch); err != nil {
		return RunInfo{}, false, fmt.Errorf("decode run %s architecture: %w", id, err)
	}
	if started != "" {
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return RunInfo{}, false, fmt.Errorf("decode run %s start time: %w", id, err)
		}
	}
	return run, true, nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, records []Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		arch, err := encodeArchitecture(r.Architecture)
		if err != nil {
			return err
		}
		payload, err := EncodeChromosome(r.Chromosome)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, seed, architecture, started_at)
			VALUES (?, 0, ?, '')
			ON CONFLICT(id) DO NOTHING
		`, r.RunID, arch); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (run_id, generation, idx, fitness, score, steps, seed, outcome, architecture, chromosome)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, generation, idx) DO UPDATE SET
				fitness = excluded.fitness,
				score = excluded.score,
				steps = excluded.steps,
				seed = excluded.seed,
				outcome = excluded.outcome,
				architecture = excluded.architecture,
				chromosome = excluded.chromosome
		`, r.RunID, r.Generation, r.Index, r.Fitness, r.Score, r.Steps, r.Seed, r.Outcome, arch, payload); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetGeneration(ctx context.Context, runID string, generation int) ([]Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, idx, fitness, score, steps, seed, outcome, architecture, chromosome
		FROM records
		WHERE run_id = ? AND generation = ?
		ORDER BY idx
	`, runID, generation)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			arch    string
			payload []byte
		)
		if err := rows.Scan(&r.RunID, &r.Generation, &r.Index, &r.Fitness, &r.Score, &r.Steps, &r.Seed, &r.Outcome, &arch, &payload); err != nil {
			return nil, false, err
		}
		if r.Architecture, err = decodeArchitecture(arch); err != nil {
			return nil, false, fmt.Errorf("decode record %s/%d/%d architecture: %w", runID, generation, r.Index, err)
		}
		if r.Chromosome, err = DecodeChromosome(payload); err != nil {
			return nil, false, fmt.Errorf("decode record %s/%d/%d chromosome: %w", runID, generation, r.Index, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return records, len(records) > 0, nil
}

func (s *SQLiteStore) LoadLatest(ctx context.Context, runID string) ([]Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	if runID == "" {
		err = db.QueryRowContext(ctx, `
			SELECT r.id FROM runs r
			WHERE EXISTS (SELECT 1 FROM records WHERE run_id = r.id)
			ORDER BY r.seq DESC
			LIMIT 1
		`).Scan(&runID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, nil
			}
			return nil, false, err
		}
	}

	var generation sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(generation) FROM records WHERE run_id = ?`, runID).Scan(&generation); err != nil {
		return nil, false, err
	}
	if !generation.Valid {
		return nil, false, nil
	}
	return s.GetGeneration(ctx, runID, int(generation.Int64))
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			seed INTEGER NOT NULL,
			architecture TEXT NOT NULL,
			started_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			fitness REAL NOT NULL,
			score INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			architecture TEXT NOT NULL,
			chromosome BLOB NOT NULL,
			PRIMARY KEY (run_id, generation, idx)
		);
	`)
	return err
}
