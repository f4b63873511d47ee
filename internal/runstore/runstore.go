// Package runstore provides optional Postgres persistence of exploration run
// records and the property violations they discovered, so a fleet of
// crdtcheck runs can be queried for history after the fact.
package runstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Run is one completed exploration.
type Run struct {
	ID            int64
	Topology      string
	StatesVisited int
	Passed        bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Violation is one property violation discovered during a run.
type Violation struct {
	RunID       int64
	Property    string
	Expectation string
}

// Store is a Postgres-backed run/violation recorder.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("runstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: ping: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id SERIAL PRIMARY KEY,
		topology TEXT NOT NULL,
		states_visited INTEGER NOT NULL,
		passed BOOLEAN NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS violations (
		id SERIAL PRIMARY KEY,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		property TEXT NOT NULL,
		expectation TEXT NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("runstore: migrate: %w", err)
	}
	return nil
}

// RecordRun inserts a completed run and its violations, returning the
// assigned run id.
func (s *Store) RecordRun(run Run, violations []Violation) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("runstore: begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(
		`INSERT INTO runs (topology, states_visited, passed, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		run.Topology, run.StatesVisited, run.Passed, run.StartedAt, run.FinishedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("runstore: insert run: %w", err)
	}

	for _, v := range violations {
		if _, err := tx.Exec(
			`INSERT INTO violations (run_id, property, expectation) VALUES ($1, $2, $3)`,
			id, v.Property, v.Expectation,
		); err != nil {
			return 0, fmt.Errorf("runstore: insert violation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("runstore: commit: %w", err)
	}
	return id, nil
}

// RecentFailures returns the most recent n runs that did not pass.
func (s *Store) RecentFailures(n int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, topology, states_visited, passed, started_at, finished_at
		 FROM runs WHERE passed = false ORDER BY finished_at DESC LIMIT $1`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("runstore: query: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Topology, &r.StatesVisited, &r.Passed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("runstore: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
