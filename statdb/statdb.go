// Package statdb persists per-run rule statistics in a SQLite database so
// rule effectiveness can be compared across corpus runs.
package statdb

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/relift/action"
)

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// Store handles SQLite storage for scheduler statistics.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Run summarizes one recorded pipeline run.
type Run struct {
	ID       string
	Function string
	Pipeline string
	Changes  int
	Created  time.Time
}

// RuleStat is one rule's counters within a run.
type RuleStat struct {
	Name    string
	Tests   int
	Applies int
}

// Open creates a statistics store backed by the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		function TEXT NOT NULL,
		pipeline TEXT NOT NULL,
		changes INTEGER NOT NULL,
		created TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS rule_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		tests INTEGER NOT NULL,
		applies INTEGER NOT NULL,
		PRIMARY KEY (run_id, name)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating rule_stats table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores the outcome of driving a tree over one function,
// harvesting per-rule counters from the tree. It returns the new run's id.
func (s *Store) RecordRun(function, pipeline string, changes int, tree action.Action) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, function, pipeline, changes, created) VALUES (?, ?, ?, ?, ?)",
		runID, function, pipeline, changes, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}

	for _, stat := range harvest(tree) {
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO rule_stats (run_id, name, tests, applies) VALUES (?, ?, ?, ?)",
			runID, stat.Name, stat.Tests, stat.Applies,
		)
		if err != nil {
			return "", fmt.Errorf("saving rule stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// LoadRun retrieves one run's summary.
func (s *Store) LoadRun(runID string) (*Run, error) {
	var run Run
	var created string
	err := s.db.QueryRow(
		"SELECT id, function, pipeline, changes, created FROM runs WHERE id = ?", runID,
	).Scan(&run.ID, &run.Function, &run.Pipeline, &run.Changes, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run.Created, _ = time.Parse(time.RFC3339, created)
	return &run, nil
}

// RuleStats retrieves the per-rule counters recorded for a run, ordered by
// applies descending.
func (s *Store) RuleStats(runID string) ([]RuleStat, error) {
	rows, err := s.db.Query(
		"SELECT name, tests, applies FROM rule_stats WHERE run_id = ? ORDER BY applies DESC, name",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying rule stats: %w", err)
	}
	defer rows.Close()

	var stats []RuleStat
	for rows.Next() {
		var st RuleStat
		if err := rows.Scan(&st.Name, &st.Tests, &st.Applies); err != nil {
			return nil, fmt.Errorf("scanning rule stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// ListRuns returns run summaries for a function, newest first.
func (s *Store) ListRuns(function string) ([]Run, error) {
	rows, err := s.db.Query(
		"SELECT id, function, pipeline, changes, created FROM runs WHERE function = ? ORDER BY created DESC",
		function,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &run.Function, &run.Pipeline, &run.Changes, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Created, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// harvest flattens an action tree into per-component counters. Rules use
// their bare name; actions appear too so pool/group totals are queryable.
func harvest(tree action.Action) []RuleStat {
	var stats []RuleStat
	var walk func(a action.Action)
	walk = func(a action.Action) {
		tests, applies := action.Stats(a)
		stats = append(stats, RuleStat{Name: a.Name(), Tests: tests, Applies: applies})
		for _, r := range action.RulesOf(a) {
			t, ap := r.Stats()
			stats = append(stats, RuleStat{Name: r.Name(), Tests: t, Applies: ap})
		}
		for _, child := range action.ChildrenOf(a) {
			walk(child)
		}
	}
	walk(tree)
	return stats
}
