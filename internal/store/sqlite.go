package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is fixed-width so created_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the database at dbPath.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// SaveRun writes the run, its units, samples and transitions in one
// transaction. Saving an existing ID replaces it.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *RunRecord) (string, error) {
	if run == nil {
		return "", fmt.Errorf("run is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to replace run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, steps, created_at) VALUES (?, ?, ?, ?)`,
		id, run.Scenario, run.Steps, created.UTC().Format(timeFormat)); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	unitStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_units (run_id, position, name, kind, inputs) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare unit insert: %w", err)
	}
	defer unitStmt.Close()

	sampleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, unit, step, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer sampleStmt.Close()

	for i, u := range run.Units {
		inputs, err := json.Marshal(u.Inputs)
		if err != nil {
			return "", fmt.Errorf("failed to encode inputs of %s: %w", u.Name, err)
		}
		if _, err := unitStmt.ExecContext(ctx, id, i, u.Name, u.Kind, string(inputs)); err != nil {
			return "", fmt.Errorf("failed to insert unit %s: %w", u.Name, err)
		}
		for step, v := range u.Values {
			if _, err := sampleStmt.ExecContext(ctx, id, u.Name, step, v); err != nil {
				return "", fmt.Errorf("failed to insert sample %s[%d]: %w", u.Name, step, err)
			}
		}
	}

	for seq, tr := range run.Transitions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transitions (run_id, seq, step, unit, kind, from_phase, to_phase, potential)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, seq, tr.Step, tr.Unit, tr.Kind, tr.From, tr.To, tr.Potential); err != nil {
			return "", fmt.Errorf("failed to insert transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// GetRun loads a run with all its traces.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := &RunRecord{ID: id}
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT scenario, steps, created_at FROM runs WHERE id = ?`, id).
		Scan(&rec.Scenario, &rec.Steps, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if err := s.loadUnits(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.loadSamples(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.loadTransitions(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteRunStore) loadUnits(ctx context.Context, rec *RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, inputs FROM run_units WHERE run_id = ? ORDER BY position`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u UnitTrace
		var inputs sql.NullString
		if err := rows.Scan(&u.Name, &u.Kind, &inputs); err != nil {
			return fmt.Errorf("failed to scan unit: %w", err)
		}
		if inputs.Valid && inputs.String != "" {
			if err := json.Unmarshal([]byte(inputs.String), &u.Inputs); err != nil {
				return fmt.Errorf("failed to decode inputs of %s: %w", u.Name, err)
			}
		}
		rec.Units = append(rec.Units, u)
	}
	return rows.Err()
}

func (s *SQLiteRunStore) loadSamples(ctx context.Context, rec *RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit, value FROM samples WHERE run_id = ? ORDER BY unit, step`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int, len(rec.Units))
	for i, u := range rec.Units {
		index[u.Name] = i
	}
	for rows.Next() {
		var unit string
		var v float64
		if err := rows.Scan(&unit, &v); err != nil {
			return fmt.Errorf("failed to scan sample: %w", err)
		}
		i, ok := index[unit]
		if !ok {
			return fmt.Errorf("sample for unknown unit %s", unit)
		}
		rec.Units[i].Values = append(rec.Units[i].Values, v)
	}
	return rows.Err()
}

func (s *SQLiteRunStore) loadTransitions(ctx context.Context, rec *RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, unit, kind, from_phase, to_phase, potential
		 FROM transitions WHERE run_id = ? ORDER BY seq`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.Step, &tr.Unit, &tr.Kind, &tr.From, &tr.To, &tr.Potential); err != nil {
			return fmt.Errorf("failed to scan transition: %w", err)
		}
		rec.Transitions = append(rec.Transitions, tr)
	}
	return rows.Err()
}

// ListRuns returns summaries, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT r.id, r.scenario, r.steps, r.created_at,
		       (SELECT COUNT(*) FROM run_units u WHERE u.run_id = r.id),
		       (SELECT COUNT(*) FROM transitions t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var sum RunSummary
		var created string
		if err := rows.Scan(&sum.ID, &sum.Scenario, &sum.Steps, &created, &sum.Units, &sum.Transitions); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteRun removes a run. Units, samples and transitions cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var (
	_ RunStore = (*SQLiteRunStore)(nil)
	_ RunStore = (*InMemoryRunStore)(nil)
)
