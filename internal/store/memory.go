package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRunStore implements RunStore for testing and for the MCP server,
// which keeps runs only for the life of the process.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{
		runs: make(map[string]*RunRecord),
	}
}

// SaveRun stores a copy of run.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run *RunRecord) (string, error) {
	if run == nil {
		return "", fmt.Errorf("run is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := cloneRun(run)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.runs[rec.ID] = rec
	return rec.ID, nil
}

// GetRun retrieves a copy of a run by ID.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return cloneRun(rec), nil
}

// ListRuns returns summaries, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunSummary, 0, len(s.runs))
	for _, rec := range s.runs {
		out = append(out, rec.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRun removes a run.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}

func cloneRun(r *RunRecord) *RunRecord {
	c := *r
	c.Units = make([]UnitTrace, len(r.Units))
	for i, u := range r.Units {
		u.Inputs = append([]string(nil), u.Inputs...)
		u.Values = append([]float64(nil), u.Values...)
		c.Units[i] = u
	}
	c.Transitions = append([]Transition(nil), r.Transitions...)
	return &c
}
