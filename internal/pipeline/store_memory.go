package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in memory. Used by the one-shot CLI, which reports
// a halted run's identifiers on stdout instead of a database, and by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]LaunchRun
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID]LaunchRun)}
}

func (s *MemoryStore) Create(ctx context.Context, run *LaunchRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, run *LaunchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*LaunchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (s *MemoryStore) List(ctx context.Context, status *RunStatus, limit int) ([]LaunchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []LaunchRun
	for _, run := range s.runs {
		if status != nil && run.Status != *status {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
