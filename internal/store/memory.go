package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in process memory. Used for single-process
// deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]Run
	answers map[uuid.UUID]map[int]Answer
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[uuid.UUID]Run),
		answers: make(map[uuid.UUID]map[int]Answer),
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, total int) (Run, error) {
	run := Run{ID: uuid.New(), Status: StatusProcessing, Total: total, CreatedAt: time.Now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return run, nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

func (s *MemoryStore) UpdateRunStatus(_ context.Context, id uuid.UUID, status RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	s.runs[id] = run
	return nil
}

// SaveAnswers upserts by (run, index).
func (s *MemoryStore) SaveAnswers(_ context.Context, runID uuid.UUID, answers []Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return ErrRunNotFound
	}
	byIndex := s.answers[runID]
	if byIndex == nil {
		byIndex = make(map[int]Answer)
		s.answers[runID] = byIndex
	}
	for _, a := range answers {
		a.RunID = runID
		byIndex[a.Index] = a
	}
	return nil
}

func (s *MemoryStore) ListAnswers(_ context.Context, runID uuid.UUID) ([]Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, ErrRunNotFound
	}
	out := make([]Answer, 0, len(s.answers[runID]))
	for _, a := range s.answers[runID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
