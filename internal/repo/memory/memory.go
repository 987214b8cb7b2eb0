package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/repo"
)

type Store struct {
	mu      sync.RWMutex
	runs    map[domain.RunID]*domain.Run
	results map[domain.RunID][]domain.ProbeResult
}

func New() *Store {
	return &Store{
		runs:    make(map[domain.RunID]*domain.Run),
		results: make(map[domain.RunID][]domain.ProbeResult),
	}
}

func (m *Store) CreateRun(ctx context.Context, r *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = domain.RunID(uuid.NewString())
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = domain.RunRunning
	}
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *Store) FinishRun(ctx context.Context, id domain.RunID, status domain.RunStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return repo.ErrRunNotFound
	}
	r.Status = status
	r.FinishedAt = &at
	return nil
}

func (m *Store) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, repo.ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Store) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) AppendResult(ctx context.Context, id domain.RunID, r *domain.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return repo.ErrRunNotFound
	}
	m.results[id] = append(m.results[id], *r)
	return nil
}

func (m *Store) Results(ctx context.Context, id domain.RunID) ([]domain.ProbeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runs[id]; !ok {
		return nil, repo.ErrRunNotFound
	}
	out := make([]domain.ProbeResult, len(m.results[id]))
	copy(out, m.results[id])
	domain.SortByInput(out)
	return out, nil
}
