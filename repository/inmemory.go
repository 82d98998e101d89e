package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/tool-pressure/xiaohongshu/models"
)

// inMemoryRunRepository keeps runs in a map; state is lost on restart.
type inMemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]models.Run
}

func NewInMemoryRunRepository() RunRepository {
	return &inMemoryRunRepository{runs: map[string]models.Run{}}
}

func (r *inMemoryRunRepository) SaveRun(_ context.Context, run models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *inMemoryRunRepository) GetRun(_ context.Context, id string) (models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return models.Run{}, models.ErrRunNotFound
	}
	return run, nil
}

func (r *inMemoryRunRepository) ListRuns(_ context.Context) ([]models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
