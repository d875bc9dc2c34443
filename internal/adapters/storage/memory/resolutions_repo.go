package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medication-schedule/internal/domain/conflicts"
)

type resolutionRepo struct {
	mu   sync.RWMutex
	byID map[string]conflicts.Resolution
}

func NewResolutionRepo() conflicts.Repository {
	return &resolutionRepo{
		byID: make(map[string]conflicts.Resolution),
	}
}

func (r *resolutionRepo) Create(ctx context.Context, res conflicts.Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == "" {
		return errors.New("resolution id required")
	}
	if _, exists := r.byID[res.ID]; exists {
		return errors.New("resolution already exists")
	}
	r.byID[res.ID] = res
	return nil
}

func (r *resolutionRepo) Update(ctx context.Context, res conflicts.Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == "" {
		return errors.New("resolution id required")
	}
	cur, exists := r.byID[res.ID]
	if !exists {
		return conflicts.ErrNotFound
	}
	if !cur.Pending() {
		return conflicts.ErrInvalidTransition
	}
	r.byID[res.ID] = res
	return nil
}

func (r *resolutionRepo) GetByID(ctx context.Context, id string) (conflicts.Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byID[id]
	if !ok {
		return conflicts.Resolution{}, conflicts.ErrNotFound
	}
	return res, nil
}

func (r *resolutionRepo) ListByPatient(ctx context.Context, patientID string) ([]conflicts.Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]conflicts.Resolution, 0)
	for _, res := range r.byID {
		if res.PatientID == patientID {
			out = append(out, res)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}
