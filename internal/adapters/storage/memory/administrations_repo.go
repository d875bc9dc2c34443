package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medication-schedule/internal/domain/administrations"
)

type administrationRepo struct {
	mu   sync.RWMutex
	byID map[string]administrations.Administration
}

func NewAdministrationRepo() administrations.Repository {
	return &administrationRepo{
		byID: make(map[string]administrations.Administration),
	}
}

func (r *administrationRepo) Create(ctx context.Context, a administrations.Administration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("administration id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("administration already exists")
	}

	r.byID[a.ID] = a
	return nil
}

func (r *administrationRepo) GetByID(ctx context.Context, id string) (administrations.Administration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return administrations.Administration{}, administrations.ErrNotFound
	}
	return a, nil
}

func (r *administrationRepo) ListByPatient(ctx context.Context, patientID string, filter administrations.ListFilter) ([]administrations.Administration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]administrations.Administration, 0)

	for _, a := range r.byID {
		if a.PatientID != patientID {
			continue
		}
		if filter.ScheduleID != "" && a.ScheduleID != filter.ScheduleID {
			continue
		}
		if !filter.IncludeVoided && a.Status == administrations.StatusVoided {
			continue
		}

		// ventana sobre administered_at, ambos extremos inclusive
		if filter.From != nil && a.AdministeredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.AdministeredAt.After(*filter.To) {
			continue
		}

		out = append(out, a)
	}

	// más reciente primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].AdministeredAt.After(out[j].AdministeredAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

func (r *administrationRepo) Void(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return administrations.ErrNotFound
	}
	a.Status = administrations.StatusVoided
	r.byID[id] = a
	return nil
}
