package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medication-schedule/internal/domain/schedules"
)

type scheduleRepo struct {
	mu   sync.RWMutex
	byID map[string]schedules.Schedule
}

func NewScheduleRepo() schedules.Repository {
	return &scheduleRepo{
		byID: make(map[string]schedules.Schedule),
	}
}

func (r *scheduleRepo) Create(ctx context.Context, s schedules.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(s.ID) == "" {
		return errors.New("schedule id required")
	}
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("schedule already exists")
	}
	r.byID[s.ID] = s
	return nil
}

func (r *scheduleRepo) Update(ctx context.Context, s schedules.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(s.ID) == "" {
		return errors.New("schedule id required")
	}
	if _, exists := r.byID[s.ID]; !exists {
		return schedules.ErrNotFound
	}
	r.byID[s.ID] = s
	return nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (schedules.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return schedules.Schedule{}, schedules.ErrNotFound
	}
	return s, nil
}

func (r *scheduleRepo) ListByPatient(ctx context.Context, patientID string, filter schedules.ListFilter) ([]schedules.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]schedules.Schedule, 0)
	for _, s := range r.byID {
		if s.PatientID != patientID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.MedicationID != "" && s.MedicationID != filter.MedicationID {
			continue
		}
		out = append(out, s)
	}

	// created_at asc, y versión como desempate
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}
