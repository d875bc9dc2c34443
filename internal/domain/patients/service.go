package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medication-schedule/internal/domain/schedules"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name      string
	Timezone  string
	MealTimes schedules.MealTimes
}

func (s *Service) Create(ctx context.Context, actorUserID string, in CreateInput) (Patient, error) {
	if strings.TrimSpace(actorUserID) == "" {
		return Patient{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Patient{}, ErrInvalidInput
	}
	tz := strings.TrimSpace(in.Timezone)
	if _, err := time.LoadLocation(tz); err != nil {
		return Patient{}, ErrInvalidInput
	}
	meals, err := normalizeMealTimes(in.MealTimes)
	if err != nil {
		return Patient{}, err
	}

	now := s.now()
	p := Patient{
		ID:              uuid.NewString(),
		CreatedByUserID: strings.TrimSpace(actorUserID),
		Name:            strings.TrimSpace(in.Name),
		Timezone:        tz,
		MealTimes:       meals,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateMealTimes reemplaza la configuración de comidas. Las comidas que no
// vienen vuelven al default.
func (s *Service) UpdateMealTimes(ctx context.Context, id string, meals schedules.MealTimes) (Patient, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Patient{}, err
	}
	normalized, err := normalizeMealTimes(meals)
	if err != nil {
		return Patient{}, err
	}
	p.MealTimes = normalized
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

// MealTimes implementa schedules.Patients.
func (s *Service) MealTimes(ctx context.Context, patientID string) (schedules.MealTimes, error) {
	p, err := s.lookup(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return p.MealTimes, nil
}

// Timezone implementa schedules.Patients.
func (s *Service) Timezone(ctx context.Context, patientID string) (string, error) {
	p, err := s.lookup(ctx, patientID)
	if err != nil {
		return "", err
	}
	return p.Timezone, nil
}

// lookup traduce ErrNotFound al sentinel de schedules para que los módulos
// que consumen la interfaz no dependan de este paquete.
func (s *Service) lookup(ctx context.Context, patientID string) (Patient, error) {
	p, err := s.GetByID(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return Patient{}, fmt.Errorf("patient %s: %w", patientID, schedules.ErrNotFound)
	}
	return p, err
}

func normalizeMealTimes(in schedules.MealTimes) (schedules.MealTimes, error) {
	out := schedules.DefaultMealTimes()
	for meal, c := range in {
		if !isMeal(meal) || !c.Valid() {
			return nil, ErrInvalidInput
		}
		out[meal] = c
	}
	return out, nil
}

func isMeal(m schedules.Meal) bool {
	for _, known := range schedules.Meals {
		if known == m {
			return true
		}
	}
	return false
}
