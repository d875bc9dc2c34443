package administrations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medication-schedule/internal/domain/schedules"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrReadingRequired = errors.New("sliding_scale administration requires a reading")
	ErrNoScaleMatch    = errors.New("reading below every sliding scale threshold")
	ErrCeilingExceeded = errors.New("prn ceiling exceeded")
)

// ScheduleLookup es lo que el módulo necesita de schedules.
type ScheduleLookup interface {
	GetByID(ctx context.Context, id string) (schedules.Schedule, error)
}

type Service struct {
	repo      Repository
	schedules ScheduleLookup
	now       func() time.Time
}

func NewService(repo Repository, lookup ScheduleLookup) *Service {
	return &Service{
		repo:      repo,
		schedules: lookup,
		now:       time.Now,
	}
}

type CreateInput struct {
	ScheduleID     string
	AdministeredAt time.Time
	// Dose vacía = la que indica la regla en AdministeredAt.
	Dose    *schedules.Dose
	Reading *float64
	Notes   string
	Source  Source
	// Force registra una dosis prn aunque supere un techo (queda igual en el log).
	Force bool
}

// CeilingError acompaña a ErrCeilingExceeded con la decisión completa.
type CeilingError struct {
	Decision schedules.AsNeededDecision
}

func (e *CeilingError) Error() string { return ErrCeilingExceeded.Error() }
func (e *CeilingError) Unwrap() error { return ErrCeilingExceeded }

func (s *Service) Create(ctx context.Context, patientID string, actor Actor, in CreateInput) (Administration, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || strings.TrimSpace(in.ScheduleID) == "" {
		return Administration{}, ErrInvalidInput
	}
	if actor.Type == "" || strings.TrimSpace(actor.ID) == "" {
		return Administration{}, ErrInvalidInput
	}

	sc, err := s.schedules.GetByID(ctx, strings.TrimSpace(in.ScheduleID))
	if err != nil {
		return Administration{}, err
	}
	if sc.PatientID != patientID {
		return Administration{}, ErrInvalidInput
	}

	now := s.now()
	at := in.AdministeredAt
	if at.IsZero() {
		at = now
	}

	dose, err := s.resolveDose(sc, at, in)
	if err != nil {
		return Administration{}, err
	}
	if dose.Amount < 0 {
		return Administration{}, ErrInvalidInput
	}

	if _, ok := sc.Rule.(schedules.PRNRule); ok && !in.Force {
		d, err := s.checkAsNeeded(ctx, sc, at, dose.Amount)
		if err != nil {
			return Administration{}, err
		}
		if !d.Allowed {
			return Administration{}, &CeilingError{Decision: d}
		}
	}

	src := in.Source
	if src == "" {
		src = SourceManual
	}

	a := Administration{
		ID:             uuid.NewString(),
		PatientID:      patientID,
		ScheduleID:     sc.ID,
		MedicationID:   sc.MedicationID,
		AdministeredAt: at.UTC(),
		RecordedAt:     now,
		Dose:           dose,
		Reading:        in.Reading,
		Notes:          strings.TrimSpace(in.Notes),
		Actor:          actor,
		Source:         src,
		Status:         StatusActive,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Administration{}, err
	}
	return a, nil
}

func (s *Service) resolveDose(sc schedules.Schedule, at time.Time, in CreateInput) (schedules.Dose, error) {
	if r, ok := sc.Rule.(schedules.SlidingScaleRule); ok && in.Dose == nil {
		if in.Reading == nil {
			return schedules.Dose{}, ErrReadingRequired
		}
		d, ok := r.DoseFor(*in.Reading)
		if !ok {
			return schedules.Dose{}, ErrNoScaleMatch
		}
		return d, nil
	}
	if in.Dose != nil {
		return *in.Dose, nil
	}
	return sc.Rule.DoseAt(sc, at), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Administration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Administration{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Administration, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID, filter)
}

// Void marca la administración como voided (no se borra).
func (s *Service) Void(ctx context.Context, id string) (Administration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Administration{}, ErrInvalidInput
	}
	if err := s.repo.Void(ctx, id); err != nil {
		return Administration{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// CheckAsNeeded evalúa si la dosis del schedule prn en at respeta los techos,
// contra las administraciones activas registradas.
func (s *Service) CheckAsNeeded(ctx context.Context, scheduleID string, at time.Time) (schedules.AsNeededDecision, error) {
	sc, err := s.schedules.GetByID(ctx, strings.TrimSpace(scheduleID))
	if err != nil {
		return schedules.AsNeededDecision{}, err
	}
	if at.IsZero() {
		at = s.now()
	}
	return s.checkAsNeeded(ctx, sc, at, sc.Rule.DoseAt(sc, at).Amount)
}

func (s *Service) checkAsNeeded(ctx context.Context, sc schedules.Schedule, at time.Time, amount float64) (schedules.AsNeededDecision, error) {
	r, ok := sc.Rule.(schedules.PRNRule)
	if !ok {
		return schedules.AsNeededDecision{}, schedules.ErrNotAsNeeded
	}
	lookback := 24 * time.Hour
	if gap := time.Duration(r.MinHoursBetween * float64(time.Hour)); gap > lookback {
		lookback = gap
	}
	from := at.Add(-lookback)
	items, err := s.repo.ListByPatient(ctx, sc.PatientID, ListFilter{
		ScheduleID: sc.ID,
		From:       &from,
		To:         &at,
	})
	if err != nil {
		return schedules.AsNeededDecision{}, err
	}

	log := make([]schedules.DoseEvent, 0, len(items))
	for _, a := range items {
		if a.Status == StatusVoided {
			continue
		}
		log = append(log, schedules.DoseEvent{At: a.AdministeredAt, Amount: a.Dose.Amount})
	}
	return schedules.CheckAsNeeded(sc, log, schedules.DoseEvent{At: at, Amount: amount})
}
