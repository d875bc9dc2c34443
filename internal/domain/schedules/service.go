package schedules

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo     Repository
	patients Patients
	now      func() time.Time
}

// patients puede ser nil: comidas por defecto y UTC.
func NewService(repo Repository, patients Patients) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		now:      time.Now,
	}
}

// Create valida y registra el schedule como versión activa de su medicamento.
// Si ya había uno activo, queda superseded (no se modifica su historia).
func (s *Service) Create(ctx context.Context, draft Schedule) (Schedule, error) {
	draft, err := s.Normalize(ctx, draft)
	if err != nil {
		return Schedule{}, err
	}
	if err := Check(draft); err != nil {
		return Schedule{}, err
	}

	now := s.now()

	current, err := s.repo.ListByPatient(ctx, draft.PatientID, ListFilter{MedicationID: draft.MedicationID})
	if err != nil {
		return Schedule{}, err
	}
	version := 1
	for _, prev := range current {
		if prev.Version >= version {
			version = prev.Version + 1
		}
		if prev.Status != StatusActive {
			continue
		}
		prev.Status = StatusSuperseded
		prev.SupersededAt = &now
		if err := s.repo.Update(ctx, prev); err != nil {
			return Schedule{}, err
		}
	}

	sc := draft
	sc.ID = uuid.NewString()
	sc.Version = version
	sc.Status = StatusActive
	sc.CreatedAt = now
	sc.SupersededAt = nil

	if err := s.repo.Create(ctx, sc); err != nil {
		return Schedule{}, err
	}
	return sc, nil
}

// Normalize deja draft como lo guardaría Create: ids sin espacios y, si no
// trae zona, la del paciente. El paciente tiene que existir.
// No valida.
func (s *Service) Normalize(ctx context.Context, draft Schedule) (Schedule, error) {
	draft.MedicationID = strings.TrimSpace(draft.MedicationID)
	draft.PatientID = strings.TrimSpace(draft.PatientID)
	draft.Timezone = strings.TrimSpace(draft.Timezone)

	if s.patients != nil && draft.PatientID != "" {
		tz, err := s.patients.Timezone(ctx, draft.PatientID)
		if err != nil {
			return Schedule{}, err
		}
		if draft.Timezone == "" {
			draft.Timezone = tz
		}
	}
	return draft, nil
}

// Revise crea una versión nueva del schedule id con la regla/ventana de draft.
// Paciente y medicamento se heredan del schedule original.
func (s *Service) Revise(ctx context.Context, id string, draft Schedule) (Schedule, error) {
	prev, err := s.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	draft.PatientID = prev.PatientID
	draft.MedicationID = prev.MedicationID
	return s.Create(ctx, draft)
}

// Retire da de baja el schedule (medicamento discontinuado). Idempotente.
func (s *Service) Retire(ctx context.Context, id string) (Schedule, error) {
	sc, err := s.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sc.Status == StatusRetired {
		return sc, nil
	}
	now := s.now()
	sc.Status = StatusRetired
	if sc.EndDate == nil || sc.EndDate.After(now) {
		sc.EndDate = &now
	}
	if err := s.repo.Update(ctx, sc); err != nil {
		return Schedule{}, err
	}
	return sc, nil
}

// Withdraw deshace un Create que no llegó a confirmarse: retira la versión y
// reactiva la que había reemplazado.
func (s *Service) Withdraw(ctx context.Context, id string) (Schedule, error) {
	sc, err := s.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sc.Status != StatusActive {
		return sc, nil
	}
	history, err := s.repo.ListByPatient(ctx, sc.PatientID, ListFilter{MedicationID: sc.MedicationID})
	if err != nil {
		return Schedule{}, err
	}
	for _, prev := range history {
		if prev.Status != StatusSuperseded || prev.SupersededAt == nil || !prev.SupersededAt.Equal(sc.CreatedAt) {
			continue
		}
		prev.Status = StatusActive
		prev.SupersededAt = nil
		if err := s.repo.Update(ctx, prev); err != nil {
			return Schedule{}, err
		}
	}
	sc.Status = StatusRetired
	sc.EndDate = &sc.CreatedAt
	if err := s.repo.Update(ctx, sc); err != nil {
		return Schedule{}, err
	}
	return sc, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Schedule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Schedule{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// ListActive devuelve los schedules activos del paciente, en orden de creación.
func (s *Service) ListActive(ctx context.Context, patientID string) ([]Schedule, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID, ListFilter{Status: StatusActive})
}

// Calculator arma un calculador con las comidas del paciente.
func (s *Service) Calculator(ctx context.Context, patientID string) (Calculator, error) {
	if s.patients == nil {
		return Calculator{}, nil
	}
	meals, err := s.patients.MealTimes(ctx, patientID)
	if err != nil {
		return Calculator{}, err
	}
	return Calculator{Meals: meals}, nil
}

// List devuelve los schedules del paciente según filter (incluye historia).
func (s *Service) List(ctx context.Context, patientID string, filter ListFilter) ([]Schedule, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID, filter)
}

// Next es Calculator.Next sobre un schedule guardado.
func (s *Service) Next(ctx context.Context, id string, from time.Time) (Occurrence, error) {
	sc, calc, err := s.withCalculator(ctx, id)
	if err != nil {
		return Occurrence{}, err
	}
	return calc.Next(sc, s.orNow(from))
}

// Occurrences lista las ocurrencias de [from, from+days días).
func (s *Service) Occurrences(ctx context.Context, id string, from time.Time, days int) ([]Occurrence, error) {
	if days < 1 {
		return nil, ErrInvalidInput
	}
	sc, calc, err := s.withCalculator(ctx, id)
	if err != nil {
		return nil, err
	}
	return calc.List(sc, s.orNow(from), days), nil
}

// DoseForReading traduce una medición a dosis. ok=false si la medición
// queda por debajo de todos los umbrales.
func (s *Service) DoseForReading(ctx context.Context, id string, reading float64) (Dose, bool, error) {
	sc, err := s.GetByID(ctx, id)
	if err != nil {
		return Dose{}, false, err
	}
	r, ok := sc.Rule.(SlidingScaleRule)
	if !ok {
		return Dose{}, false, ErrNotSlidingScale
	}
	d, found := r.DoseFor(reading)
	return d, found, nil
}

func (s *Service) withCalculator(ctx context.Context, id string) (Schedule, Calculator, error) {
	sc, err := s.GetByID(ctx, id)
	if err != nil {
		return Schedule{}, Calculator{}, err
	}
	calc, err := s.Calculator(ctx, sc.PatientID)
	if err != nil {
		return Schedule{}, Calculator{}, err
	}
	return sc, calc, nil
}

func (s *Service) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
