package conflicts

import (
	"context"

	"medication-schedule/internal/domain/schedules"
)

type Repository interface {
	Create(ctx context.Context, r Resolution) error
	// Update guarda la decisión de r solo si la resolución guardada sigue
	// pending; si no, ErrInvalidTransition.
	Update(ctx context.Context, r Resolution) error
	GetByID(ctx context.Context, id string) (Resolution, error)
	ListByPatient(ctx context.Context, patientID string) ([]Resolution, error)
}

// ScheduleStore es lo que el servicio necesita del módulo de schedules.
type ScheduleStore interface {
	ListActive(ctx context.Context, patientID string) ([]schedules.Schedule, error)
	Calculator(ctx context.Context, patientID string) (schedules.Calculator, error)
	Create(ctx context.Context, draft schedules.Schedule) (schedules.Schedule, error)
	Withdraw(ctx context.Context, id string) (schedules.Schedule, error)
	// Normalize aplica los defaults de Create (zona del paciente) sin guardar.
	Normalize(ctx context.Context, draft schedules.Schedule) (schedules.Schedule, error)
}
