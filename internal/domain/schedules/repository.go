package schedules

import "context"

type Repository interface {
	Create(ctx context.Context, s Schedule) error
	Update(ctx context.Context, s Schedule) error
	GetByID(ctx context.Context, id string) (Schedule, error)
	ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Schedule, error)
}

// ListFilter: campos vacíos no filtran.
type ListFilter struct {
	Status       Status
	MedicationID string
}

// Patients entrega lo que el motor necesita de un paciente: sus comidas y
// su zona horaria por defecto (la implementa patients.Service).
type Patients interface {
	MealTimes(ctx context.Context, patientID string) (MealTimes, error)
	Timezone(ctx context.Context, patientID string) (string, error)
}
