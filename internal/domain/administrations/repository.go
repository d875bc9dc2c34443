package administrations

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a Administration) error
	GetByID(ctx context.Context, id string) (Administration, error)
	ListByPatient(ctx context.Context, patientID string, filter ListFilter) ([]Administration, error)
	Void(ctx context.Context, id string) error
}

// ListFilter: orden por AdministeredAt descendente.
type ListFilter struct {
	ScheduleID    string
	From          *time.Time
	To            *time.Time
	IncludeVoided bool
	Limit         int
}
