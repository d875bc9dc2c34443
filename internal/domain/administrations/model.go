package administrations

import (
	"time"

	"medication-schedule/internal/domain/schedules"
)

type Actor struct {
	Type ActorType
	ID   string
}

// Administration es una dosis efectivamente dada. Las anuladas (voided) no
// se borran y no cuentan para los techos prn.
type Administration struct {
	ID           string
	PatientID    string
	ScheduleID   string
	MedicationID string

	AdministeredAt time.Time
	RecordedAt     time.Time

	Dose    schedules.Dose
	Reading *float64 // medición usada en sliding_scale

	Notes  string
	Actor  Actor
	Source Source
	Status Status
}
