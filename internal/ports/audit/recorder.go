package audit

import (
	"context"
	"time"
)

// OverrideEntry describe un schedule aceptado a pesar de conflictos abiertos.
type OverrideEntry struct {
	ResolutionID string
	PatientID    string
	MedicationID string
	ActorID      string
	Conflicts    []string // resumen legible de cada conflicto
	At           time.Time
}

// Recorder es el colaborador de auditoría/compliance. Su almacenamiento queda fuera.
type Recorder interface {
	RecordOverride(ctx context.Context, e OverrideEntry) error
}
