package audit

import (
	"context"
	"errors"
	"strings"
	"sync"

	"medication-schedule/internal/platform/logger"
	ports "medication-schedule/internal/ports/audit"
)

// LogRecorder deja cada override como línea estructurada en el log y
// conserva las últimas entradas en memoria (GET de diagnóstico y tests).
type LogRecorder struct {
	log logger.Logger

	mu      sync.Mutex
	entries []ports.OverrideEntry
	max     int
}

func NewLogRecorder(log logger.Logger) *LogRecorder {
	if log == nil {
		log = logger.Nop()
	}
	return &LogRecorder{
		log: log.With(map[string]any{"component": "audit"}),
		max: 1000,
	}
}

func (r *LogRecorder) RecordOverride(_ context.Context, e ports.OverrideEntry) error {
	if strings.TrimSpace(e.ResolutionID) == "" || strings.TrimSpace(e.ActorID) == "" {
		return errors.New("audit: resolution and actor required")
	}

	r.log.Warn("conflict override", map[string]any{
		"resolution_id": e.ResolutionID,
		"patient_id":    e.PatientID,
		"medication_id": e.MedicationID,
		"actor_id":      e.ActorID,
		"conflicts":     strings.Join(e.Conflicts, ","),
		"at":            e.At,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
	return nil
}

func (r *LogRecorder) Entries() []ports.OverrideEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OverrideEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
