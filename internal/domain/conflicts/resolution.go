package conflicts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/ports/audit"
)

type State string

const (
	StatePending    State = "pending"
	StateAdjusted   State = "adjusted"
	StateOverridden State = "overridden"
	StateCancelled  State = "cancelled"
)

var (
	ErrMissingSelection  = errors.New("missing selection")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAuditRequired     = errors.New("override requires an audit recorder")
)

// Resolution es la decisión sobre un candidato con conflictos:
// pending -> adjusted | overridden | cancelled. No hay otras transiciones.
type Resolution struct {
	ID        string             `json:"id"`
	PatientID string             `json:"patient_id"`
	Candidate schedules.Schedule `json:"candidate"`
	Findings  []Finding          `json:"findings"`
	Warnings  []Warning          `json:"warnings,omitempty"`

	State    State               `json:"state"`
	Selected *Suggestion         `json:"selected,omitempty"`
	Result   *schedules.Schedule `json:"result,omitempty"` // lo que se acepta (adjusted/overridden)

	DecidedBy string     `json:"decided_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

func (r *Resolution) Pending() bool { return r.State == StatePending }

// ConflictIDs resume los conflictos para el audit log.
func (r *Resolution) ConflictIDs() []string {
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		s := fmt.Sprintf("%s:%s", f.Type, f.ConflictingMedicationID)
		if f.ConflictingTime != nil {
			s += "@" + f.ConflictingTime.UTC().Format(time.RFC3339)
		}
		out = append(out, s)
	}
	return out
}

// Adjust aplica la sugerencia elegida y revalida. Si la validación falla el
// estado queda pending.
func (r *Resolution) Adjust(sg *Suggestion, actor string, at time.Time) (schedules.Schedule, error) {
	if !r.Pending() {
		return schedules.Schedule{}, ErrInvalidTransition
	}
	if sg == nil {
		return schedules.Schedule{}, ErrMissingSelection
	}
	adjusted, err := Apply(r.Candidate, *sg)
	if err != nil {
		return schedules.Schedule{}, err
	}
	if err := schedules.Check(adjusted); err != nil {
		return schedules.Schedule{}, err
	}

	selected := *sg
	r.State = StateAdjusted
	r.Selected = &selected
	r.Result = &adjusted
	r.decide(actor, at)
	return adjusted, nil
}

// Override acepta el candidato tal cual. Sin registro de auditoría no hay override.
func (r *Resolution) Override(ctx context.Context, actor string, at time.Time, rec audit.Recorder) (schedules.Schedule, error) {
	if !r.Pending() {
		return schedules.Schedule{}, ErrInvalidTransition
	}
	if rec == nil {
		return schedules.Schedule{}, ErrAuditRequired
	}

	entry := audit.OverrideEntry{
		ResolutionID: r.ID,
		PatientID:    r.PatientID,
		MedicationID: r.Candidate.MedicationID,
		ActorID:      actor,
		Conflicts:    r.ConflictIDs(),
		At:           at,
	}
	if err := rec.RecordOverride(ctx, entry); err != nil {
		return schedules.Schedule{}, fmt.Errorf("record override: %w", err)
	}

	accepted := r.Candidate
	r.State = StateOverridden
	r.Result = &accepted
	r.decide(actor, at)
	return accepted, nil
}

func (r *Resolution) Cancel(actor string, at time.Time) error {
	if !r.Pending() {
		return ErrInvalidTransition
	}
	r.State = StateCancelled
	r.decide(actor, at)
	return nil
}

func (r *Resolution) decide(actor string, at time.Time) {
	r.DecidedBy = actor
	r.DecidedAt = &at
}

// Suggestion busca por rank dentro del finding index.
func (r *Resolution) Suggestion(finding, rank int) (*Suggestion, error) {
	if finding < 0 || finding >= len(r.Findings) {
		return nil, ErrMissingSelection
	}
	for _, sg := range r.Findings[finding].Suggestions {
		if sg.Rank == rank {
			s := sg
			return &s, nil
		}
	}
	return nil, ErrMissingSelection
}
