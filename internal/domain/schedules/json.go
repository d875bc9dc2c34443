package schedules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// scheduleJSON es la forma serializada: "type" discrimina el payload de "rule".
type scheduleJSON struct {
	ID           string          `json:"id,omitempty"`
	MedicationID string          `json:"medication_id"`
	PatientID    string          `json:"patient_id"`
	Version      int             `json:"version,omitempty"`
	Status       Status          `json:"status,omitempty"`
	Type         Type            `json:"type"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	Timezone     string          `json:"timezone,omitempty"`
	Rule         json.RawMessage `json:"rule,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	SupersededAt *time.Time      `json:"superseded_at,omitempty"`
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	out := scheduleJSON{
		ID:           s.ID,
		MedicationID: s.MedicationID,
		PatientID:    s.PatientID,
		Version:      s.Version,
		Status:       s.Status,
		Type:         s.Type(),
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		Timezone:     s.Timezone,
		SupersededAt: s.SupersededAt,
	}
	if !s.CreatedAt.IsZero() {
		t := s.CreatedAt
		out.CreatedAt = &t
	}
	if s.Rule != nil {
		raw, err := json.Marshal(s.Rule)
		if err != nil {
			return nil, err
		}
		out.Rule = raw
	}
	return json.Marshal(out)
}

func (s *Schedule) UnmarshalJSON(b []byte) error {
	var in scheduleJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	rule, err := DecodeRule(in.Type, in.Rule)
	if err != nil {
		return err
	}
	*s = Schedule{
		ID:           in.ID,
		MedicationID: in.MedicationID,
		PatientID:    in.PatientID,
		Version:      in.Version,
		Status:       in.Status,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Timezone:     in.Timezone,
		Rule:         rule,
		SupersededAt: in.SupersededAt,
	}
	if in.CreatedAt != nil {
		s.CreatedAt = *in.CreatedAt
	}
	return nil
}

// DecodeRule arma la variante según t. Un payload vacío deja la regla en
// cero para que Validate reporte los campos faltantes; type vacío => nil.
func DecodeRule(t Type, raw json.RawMessage) (Rule, error) {
	if t == "" {
		return nil, nil
	}
	empty := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	decode := func(v any) error {
		if empty {
			return nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("invalid %s rule: %w", t, err)
		}
		return nil
	}

	switch t {
	case TypeFixedTime:
		var r FixedTimeRule
		err := decode(&r)
		return r, err
	case TypeInterval:
		var r IntervalRule
		err := decode(&r)
		return r, err
	case TypePRN:
		var r PRNRule
		err := decode(&r)
		return r, err
	case TypeCyclic:
		var r CyclicRule
		err := decode(&r)
		return r, err
	case TypeTapered:
		var r TaperedRule
		err := decode(&r)
		return r, err
	case TypeMealBased:
		var r MealBasedRule
		err := decode(&r)
		return r, err
	case TypeSlidingScale:
		var r SlidingScaleRule
		err := decode(&r)
		return r, err
	default:
		return nil, fmt.Errorf("unknown schedule type %q", t)
	}
}
