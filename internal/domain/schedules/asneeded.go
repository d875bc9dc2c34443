package schedules

import (
	"errors"
	"slices"
	"time"
)

var ErrNotAsNeeded = errors.New("schedule is not prn")

// DoseEvent es una administración registrada (entrada externa al motor).
type DoseEvent struct {
	At     time.Time `json:"at"`
	Amount float64   `json:"amount"`
}

type Violation string

const (
	ViolationMinGap   Violation = "min_gap"
	ViolationMaxDaily Violation = "max_daily"
)

type AsNeededDecision struct {
	Allowed       bool        `json:"allowed"`
	Violations    []Violation `json:"violations,omitempty"`
	TakenLast24h  float64     `json:"taken_last_24h"`
	NextAllowedAt *time.Time  `json:"next_allowed_at,omitempty"`
}

// CheckAsNeeded aplica los techos de un schedule prn a la dosis propuesta
// (proposed.Amount en proposed.At). MaxDailyDose se mide en cantidad sobre
// las 24h móviles que terminan en proposed.At. Eventos posteriores no cuentan.
func CheckAsNeeded(s Schedule, log []DoseEvent, proposed DoseEvent) (AsNeededDecision, error) {
	r, ok := s.Rule.(PRNRule)
	if !ok {
		return AsNeededDecision{}, ErrNotAsNeeded
	}
	at, amount := proposed.At, proposed.Amount

	past := make([]DoseEvent, 0, len(log))
	for _, e := range log {
		if !e.At.After(at) {
			past = append(past, e)
		}
	}
	slices.SortFunc(past, func(a, b DoseEvent) int { return a.At.Compare(b.At) })

	var d AsNeededDecision
	var next time.Time

	if gap := r.minGap(); gap > 0 && len(past) > 0 {
		last := past[len(past)-1].At
		if at.Sub(last) < gap {
			d.Violations = append(d.Violations, ViolationMinGap)
			next = last.Add(gap)
		}
	}

	windowStart := at.Add(-24 * time.Hour)
	var window []DoseEvent
	for _, e := range past {
		if e.At.After(windowStart) {
			window = append(window, e)
			d.TakenLast24h += e.Amount
		}
	}
	if r.MaxDailyDose > 0 && d.TakenLast24h+amount > r.MaxDailyDose {
		d.Violations = append(d.Violations, ViolationMaxDaily)
		if amount > r.MaxDailyDose {
			// Por sí sola supera el techo: no hay momento en que se permita.
			next = time.Time{}
		} else {
			// La ventana se libera a medida que las dosis viejas cumplen 24h.
			rem := d.TakenLast24h
			for _, e := range window {
				rem -= e.Amount
				if rem+amount <= r.MaxDailyDose {
					if t := e.At.Add(24 * time.Hour); t.After(next) {
						next = t
					}
					break
				}
			}
		}
	}

	d.Allowed = len(d.Violations) == 0
	if !d.Allowed && !next.IsZero() {
		d.NextAllowedAt = &next
	}
	return d, nil
}
