package conflicts

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/ports/interactions"
)

const (
	DefaultWorkers       = 4
	DefaultOracleTimeout = 2 * time.Second
)

// Detector compara un schedule candidato contra los schedules existentes del
// paciente. No muta sus entradas ni guarda estado entre llamadas.
type Detector struct {
	Calculator    schedules.Calculator
	Oracle        interactions.Oracle // nil = sin chequeo de interacciones
	Workers       int
	OracleTimeout time.Duration
}

// slot es el resultado de un schedule existente.
type slot struct {
	conflicts []Conflict
}

type oracleOutcome struct {
	result interactions.Result
	err    error
}

// Detect corre sobre la ventana [from, from+WindowDays). Cada schedule
// existente se evalúa en paralelo (pool acotado) y el resultado se ordena al
// final, así que el paralelismo no cambia la salida:
//   - agrupado por medicamento existente, en el orden recibido
//   - dentro del grupo: interaction primero, después por hora candidata
//
// Solo falla si ctx se cancela antes de terminar; un error del oráculo no es
// un error de Detect, queda como Warning.
func (d Detector) Detect(ctx context.Context, candidate schedules.Schedule, existing []schedules.Schedule, from time.Time, opts Options) (Report, error) {
	opts = opts.withDefaults()

	cand := d.Calculator.List(candidate, from, opts.WindowDays)
	lo, hi := comparisonRange(candidate, from, opts)

	// Un medicamento tiene un solo schedule activo: los del mismo medicamento
	// (o el mismo schedule) son la versión que el candidato reemplaza.
	others := make([]schedules.Schedule, 0, len(existing))
	medOrder := make([]string, 0, len(existing))
	for _, ex := range existing {
		if ex.ID != "" && ex.ID == candidate.ID {
			continue
		}
		if ex.MedicationID == candidate.MedicationID {
			continue
		}
		others = append(others, ex)
		if !slices.Contains(medOrder, ex.MedicationID) {
			medOrder = append(medOrder, ex.MedicationID)
		}
	}

	slots := make([]slot, len(others))
	outcomes := make([]oracleOutcome, len(medOrder))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())
	for i, ex := range others {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			occ := instants(d.Calculator.Between(ex, lo, hi))
			slots[i] = slot{conflicts: timingConflicts(candidate, cand, ex, occ, opts)}
			return nil
		})
	}
	if d.Oracle != nil {
		for i, med := range medOrder {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := d.checkInteraction(gctx, candidate.MedicationID, med)
				outcomes[i] = oracleOutcome{result: res, err: err}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("detect conflicts: %w", err)
	}

	rep := Report{Conflicts: []Conflict{}}
	for i, med := range medOrder {
		var group []Conflict
		firstSchedule := ""
		for j, ex := range others {
			if ex.MedicationID != med {
				continue
			}
			if firstSchedule == "" {
				firstSchedule = ex.ID
			}
			group = append(group, slots[j].conflicts...)
		}
		sort.SliceStable(group, func(a, b int) bool {
			ta, tb := *group[a].ConflictingTime, *group[b].ConflictingTime
			if !ta.Equal(tb) {
				return ta.Before(tb)
			}
			return group[a].ExistingTime.Before(*group[b].ExistingTime)
		})

		if d.Oracle != nil {
			out := outcomes[i]
			switch {
			case out.err != nil:
				rep.Warnings = append(rep.Warnings, Warning{
					Code:         WarningOracleUnavailable,
					MedicationID: med,
					Message:      out.err.Error(),
				})
			case out.result.HasInteraction:
				rep.Conflicts = append(rep.Conflicts, interactionConflict(candidate.MedicationID, med, firstSchedule, out.result))
			}
		}
		rep.Conflicts = append(rep.Conflicts, group...)
	}
	return rep, nil
}

func (d Detector) workers() int {
	if d.Workers <= 0 {
		return DefaultWorkers
	}
	return d.Workers
}

// checkInteraction es el único borde de I/O: timeout propio y cualquier
// falla (incluido un panic del adapter) se convierte en ErrOracleUnavailable.
func (d Detector) checkInteraction(ctx context.Context, medA, medB string) (res interactions.Result, err error) {
	timeout := d.OracleTimeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res = interactions.Result{}
			err = fmt.Errorf("%w: %v", interactions.ErrOracleUnavailable, p)
		}
	}()

	res, err = d.Oracle.Check(cctx, medA, medB)
	if err != nil {
		return interactions.Result{}, fmt.Errorf("%w: %v", interactions.ErrOracleUnavailable, err)
	}
	return res, nil
}

// comparisonRange extiende la ventana del candidato en MinGap a cada lado
// para ver pares que cruzan el borde.
func comparisonRange(candidate schedules.Schedule, from time.Time, opts Options) (time.Time, time.Time) {
	loc, err := candidate.Location()
	if err != nil {
		loc = time.UTC
	}
	end := from.In(loc).AddDate(0, 0, opts.WindowDays)
	return from.Add(-opts.MinGap), end.Add(opts.MinGap)
}

func instants(seq iter.Seq[schedules.Occurrence]) []time.Time {
	var out []time.Time
	for o := range seq {
		out = append(out, o.ScheduledAt)
	}
	return out
}

// timingConflicts: occ debe venir ordenado (Between ya lo garantiza).
func timingConflicts(candidate schedules.Schedule, cand []schedules.Occurrence, ex schedules.Schedule, occ []time.Time, opts Options) []Conflict {
	var out []Conflict
	for _, c := range cand {
		at := c.ScheduledAt
		start := sort.Search(len(occ), func(i int) bool { return occ[i].After(at.Add(-opts.MinGap)) })
		for j := start; j < len(occ) && occ[j].Before(at.Add(opts.MinGap)); j++ {
			gap := occ[j].Sub(at)
			if gap < 0 {
				gap = -gap
			}
			out = append(out, timingConflict(candidate.MedicationID, ex, at, occ[j], gap, opts))
		}
	}
	return out
}

func timingConflict(subject string, ex schedules.Schedule, at, other time.Time, gap time.Duration, opts Options) Conflict {
	c := Conflict{
		SubjectMedicationID:     subject,
		ConflictingMedicationID: ex.MedicationID,
		ConflictingScheduleID:   ex.ID,
		ConflictingTime:         &at,
		ExistingTime:            &other,
		GapMinutes:              int(gap / time.Minute),
	}
	switch {
	case gap == 0:
		c.Type = TypeOverlap
		c.Severity = SeverityHigh
		c.Description = fmt.Sprintf("due at the same time as %s (%s UTC)", ex.MedicationID, at.UTC().Format("2006-01-02 15:04"))
	default:
		c.Type = TypeTooClose
		c.Severity = SeverityMedium
		if gap < opts.SafetyGap {
			c.Severity = SeverityHigh
		}
		c.Description = fmt.Sprintf("%s gap with %s (minimum %s)", formatGap(gap), ex.MedicationID, formatGap(opts.MinGap))
	}
	return c
}

func interactionConflict(subject, med, scheduleID string, res interactions.Result) Conflict {
	desc := fmt.Sprintf("known interaction between %s and %s", subject, med)
	if res.Severity != "" {
		desc += " (" + res.Severity + ")"
	}
	return Conflict{
		SubjectMedicationID:     subject,
		ConflictingMedicationID: med,
		ConflictingScheduleID:   scheduleID,
		Type:                    TypeInteraction,
		Severity:                SeverityHigh,
		OracleSeverity:          res.Severity,
		Description:             desc,
	}
}

func formatGap(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d-minute", int(d/time.Minute))
	}
	return d.String()
}
