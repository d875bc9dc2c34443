package schedules

import (
	"iter"
	"slices"
	"time"
)

// NextHorizonDays es cuánto avanza Next antes de rendirse.
const NextHorizonDays = 31

// Calculator calcula ocurrencias de un schedule. Nunca lee el reloj del
// sistema: el instante de partida siempre lo pasa quien llama.
// Meals nil usa DefaultMealTimes.
type Calculator struct {
	Meals MealTimes
}

// Matches combina la regla con la ventana [StartDate, EndDate].
func (c Calculator) Matches(s Schedule, at time.Time) bool {
	if s.Rule == nil || !s.within(at) {
		return false
	}
	return s.Rule.Matches(s, at, c.Meals)
}

// Next devuelve la primera ocurrencia >= from dentro de NextHorizonDays.
func (c Calculator) Next(s Schedule, from time.Time) (Occurrence, error) {
	end := from.In(s.location()).AddDate(0, 0, NextHorizonDays)
	for o := range c.Between(s, from, end) {
		return o, nil
	}
	return Occurrence{}, ErrNoOccurrenceWithinHorizon
}

// Upcoming devuelve las ocurrencias en [from, from+windowDays días locales),
// en orden ascendente. La secuencia es perezosa y se puede recorrer varias veces.
func (c Calculator) Upcoming(s Schedule, from time.Time, windowDays int) iter.Seq[Occurrence] {
	end := from.In(s.location()).AddDate(0, 0, windowDays)
	return c.Between(s, from, end)
}

// List es Upcoming materializado.
func (c Calculator) List(s Schedule, from time.Time, windowDays int) []Occurrence {
	return slices.Collect(c.Upcoming(s, from, windowDays))
}

// Between emite las ocurrencias en [from, end), recorriendo día por día en
// la zona del schedule.
// Un candidato generado para el día d puede caer en d-1 (meal_based con
// offset "before"), por eso se bufferiza y solo se emite lo anterior a la
// medianoche del día ya procesado.
func (c Calculator) Between(s Schedule, from, end time.Time) iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		if s.Rule == nil || !end.After(from) {
			return
		}
		if s.EndDate != nil && s.EndDate.Before(from) {
			return
		}
		lo := from
		if s.StartDate.After(lo) {
			lo = s.StartDate
		}
		if !end.After(lo) {
			return
		}

		loc := s.location()
		first := localDay(lo.In(loc).AddDate(0, 0, -1))
		last := localDay(end.In(loc)).AddDate(0, 0, 1)

		var buf []time.Time
		emit := func(until time.Time, all bool) bool {
			n := 0
			for n < len(buf) && (all || buf[n].Before(until)) {
				t := buf[n]
				o := Occurrence{
					ScheduleID:   s.ID,
					MedicationID: s.MedicationID,
					ScheduledAt:  t.UTC(),
					Dose:         s.Rule.DoseAt(s, t),
				}
				if !yield(o) {
					return false
				}
				n++
			}
			buf = buf[n:]
			return true
		}

		for day := first; !day.After(last); day = nextDay(day) {
			for _, t := range s.Rule.candidates(s, day, c.Meals) {
				if t.Before(lo) || !t.Before(end) {
					continue
				}
				if s.EndDate != nil && t.After(*s.EndDate) {
					continue
				}
				if !s.Rule.Matches(s, t, c.Meals) {
					continue
				}
				buf = append(buf, t)
			}
			slices.SortFunc(buf, func(a, b time.Time) int { return a.Compare(b) })
			buf = slices.CompactFunc(buf, func(a, b time.Time) bool { return a.Equal(b) })
			if !emit(day, false) {
				return
			}
		}
		emit(time.Time{}, true)
	}
}
