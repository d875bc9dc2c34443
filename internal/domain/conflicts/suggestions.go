package conflicts

import (
	"fmt"
	"slices"
	"time"

	"medication-schedule/internal/domain/schedules"
)

const (
	MaxSuggestions       = 3
	maxShiftMinutes      = 12 * 60
	maxIntervalIncrease  = 24
	maxMealOffsetMinutes = 120
)

// Suggester propone ajustes que eliminan un conflicto de horario.
// Igual que el detector, no lee el reloj ni hace I/O.
type Suggester struct {
	Calculator schedules.Calculator
}

// Suggest devuelve hasta MaxSuggestions sugerencias para c, rankeadas por
// menor alteración. Conflictos de interacción no tienen sugerencias.
func (sg Suggester) Suggest(candidate schedules.Schedule, existing []schedules.Schedule, c Conflict, from time.Time, opts Options) []Suggestion {
	if !c.Timing() || c.ConflictingTime == nil {
		return []Suggestion{}
	}
	opts = opts.withDefaults()
	chk := sg.checker(candidate, existing, from, opts)

	var primary, extra []Suggestion
	switch r := candidate.Rule.(type) {
	case schedules.FixedTimeRule, schedules.CyclicRule, schedules.TaperedRule:
		best, alt := sg.shiftSlot(candidate, *c.ConflictingTime, chk)
		primary = appendIf(primary, best)
		extra = appendIf(extra, alt)
	case schedules.IntervalRule:
		best, alt := sg.shiftAnchor(candidate, chk)
		primary = appendIf(primary, best)
		primary = appendIf(primary, sg.widenInterval(candidate, r, chk))
		extra = appendIf(extra, alt)
	case schedules.MealBasedRule:
		if s := sg.moveMealOffset(candidate, r, chk); s != nil {
			primary = append(primary, *s)
		} else {
			primary = append(primary, sg.changeMeal(candidate, r, chk)...)
		}
	}

	out := append(primary, extra...)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

// -------------------------
// clearance
// -------------------------

// checker responde si un conjunto de instantes queda a MinGap o más de
// todas las ocurrencias existentes de la ventana.
type checker struct {
	calc     schedules.Calculator
	from     time.Time
	days     int
	minGap   time.Duration
	existing []time.Time
}

func (sg Suggester) checker(candidate schedules.Schedule, existing []schedules.Schedule, from time.Time, opts Options) checker {
	lo, hi := comparisonRange(candidate, from, opts)
	var occ []time.Time
	for _, ex := range existing {
		if (ex.ID != "" && ex.ID == candidate.ID) || ex.MedicationID == candidate.MedicationID {
			continue
		}
		occ = append(occ, instants(sg.Calculator.Between(ex, lo, hi))...)
	}
	slices.SortFunc(occ, func(a, b time.Time) int { return a.Compare(b) })
	return checker{
		calc:     sg.Calculator,
		from:     from,
		days:     opts.WindowDays,
		minGap:   opts.MinGap,
		existing: occ,
	}
}

func (k checker) clearAt(t time.Time) bool {
	i, _ := slices.BinarySearchFunc(k.existing, t.Add(-k.minGap), func(e, target time.Time) int {
		if !e.After(target) {
			return -1
		}
		return 1
	})
	return i >= len(k.existing) || !k.existing[i].Before(t.Add(k.minGap))
}

// clear evalúa las ocurrencias de s en la ventana; keep filtra cuáles cuentan.
func (k checker) clear(s schedules.Schedule, keep func(time.Time) bool) bool {
	for o := range k.calc.Upcoming(s, k.from, k.days) {
		if keep != nil && !keep(o.ScheduledAt) {
			continue
		}
		if !k.clearAt(o.ScheduledAt) {
			return false
		}
	}
	return true
}

// -------------------------
// time_shift
// -------------------------

// shiftSlot mueve el horario en conflicto. Devuelve el menor corrimiento
// (adelante en empate) y el mejor en la dirección contraria.
func (sg Suggester) shiftSlot(candidate schedules.Schedule, conflictAt time.Time, k checker) (*Suggestion, *Suggestion) {
	loc, err := candidate.Location()
	if err != nil {
		return nil, nil
	}
	local := conflictAt.In(loc)
	times := ruleTimes(candidate.Rule)
	i := slices.IndexFunc(times, func(c schedules.ClockTime) bool { return c.On(local).Equal(local) })
	if i < 0 {
		return nil, nil
	}
	slot := times[i]

	try := func(delta int) *Suggestion {
		to := schedules.ClockFromMinutes(slot.Minutes() + delta)
		if slices.Contains(times, to) {
			return nil
		}
		s := Suggestion{
			Type:         SuggestionTimeShift,
			Original:     Value{Time: &slot},
			Suggested:    Value{Time: &to},
			ShiftMinutes: delta,
		}
		shifted, err := Apply(candidate, s)
		if err != nil {
			return nil
		}
		onSlot := func(t time.Time) bool {
			l := t.In(loc)
			return to.On(l).Equal(l)
		}
		if !k.clear(shifted, onSlot) {
			return nil
		}
		s.Reason = fmt.Sprintf("move %s to %s (%s) to keep %s from other medications",
			slot, to, signedMinutes(delta), formatGap(k.minGap))
		return &s
	}
	return searchShift(try)
}

// shiftAnchor corre el start_date de un interval: todas sus dosis se mueven juntas.
func (sg Suggester) shiftAnchor(candidate schedules.Schedule, k checker) (*Suggestion, *Suggestion) {
	orig := candidate.StartDate
	try := func(delta int) *Suggestion {
		to := orig.Add(time.Duration(delta) * time.Minute)
		s := Suggestion{
			Type:         SuggestionTimeShift,
			Original:     Value{Start: &orig},
			Suggested:    Value{Start: &to},
			ShiftMinutes: delta,
		}
		shifted, err := Apply(candidate, s)
		if err != nil || !k.clear(shifted, nil) {
			return nil
		}
		s.Reason = fmt.Sprintf("start the interval %s to keep %s from other medications",
			signedMinutes(delta), formatGap(k.minGap))
		return &s
	}
	return searchShift(try)
}

// searchShift prueba +1, -1, +2, -2... hasta ±12h. El primero que sirve es el
// mejor; después se busca la alternativa solo en la dirección contraria.
func searchShift(try func(delta int) *Suggestion) (*Suggestion, *Suggestion) {
	var best *Suggestion
	for m := 1; m <= maxShiftMinutes; m++ {
		for _, delta := range []int{m, -m} {
			if best == nil {
				best = try(delta)
				continue
			}
			if (delta > 0) == (best.ShiftMinutes > 0) {
				continue
			}
			if alt := try(delta); alt != nil {
				return best, alt
			}
		}
	}
	return best, nil
}

// -------------------------
// interval_adjustment
// -------------------------

func (sg Suggester) widenInterval(candidate schedules.Schedule, r schedules.IntervalRule, k checker) *Suggestion {
	for inc := 1; inc <= maxIntervalIncrease; inc++ {
		s := Suggestion{
			Type:      SuggestionIntervalAdjustment,
			Original:  Value{IntervalHours: r.Hours},
			Suggested: Value{IntervalHours: r.Hours + inc},
		}
		adjusted, err := Apply(candidate, s)
		if err != nil || !k.clear(adjusted, nil) {
			continue
		}
		s.Reason = fmt.Sprintf("take it every %dh instead of every %dh", r.Hours+inc, r.Hours)
		return &s
	}
	return nil
}

// -------------------------
// meal_based
// -------------------------

// moveMealOffset busca el offset con signo más cercano al actual en [-120, 120].
func (sg Suggester) moveMealOffset(candidate schedules.Schedule, r schedules.MealBasedRule, k checker) *Suggestion {
	cur := int(r.SignedOffset() / time.Minute)
	origOffset := r.OffsetMinutes
	orig := Value{Relation: r.Relation, OffsetMinutes: &origOffset}

	try := func(signed int) *Suggestion {
		rel, off := relationFor(signed)
		s := Suggestion{
			Type:         SuggestionMealOffset,
			Original:     orig,
			Suggested:    Value{Relation: rel, OffsetMinutes: &off},
			ShiftMinutes: signed - cur,
		}
		adjusted, err := Apply(candidate, s)
		if err != nil || !k.clear(adjusted, nil) {
			return nil
		}
		s.Reason = fmt.Sprintf("take it %s %s", describeOffset(rel, off), r.Meal)
		return &s
	}

	offsets := make([]int, 0, 2*maxMealOffsetMinutes+1)
	for o := -maxMealOffsetMinutes; o <= maxMealOffsetMinutes; o++ {
		if o != cur {
			offsets = append(offsets, o)
		}
	}
	// más cercano primero; en empate, el más tardío
	slices.SortStableFunc(offsets, func(a, b int) int {
		if da, db := absInt(a-cur), absInt(b-cur); da != db {
			return da - db
		}
		return b - a
	})
	for _, o := range offsets {
		if s := try(o); s != nil {
			return s
		}
	}
	return nil
}

// changeMeal prueba las comidas vecinas, la más cercana en horario primero.
func (sg Suggester) changeMeal(candidate schedules.Schedule, r schedules.MealBasedRule, k checker) []Suggestion {
	idx := slices.Index(schedules.Meals, r.Meal)
	if idx < 0 {
		return nil
	}
	var adjacent []schedules.Meal
	if idx > 0 {
		adjacent = append(adjacent, schedules.Meals[idx-1])
	}
	if idx < len(schedules.Meals)-1 {
		adjacent = append(adjacent, schedules.Meals[idx+1])
	}

	meals := sg.Calculator.Meals
	at := func(m schedules.Meal) int {
		c, _ := meals.At(m)
		return c.Minutes()
	}
	base := at(r.Meal)
	slices.SortStableFunc(adjacent, func(a, b schedules.Meal) int {
		return absInt(at(a)-base) - absInt(at(b)-base)
	})

	var out []Suggestion
	for _, m := range adjacent {
		s := Suggestion{
			Type:      SuggestionMealChange,
			Original:  Value{Meal: r.Meal},
			Suggested: Value{Meal: m},
		}
		adjusted, err := Apply(candidate, s)
		if err != nil || !k.clear(adjusted, nil) {
			continue
		}
		s.Reason = fmt.Sprintf("take it %s %s instead of %s", describeOffset(r.Relation, r.OffsetMinutes), m, r.Meal)
		out = append(out, s)
	}
	return out
}

// -------------------------
// helpers
// -------------------------

func ruleTimes(r schedules.Rule) []schedules.ClockTime {
	switch v := r.(type) {
	case schedules.FixedTimeRule:
		return v.Times
	case schedules.CyclicRule:
		return v.Times
	case schedules.TaperedRule:
		return v.Times
	}
	return nil
}

func relationFor(signed int) (schedules.Relation, int) {
	switch {
	case signed < 0:
		return schedules.RelationBefore, -signed
	case signed > 0:
		return schedules.RelationAfter, signed
	default:
		return schedules.RelationWith, 0
	}
}

func describeOffset(rel schedules.Relation, off int) string {
	if rel == schedules.RelationWith || off == 0 {
		return "with"
	}
	return fmt.Sprintf("%d minutes %s", off, rel)
}

func signedMinutes(m int) string {
	if m > 0 {
		return fmt.Sprintf("+%d min", m)
	}
	return fmt.Sprintf("%d min", m)
}

func appendIf(out []Suggestion, s *Suggestion) []Suggestion {
	if s == nil {
		return out
	}
	return append(out, *s)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
