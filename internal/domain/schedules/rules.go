package schedules

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Rule es la regla de recurrencia de un Schedule.
// El conjunto es cerrado: candidates no se exporta, así que solo las
// variantes de este paquete implementan Rule.
type Rule interface {
	Type() Type
	// Matches: ¿corresponde una dosis exactamente en at?
	Matches(s Schedule, at time.Time, meals MealTimes) bool
	DoseAt(s Schedule, at time.Time) Dose
	// candidates devuelve los instantes a probar para el día local day (medianoche).
	candidates(s Schedule, day time.Time, meals MealTimes) []time.Time
}

// -------------------------
// fixed_time
// -------------------------

type FixedTimeRule struct {
	Frequency   Frequency      `json:"frequency,omitempty"`
	Times       []ClockTime    `json:"times"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty"`
	DaysOfMonth []int          `json:"days_of_month,omitempty"`
	Dose        Dose           `json:"dose"`
}

func (FixedTimeRule) Type() Type { return TypeFixedTime }

func (r FixedTimeRule) Matches(s Schedule, at time.Time, _ MealTimes) bool {
	local := at.In(s.location())
	return onAnyClock(local, r.Times) && r.onDay(local)
}

func (r FixedTimeRule) DoseAt(Schedule, time.Time) Dose { return r.Dose }

func (r FixedTimeRule) candidates(_ Schedule, day time.Time, _ MealTimes) []time.Time {
	if !r.onDay(day) {
		return nil
	}
	return clockCandidates(r.Times, day)
}

// onDay aplica el filtro weekly/monthly a la fecha local de t. cron evalúa
// esa fecha a medianoche UTC, así los cambios de horario no la afectan.
func (r FixedTimeRule) onDay(t time.Time) bool {
	if r.Frequency == "" || r.Frequency == FrequencyDaily {
		return true
	}
	spec, err := r.daySchedule()
	if err != nil {
		return false
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return spec.Next(day.Add(-time.Minute)).Equal(day)
}

// daySchedules guarda los cron.Schedule ya parseados por expresión.
var daySchedules sync.Map

// daySchedule arma "0 0 DOM * DOW" con los días del filtro.
func (r FixedTimeRule) daySchedule() (cron.Schedule, error) {
	dom, dow := "*", "*"
	switch r.Frequency {
	case FrequencyWeekly:
		days := make([]int, 0, len(r.DaysOfWeek))
		for _, d := range r.DaysOfWeek {
			days = append(days, int(d))
		}
		dow = joinInts(days)
	case FrequencyMonthly:
		dom = joinInts(r.DaysOfMonth)
	}
	expr := fmt.Sprintf("0 0 %s * %s", dom, dow)
	if v, ok := daySchedules.Load(expr); ok {
		return v.(cron.Schedule), nil
	}
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, err
	}
	daySchedules.Store(expr, spec)
	return spec, nil
}

// -------------------------
// interval
// -------------------------

type IntervalRule struct {
	Hours int  `json:"hours"`
	Dose  Dose `json:"dose"`
}

func (IntervalRule) Type() Type { return TypeInterval }

func (r IntervalRule) step() time.Duration { return time.Duration(r.Hours) * time.Hour }

func (r IntervalRule) Matches(s Schedule, at time.Time, _ MealTimes) bool {
	if r.Hours <= 0 {
		return false
	}
	d := at.Sub(s.StartDate)
	return d >= 0 && d%r.step() == 0
}

func (r IntervalRule) DoseAt(Schedule, time.Time) Dose { return r.Dose }

func (r IntervalRule) candidates(s Schedule, day time.Time, _ MealTimes) []time.Time {
	if r.Hours <= 0 {
		return nil
	}
	step := r.step()
	end := nextDay(day)
	if !end.After(s.StartDate) {
		return nil
	}
	t := s.StartDate
	if day.After(t) {
		k := int64((day.Sub(t) + step - 1) / step)
		t = t.Add(time.Duration(k) * step)
	}
	var out []time.Time
	for ; t.Before(end); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}

// -------------------------
// prn
// -------------------------

// PRNRule ("as needed") no tiene instantes programados: solo impone techos
// (ver CheckAsNeeded).
type PRNRule struct {
	MaxDailyDose    float64 `json:"max_daily_dose"`
	MinHoursBetween float64 `json:"min_hours_between"`
	Dose            Dose    `json:"dose"`
}

func (PRNRule) Type() Type                                            { return TypePRN }
func (PRNRule) Matches(Schedule, time.Time, MealTimes) bool           { return false }
func (r PRNRule) DoseAt(Schedule, time.Time) Dose                     { return r.Dose }
func (PRNRule) candidates(Schedule, time.Time, MealTimes) []time.Time { return nil }

func (r PRNRule) minGap() time.Duration {
	return time.Duration(r.MinHoursBetween * float64(time.Hour))
}

// -------------------------
// cyclic
// -------------------------

type CyclicRule struct {
	DaysOn  int         `json:"days_on"`
	DaysOff int         `json:"days_off"`
	Times   []ClockTime `json:"times"`
	Dose    Dose        `json:"dose"`
}

func (CyclicRule) Type() Type { return TypeCyclic }

// OnDay: el día (contado desde StartDate) cae dentro de los días "on" del ciclo.
func (r CyclicRule) OnDay(day int) bool {
	period := r.DaysOn + r.DaysOff
	if day < 0 || r.DaysOn <= 0 || period <= 0 {
		return false
	}
	return day%period < r.DaysOn
}

func (r CyclicRule) Matches(s Schedule, at time.Time, _ MealTimes) bool {
	loc := s.location()
	local := at.In(loc)
	return r.OnDay(daysBetween(s.StartDate.In(loc), local)) && onAnyClock(local, r.Times)
}

func (r CyclicRule) DoseAt(Schedule, time.Time) Dose { return r.Dose }

func (r CyclicRule) candidates(s Schedule, day time.Time, _ MealTimes) []time.Time {
	if !r.OnDay(daysBetween(s.StartDate.In(day.Location()), day)) {
		return nil
	}
	return clockCandidates(r.Times, day)
}

// -------------------------
// tapered
// -------------------------

// TaperedRule baja (o sube) la dosis en Steps mesetas entre StartDose y EndDose.
// Cada meseta dura TotalDays/Steps días; la última absorbe el resto.
type TaperedRule struct {
	StartDose float64     `json:"start_dose"`
	EndDose   float64     `json:"end_dose"`
	TotalDays int         `json:"total_days"`
	Steps     int         `json:"steps"`
	Times     []ClockTime `json:"times"`
	Unit      string      `json:"unit,omitempty"`
}

func (TaperedRule) Type() Type { return TypeTapered }

func (r TaperedRule) PlateauDays() int {
	if r.Steps <= 0 {
		return 1
	}
	p := r.TotalDays / r.Steps
	if p < 1 {
		return 1
	}
	return p
}

func (r TaperedRule) PlateauIndex(day int) int {
	if day <= 0 {
		return 0
	}
	idx := day / r.PlateauDays()
	if idx > r.Steps-1 {
		idx = r.Steps - 1
	}
	if idx < 0 {
		return 0
	}
	return idx
}

func (r TaperedRule) DoseOnDay(day int) Dose {
	if r.Steps < 2 {
		return Dose{Amount: r.StartDose, Unit: r.Unit}
	}
	idx := r.PlateauIndex(day)
	amount := r.StartDose + float64(idx)*(r.EndDose-r.StartDose)/float64(r.Steps-1)
	return Dose{Amount: amount, Unit: r.Unit}
}

// Plateaus devuelve la dosis de cada meseta, en orden.
func (r TaperedRule) Plateaus() []Dose {
	out := make([]Dose, 0, r.Steps)
	for i := 0; i < r.Steps; i++ {
		out = append(out, r.DoseOnDay(i*r.PlateauDays()))
	}
	return out
}

func (r TaperedRule) boundary(day int) bool {
	if day < 0 || day >= r.TotalDays {
		return false
	}
	p := r.PlateauDays()
	return day%p == 0 && day/p < r.Steps
}

func (r TaperedRule) Matches(s Schedule, at time.Time, _ MealTimes) bool {
	loc := s.location()
	local := at.In(loc)
	return r.boundary(daysBetween(s.StartDate.In(loc), local)) && onAnyClock(local, r.Times)
}

func (r TaperedRule) DoseAt(s Schedule, at time.Time) Dose {
	loc := s.location()
	return r.DoseOnDay(daysBetween(s.StartDate.In(loc), at.In(loc)))
}

func (r TaperedRule) candidates(s Schedule, day time.Time, _ MealTimes) []time.Time {
	if !r.boundary(daysBetween(s.StartDate.In(day.Location()), day)) {
		return nil
	}
	return clockCandidates(r.Times, day)
}

// -------------------------
// meal_based
// -------------------------

type MealBasedRule struct {
	Relation      Relation `json:"relation"`
	Meal          Meal     `json:"meal"`
	OffsetMinutes int      `json:"offset_minutes"`
	Dose          Dose     `json:"dose"`
}

func (MealBasedRule) Type() Type { return TypeMealBased }

// SignedOffset: before resta, after suma, with es cero.
func (r MealBasedRule) SignedOffset() time.Duration {
	switch r.Relation {
	case RelationBefore:
		return -time.Duration(r.OffsetMinutes) * time.Minute
	case RelationAfter:
		return time.Duration(r.OffsetMinutes) * time.Minute
	default:
		return 0
	}
}

func (r MealBasedRule) mealInstant(day time.Time, meals MealTimes) (time.Time, bool) {
	c, ok := meals.At(r.Meal)
	if !ok {
		return time.Time{}, false
	}
	return c.On(day).Add(r.SignedOffset()), true
}

func (r MealBasedRule) Matches(s Schedule, at time.Time, meals MealTimes) bool {
	local := at.In(s.location())
	t, ok := r.mealInstant(localDay(local.Add(-r.SignedOffset())), meals)
	return ok && t.Equal(at)
}

func (r MealBasedRule) DoseAt(Schedule, time.Time) Dose { return r.Dose }

func (r MealBasedRule) candidates(_ Schedule, day time.Time, meals MealTimes) []time.Time {
	t, ok := r.mealInstant(day, meals)
	if !ok {
		return nil
	}
	return []time.Time{t}
}

// -------------------------
// sliding_scale
// -------------------------

type ScaleRule struct {
	Measurement float64 `json:"measurement"`
	Dose        Dose    `json:"dose"`
}

// SlidingScaleRule no genera instantes: traduce una medición externa a dosis.
type SlidingScaleRule struct {
	Rules []ScaleRule `json:"rules"`
}

func (SlidingScaleRule) Type() Type                                            { return TypeSlidingScale }
func (SlidingScaleRule) Matches(Schedule, time.Time, MealTimes) bool           { return false }
func (SlidingScaleRule) DoseAt(Schedule, time.Time) Dose                       { return Dose{} }
func (SlidingScaleRule) candidates(Schedule, time.Time, MealTimes) []time.Time { return nil }

// DoseFor elige el umbral más alto <= reading. Con umbrales iguales gana el
// último declarado.
func (r SlidingScaleRule) DoseFor(reading float64) (Dose, bool) {
	var best ScaleRule
	found := false
	for _, rule := range r.Rules {
		if rule.Measurement > reading {
			continue
		}
		if !found || rule.Measurement >= best.Measurement {
			best = rule
			found = true
		}
	}
	return best.Dose, found
}

// -------------------------
// helpers
// -------------------------

func clockCandidates(times []ClockTime, day time.Time) []time.Time {
	out := make([]time.Time, 0, len(times))
	for _, c := range times {
		out = append(out, c.On(day))
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

func onAnyClock(t time.Time, times []ClockTime) bool {
	for _, c := range times {
		if onClock(t, c) {
			return true
		}
	}
	return false
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}
