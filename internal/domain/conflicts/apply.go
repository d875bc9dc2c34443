package conflicts

import (
	"errors"
	"slices"

	"medication-schedule/internal/domain/schedules"
)

var ErrSuggestionMismatch = errors.New("suggestion does not fit schedule")

// Apply devuelve una copia de s con la sugerencia aplicada. La dosis nunca cambia.
// No valida el resultado: eso lo hace quien persiste.
func Apply(s schedules.Schedule, sg Suggestion) (schedules.Schedule, error) {
	out := s
	switch sg.Type {
	case SuggestionTimeShift:
		if sg.Suggested.Start != nil {
			if _, ok := s.Rule.(schedules.IntervalRule); !ok {
				return schedules.Schedule{}, ErrSuggestionMismatch
			}
			out.StartDate = *sg.Suggested.Start
			return out, nil
		}
		if sg.Original.Time == nil || sg.Suggested.Time == nil {
			return schedules.Schedule{}, ErrSuggestionMismatch
		}
		rule, err := replaceTime(s.Rule, *sg.Original.Time, *sg.Suggested.Time)
		if err != nil {
			return schedules.Schedule{}, err
		}
		out.Rule = rule

	case SuggestionIntervalAdjustment:
		r, ok := s.Rule.(schedules.IntervalRule)
		if !ok || sg.Suggested.IntervalHours <= 0 {
			return schedules.Schedule{}, ErrSuggestionMismatch
		}
		r.Hours = sg.Suggested.IntervalHours
		out.Rule = r

	case SuggestionMealOffset:
		r, ok := s.Rule.(schedules.MealBasedRule)
		if !ok || sg.Suggested.OffsetMinutes == nil {
			return schedules.Schedule{}, ErrSuggestionMismatch
		}
		r.Relation = sg.Suggested.Relation
		r.OffsetMinutes = *sg.Suggested.OffsetMinutes
		out.Rule = r

	case SuggestionMealChange:
		r, ok := s.Rule.(schedules.MealBasedRule)
		if !ok || sg.Suggested.Meal == "" {
			return schedules.Schedule{}, ErrSuggestionMismatch
		}
		r.Meal = sg.Suggested.Meal
		out.Rule = r

	default:
		return schedules.Schedule{}, ErrSuggestionMismatch
	}
	return out, nil
}

func replaceTime(rule schedules.Rule, from, to schedules.ClockTime) (schedules.Rule, error) {
	swap := func(times []schedules.ClockTime) ([]schedules.ClockTime, bool) {
		i := slices.Index(times, from)
		if i < 0 {
			return nil, false
		}
		cp := slices.Clone(times)
		cp[i] = to
		return cp, true
	}

	switch r := rule.(type) {
	case schedules.FixedTimeRule:
		times, ok := swap(r.Times)
		if !ok {
			return nil, ErrSuggestionMismatch
		}
		r.Times = times
		return r, nil
	case schedules.CyclicRule:
		times, ok := swap(r.Times)
		if !ok {
			return nil, ErrSuggestionMismatch
		}
		r.Times = times
		return r, nil
	case schedules.TaperedRule:
		times, ok := swap(r.Times)
		if !ok {
			return nil, ErrSuggestionMismatch
		}
		r.Times = times
		return r, nil
	}
	return nil, ErrSuggestionMismatch
}
