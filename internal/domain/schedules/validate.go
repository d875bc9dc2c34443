package schedules

import (
	"fmt"
	"strings"
)

// maxMealOffsetMinutes acota el offset de meal_based; el calculador asume que
// un candidato nunca se corre más de medio día.
const maxMealOffsetMinutes = 12 * 60

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors junta todos los problemas de un schedule (no corta en el primero).
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Check es Validate con la convención de error de Go (nil si no hay problemas).
func Check(s Schedule) error {
	if errs := Validate(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func Validate(s Schedule) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(s.MedicationID) == "" {
		errs.add("medication_id", "required")
	}
	if strings.TrimSpace(s.PatientID) == "" {
		errs.add("patient_id", "required")
	}
	if s.StartDate.IsZero() {
		errs.add("start_date", "required")
	}
	if s.EndDate != nil && !s.StartDate.IsZero() && s.EndDate.Before(s.StartDate) {
		errs.add("end_date", "must be on or after start_date")
	}
	if _, err := s.Location(); err != nil {
		errs.add("timezone", "unknown IANA timezone %q", s.Timezone)
	}

	switch r := s.Rule.(type) {
	case nil:
		errs.add("type", "required")
	case FixedTimeRule:
		validateTimes(&errs, "rule.times", r.Times)
		validateDose(&errs, "rule.dose", r.Dose)
		switch r.Frequency {
		case "", FrequencyDaily:
		case FrequencyWeekly:
			if len(r.DaysOfWeek) == 0 {
				errs.add("rule.days_of_week", "required for weekly frequency")
			}
			for i, d := range r.DaysOfWeek {
				if d < 0 || d > 6 {
					errs.add(fmt.Sprintf("rule.days_of_week[%d]", i), "must be 0-6")
				}
			}
		case FrequencyMonthly:
			if len(r.DaysOfMonth) == 0 {
				errs.add("rule.days_of_month", "required for monthly frequency")
			}
			for i, d := range r.DaysOfMonth {
				if d < 1 || d > 31 {
					errs.add(fmt.Sprintf("rule.days_of_month[%d]", i), "must be 1-31")
				}
			}
		default:
			errs.add("rule.frequency", "unknown frequency %q", r.Frequency)
		}
	case IntervalRule:
		if r.Hours < 1 {
			errs.add("rule.hours", "must be >= 1")
		}
		validateDose(&errs, "rule.dose", r.Dose)
	case PRNRule:
		if r.MaxDailyDose <= 0 {
			errs.add("rule.max_daily_dose", "must be > 0")
		}
		if r.MinHoursBetween < 0 {
			errs.add("rule.min_hours_between", "must be >= 0")
		}
		validateDose(&errs, "rule.dose", r.Dose)
	case CyclicRule:
		if r.DaysOn < 1 {
			errs.add("rule.days_on", "must be >= 1")
		}
		if r.DaysOff < 0 {
			errs.add("rule.days_off", "must be >= 0")
		}
		validateTimes(&errs, "rule.times", r.Times)
		validateDose(&errs, "rule.dose", r.Dose)
	case TaperedRule:
		if r.Steps < 2 {
			errs.add("rule.steps", "must be >= 2")
		}
		if r.TotalDays < 1 {
			errs.add("rule.total_days", "must be >= 1")
		}
		if r.StartDose < 0 || r.EndDose < 0 {
			errs.add("rule.start_dose", "doses must be >= 0")
		}
		validateTimes(&errs, "rule.times", r.Times)
	case MealBasedRule:
		switch r.Relation {
		case RelationBefore, RelationAfter:
		case RelationWith:
			if r.OffsetMinutes != 0 {
				errs.add("rule.offset_minutes", "must be 0 when relation is with")
			}
		default:
			errs.add("rule.relation", "must be before, after or with")
		}
		switch r.Meal {
		case MealBreakfast, MealLunch, MealDinner:
		default:
			errs.add("rule.meal", "must be breakfast, lunch or dinner")
		}
		if r.OffsetMinutes < 0 || r.OffsetMinutes > maxMealOffsetMinutes {
			errs.add("rule.offset_minutes", "must be between 0 and %d", maxMealOffsetMinutes)
		}
		validateDose(&errs, "rule.dose", r.Dose)
	case SlidingScaleRule:
		if len(r.Rules) == 0 {
			errs.add("rule.rules", "at least one threshold required")
		}
		for i, sr := range r.Rules {
			validateDose(&errs, fmt.Sprintf("rule.rules[%d].dose", i), sr.Dose)
		}
	}

	return errs
}

func validateTimes(errs *ValidationErrors, field string, times []ClockTime) {
	if len(times) == 0 {
		errs.add(field, "at least one time required")
		return
	}
	for i, c := range times {
		if c.Hour < 0 || c.Hour > 23 {
			errs.add(fmt.Sprintf("%s[%d]", field, i), "hour must be 0-23")
		}
		if c.Minute < 0 || c.Minute > 59 {
			errs.add(fmt.Sprintf("%s[%d]", field, i), "minute must be 0-59")
		}
	}
}

func validateDose(errs *ValidationErrors, field string, d Dose) {
	if d.Amount < 0 {
		errs.add(field+".amount", "must be >= 0")
	}
}
