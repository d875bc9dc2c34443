package conflicts

import (
	"time"

	"medication-schedule/internal/domain/schedules"
)

type Type string

const (
	TypeOverlap     Type = "overlap"
	TypeTooClose    Type = "too_close"
	TypeInteraction Type = "interaction"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict compara una ocurrencia candidata contra otro schedule del paciente.
// Es efímero: se calcula en cada chequeo y no se persiste por sí mismo.
type Conflict struct {
	SubjectMedicationID     string     `json:"subject_medication_id"`
	ConflictingMedicationID string     `json:"conflicting_medication_id"`
	ConflictingScheduleID   string     `json:"conflicting_schedule_id,omitempty"`
	Type                    Type       `json:"type"`
	Severity                Severity   `json:"severity"`
	ConflictingTime         *time.Time `json:"conflicting_time,omitempty"` // ocurrencia candidata
	ExistingTime            *time.Time `json:"existing_time,omitempty"`
	GapMinutes              int        `json:"gap_minutes"`
	OracleSeverity          string     `json:"oracle_severity,omitempty"`
	Description             string     `json:"description"`
}

func (c Conflict) Timing() bool {
	return c.Type == TypeOverlap || c.Type == TypeTooClose
}

type WarningCode string

const WarningOracleUnavailable WarningCode = "oracle_unavailable"

type Warning struct {
	Code         WarningCode `json:"code"`
	MedicationID string      `json:"medication_id,omitempty"`
	Message      string      `json:"message"`
}

// Report distingue "sin conflictos" de "conflictos con el oráculo degradado".
type Report struct {
	Conflicts []Conflict `json:"conflicts"`
	Warnings  []Warning  `json:"warnings,omitempty"`
}

func (r Report) Degraded() bool { return len(r.Warnings) > 0 }

const (
	DefaultWindowDays = 7
	DefaultMinGap     = 60 * time.Minute
	DefaultSafetyGap  = 15 * time.Minute
)

type Options struct {
	WindowDays int
	MinGap     time.Duration
	// SafetyGap: un too_close por debajo de este gap sube a severidad high.
	SafetyGap time.Duration
}

func DefaultOptions() Options {
	return Options{
		WindowDays: DefaultWindowDays,
		MinGap:     DefaultMinGap,
		SafetyGap:  DefaultSafetyGap,
	}
}

func (o Options) withDefaults() Options {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.MinGap <= 0 {
		o.MinGap = DefaultMinGap
	}
	if o.SafetyGap <= 0 {
		o.SafetyGap = DefaultSafetyGap
	}
	return o
}

// -------------------------
// Suggestions
// -------------------------

type SuggestionType string

const (
	SuggestionTimeShift          SuggestionType = "time_shift"
	SuggestionIntervalAdjustment SuggestionType = "interval_adjustment"
	SuggestionMealOffset         SuggestionType = "meal_offset_adjustment"
	SuggestionMealChange         SuggestionType = "meal_change"
)

// Value es el valor original o sugerido; solo se completan los campos del tipo.
type Value struct {
	Time          *schedules.ClockTime `json:"time,omitempty"`
	Start         *time.Time           `json:"start,omitempty"`
	IntervalHours int                  `json:"interval_hours,omitempty"`
	Relation      schedules.Relation   `json:"relation,omitempty"`
	OffsetMinutes *int                 `json:"offset_minutes,omitempty"`
	Meal          schedules.Meal       `json:"meal,omitempty"`
}

// Suggestion nunca cambia la dosis, solo el momento.
type Suggestion struct {
	Type         SuggestionType `json:"type"`
	Rank         int            `json:"rank"`
	Original     Value          `json:"original"`
	Suggested    Value          `json:"suggested"`
	ShiftMinutes int            `json:"shift_minutes,omitempty"`
	Reason       string         `json:"reason"`
}

// Finding es un conflicto con sus sugerencias ya rankeadas.
type Finding struct {
	Conflict
	Suggestions []Suggestion `json:"suggestions"`
}
