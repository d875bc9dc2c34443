package schedules

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput              = errors.New("invalid input")
	ErrNotFound                  = errors.New("not found")
	ErrNoOccurrenceWithinHorizon = errors.New("no occurrence within horizon")
	ErrNotSlidingScale           = errors.New("schedule is not sliding_scale")
)

type Dose struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
}

// Schedule es la definición de recurrencia de un medicamento de un paciente.
// Una edición crea una versión nueva; las anteriores quedan superseded.
type Schedule struct {
	ID           string
	MedicationID string
	PatientID    string

	Version int
	Status  Status

	StartDate time.Time
	EndDate   *time.Time
	Timezone  string // IANA; vacío = UTC

	Rule Rule

	CreatedAt    time.Time
	SupersededAt *time.Time
}

func (s Schedule) Type() Type {
	if s.Rule == nil {
		return ""
	}
	return s.Rule.Type()
}

func (s Schedule) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// location asume un schedule ya validado; ante zona inválida cae a UTC.
func (s Schedule) location() *time.Location {
	loc, err := s.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

// within: t ∈ [StartDate, EndDate].
func (s Schedule) within(t time.Time) bool {
	if t.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || !t.After(*s.EndDate)
}

// Occurrence es un instante concreto en que corresponde una dosis. No se persiste.
type Occurrence struct {
	ScheduleID   string    `json:"schedule_id"`
	MedicationID string    `json:"medication_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Dose         Dose      `json:"dose"`
}

// MealTimes es la configuración de comidas de un paciente.
// Las comidas que falten usan DefaultMealTimes.
type MealTimes map[Meal]ClockTime

func DefaultMealTimes() MealTimes {
	return MealTimes{
		MealBreakfast: {Hour: 8},
		MealLunch:     {Hour: 12},
		MealDinner:    {Hour: 18},
	}
}

func (m MealTimes) At(meal Meal) (ClockTime, bool) {
	if c, ok := m[meal]; ok {
		return c, true
	}
	c, ok := DefaultMealTimes()[meal]
	return c, ok
}
