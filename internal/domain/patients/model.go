package patients

import (
	"time"

	"medication-schedule/internal/domain/schedules"
)

// Patient guarda solo lo que el motor de horarios necesita: zona horaria
// local y horarios de comida.
type Patient struct {
	ID              string
	CreatedByUserID string

	Name     string
	Timezone string // IANA; "" = UTC

	// MealTimes parciales se completan con los defaults (08:00/12:00/18:00).
	MealTimes schedules.MealTimes

	CreatedAt time.Time
	UpdatedAt time.Time
}
