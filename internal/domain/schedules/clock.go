package schedules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const minutesPerDay = 24 * 60

// ClockTime es una hora de reloj (HH:MM) en la zona del schedule.
// No valida rangos al parsear: eso lo reporta Validate con el campo exacto.
type ClockTime struct {
	Hour   int
	Minute int
}

var reClock = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

func ParseClock(raw string) (ClockTime, error) {
	m := reClock.FindStringSubmatch(raw)
	if len(m) != 3 {
		return ClockTime{}, fmt.Errorf("invalid time %q (use HH:MM)", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return ClockTime{Hour: h, Minute: mm}, nil
}

// MustClock es para tablas de tests y defaults.
func MustClock(raw string) ClockTime {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockFromMinutes normaliza minutos desde medianoche (admite negativos y >24h).
func ClockFromMinutes(m int) ClockTime {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return ClockTime{Hour: m / 60, Minute: m % 60}
}

func (c ClockTime) Valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On devuelve el instante de esta hora en el día local de day.
func (c ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time must be a \"HH:MM\" string")
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// onClock: t es el instante que c designa en el día local de t. Una hora que
// cae en el hueco de un cambio de horario designa el instante corrido
// (02:30 -> 03:30), igual que On.
func onClock(t time.Time, c ClockTime) bool {
	return c.On(localDay(t)).Equal(t)
}

func localDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nextDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
}

// daysBetween cuenta días de calendario entre las fechas locales de a y b.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}
