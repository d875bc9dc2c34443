package schedules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleJSONCarriesType(t *testing.T) {
	in := Schedule{
		ID:           "s1",
		MedicationID: "metformin",
		PatientID:    "p1",
		Version:      2,
		Status:       StatusActive,
		StartDate:    utc(2025, 3, 1, 0, 0),
		Timezone:     "America/Lima",
		Rule:         MealBasedRule{Relation: RelationAfter, Meal: MealDinner, OffsetMinutes: 15, Dose: Dose{Amount: 850, Unit: "mg"}},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"meal_based"`)
	assert.Contains(t, string(raw), `"relation":"after"`)
	assert.NotContains(t, string(raw), "created_at")

	var out Schedule
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestScheduleJSONDecodesClockTimes(t *testing.T) {
	var s Schedule
	err := json.Unmarshal([]byte(`{
		"medication_id": "warfarin",
		"patient_id": "p1",
		"type": "fixed_time",
		"start_date": "2025-03-01T00:00:00Z",
		"rule": {"times": ["08:00", "20:30"], "dose": {"amount": 5, "unit": "mg"}}
	}`), &s)
	require.NoError(t, err)

	r, ok := s.Rule.(FixedTimeRule)
	require.True(t, ok)
	assert.Equal(t, []ClockTime{{Hour: 8}, {Hour: 20, Minute: 30}}, r.Times)
}

func TestScheduleJSONErrors(t *testing.T) {
	var s Schedule
	assert.Error(t, json.Unmarshal([]byte(`{"type":"hourly","rule":{}}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"fixed_time","rule":{"times":["8am"]}}`), &s))

	// Sin rule: la variante queda en cero y Validate reporta lo faltante.
	require.NoError(t, json.Unmarshal([]byte(`{"type":"interval"}`), &s))
	assert.Equal(t, IntervalRule{}, s.Rule)
}

func TestClockFromMinutesWraps(t *testing.T) {
	assert.Equal(t, "23:30", ClockFromMinutes(-30).String())
	assert.Equal(t, "01:15", ClockFromMinutes(25*60+15).String())
}
