package conflicts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medication-schedule/internal/adapters/interactions/static"
	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/ports/interactions"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(day, h, m int) time.Time {
	return time.Date(2025, 3, day, h, m, 0, 0, time.UTC)
}

func daily(id, med string, times ...string) schedules.Schedule {
	clocks := make([]schedules.ClockTime, 0, len(times))
	for _, t := range times {
		clocks = append(clocks, schedules.MustClock(t))
	}
	return schedules.Schedule{
		ID:           id,
		MedicationID: med,
		PatientID:    "p1",
		StartDate:    at(1, 0, 0),
		Rule:         schedules.FixedTimeRule{Times: clocks, Dose: schedules.Dose{Amount: 1, Unit: "tab"}},
	}
}

func oneDay() Options {
	o := DefaultOptions()
	o.WindowDays = 1
	return o
}

func mustDetect(t *testing.T, d Detector, candidate schedules.Schedule, existing []schedules.Schedule, from time.Time, opts Options) Report {
	t.Helper()
	rep, err := d.Detect(context.Background(), candidate, existing, from, opts)
	require.NoError(t, err)
	return rep
}

func TestDetectOverlap(t *testing.T) {
	rep := mustDetect(t, Detector{},
		daily("", "aspirin", "09:00"),
		[]schedules.Schedule{daily("w1", "warfarin", "09:00")},
		monday, oneDay())

	require.Len(t, rep.Conflicts, 1)
	c := rep.Conflicts[0]
	assert.Equal(t, TypeOverlap, c.Type)
	assert.Equal(t, SeverityHigh, c.Severity)
	assert.Equal(t, 0, c.GapMinutes)
	assert.Equal(t, "aspirin", c.SubjectMedicationID)
	assert.Equal(t, "warfarin", c.ConflictingMedicationID)
	assert.Equal(t, "w1", c.ConflictingScheduleID)
	assert.Equal(t, at(3, 9, 0), *c.ConflictingTime)
	assert.False(t, rep.Degraded())
}

func TestDetectTooCloseSeverity(t *testing.T) {
	tests := []struct {
		candidate string
		gap       int
		severity  Severity
	}{
		{candidate: "09:30", gap: 30, severity: SeverityMedium},
		{candidate: "08:50", gap: 10, severity: SeverityHigh},
		{candidate: "09:59", gap: 59, severity: SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			rep := mustDetect(t, Detector{},
				daily("", "aspirin", tt.candidate),
				[]schedules.Schedule{daily("w1", "warfarin", "09:00")},
				monday, oneDay())

			require.Len(t, rep.Conflicts, 1)
			assert.Equal(t, TypeTooClose, rep.Conflicts[0].Type)
			assert.Equal(t, tt.severity, rep.Conflicts[0].Severity)
			assert.Equal(t, tt.gap, rep.Conflicts[0].GapMinutes)
		})
	}
}

func TestDetectExactMinGapIsClear(t *testing.T) {
	rep := mustDetect(t, Detector{},
		daily("", "aspirin", "10:00"),
		[]schedules.Schedule{daily("w1", "warfarin", "09:00")},
		monday, DefaultOptions())
	assert.Empty(t, rep.Conflicts)
	assert.NotNil(t, rep.Conflicts)
}

func TestDetectAcrossWindowEdge(t *testing.T) {
	rep := mustDetect(t, Detector{},
		daily("", "aspirin", "00:10"),
		[]schedules.Schedule{daily("w1", "warfarin", "23:30")},
		monday, oneDay())

	require.Len(t, rep.Conflicts, 1)
	assert.Equal(t, 40, rep.Conflicts[0].GapMinutes)
	assert.Equal(t, at(2, 23, 30), *rep.Conflicts[0].ExistingTime)
	assert.Equal(t, "40-minute gap with warfarin (minimum 60-minute)", rep.Conflicts[0].Description)
}

func TestDetectSkipsSameMedication(t *testing.T) {
	prev := daily("w1", "warfarin", "09:00")
	rep := mustDetect(t, Detector{},
		daily("", "warfarin", "09:00"),
		[]schedules.Schedule{prev},
		monday, oneDay())
	assert.Empty(t, rep.Conflicts)
}

func TestDetectInteractionFirstPerMedication(t *testing.T) {
	oracle := static.New([]static.Pair{{A: "Warfarin", B: "aspirin", Severity: "major"}})
	existing := []schedules.Schedule{
		daily("w1", "warfarin", "20:00"),
		daily("i1", "ibuprofen", "09:30"),
		daily("w2", "warfarin", "08:00"),
	}

	rep := mustDetect(t, Detector{Oracle: oracle},
		daily("", "aspirin", "08:00", "09:00", "20:00"), existing, monday, oneDay())

	got := make([]string, 0, len(rep.Conflicts))
	for _, c := range rep.Conflicts {
		got = append(got, fmt.Sprintf("%s/%s", c.Type, c.ConflictingMedicationID))
	}
	assert.Equal(t, []string{
		"interaction/warfarin",
		"overlap/warfarin",
		"overlap/warfarin",
		"too_close/ibuprofen",
	}, got)

	inter := rep.Conflicts[0]
	assert.Equal(t, SeverityHigh, inter.Severity)
	assert.Equal(t, "major", inter.OracleSeverity)
	assert.Equal(t, "w1", inter.ConflictingScheduleID)
	assert.Nil(t, inter.ConflictingTime)
	assert.Equal(t, at(3, 8, 0), *rep.Conflicts[1].ConflictingTime)
	assert.Equal(t, at(3, 20, 0), *rep.Conflicts[2].ConflictingTime)
}

func TestDetectOracleFailureDegrades(t *testing.T) {
	failing := interactions.OracleFunc(func(context.Context, string, string) (interactions.Result, error) {
		return interactions.Result{}, errors.New("connection refused")
	})
	panicking := interactions.OracleFunc(func(context.Context, string, string) (interactions.Result, error) {
		panic("boom")
	})

	for name, oracle := range map[string]interactions.Oracle{"error": failing, "panic": panicking} {
		t.Run(name, func(t *testing.T) {
			rep := mustDetect(t, Detector{Oracle: oracle},
				daily("", "aspirin", "09:00"),
				[]schedules.Schedule{daily("w1", "warfarin", "09:00")},
				monday, oneDay())

			require.Len(t, rep.Conflicts, 1)
			assert.Equal(t, TypeOverlap, rep.Conflicts[0].Type)
			require.Len(t, rep.Warnings, 1)
			assert.Equal(t, WarningOracleUnavailable, rep.Warnings[0].Code)
			assert.Equal(t, "warfarin", rep.Warnings[0].MedicationID)
			assert.True(t, rep.Degraded())
		})
	}
}

func TestDetectOracleTimeout(t *testing.T) {
	slow := interactions.OracleFunc(func(ctx context.Context, _, _ string) (interactions.Result, error) {
		<-ctx.Done()
		return interactions.Result{}, ctx.Err()
	})
	rep := mustDetect(t, Detector{Oracle: slow, OracleTimeout: 10 * time.Millisecond},
		daily("", "aspirin", "14:00"),
		[]schedules.Schedule{daily("w1", "warfarin", "09:00")},
		monday, oneDay())

	assert.Empty(t, rep.Conflicts)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0].Message, interactions.ErrOracleUnavailable.Error())
}

func TestDetectParallelMatchesSequential(t *testing.T) {
	var existing []schedules.Schedule
	for i := range 12 {
		existing = append(existing, daily(
			fmt.Sprintf("s%d", i),
			fmt.Sprintf("med%02d", i),
			fmt.Sprintf("%02d:%02d", 6+i, (i*7)%60),
			fmt.Sprintf("%02d:15", (18+i)%24),
		))
	}
	pairs := []static.Pair{{A: "candidate", B: "med03"}, {A: "candidate", B: "med07", Severity: "minor"}}
	candidate := daily("", "candidate", "08:00", "12:30", "21:00")

	seq := mustDetect(t, Detector{Oracle: static.New(pairs), Workers: 1}, candidate, existing, monday, DefaultOptions())
	par := mustDetect(t, Detector{Oracle: static.New(pairs), Workers: 8}, candidate, existing, monday, DefaultOptions())

	require.NotEmpty(t, seq.Conflicts)
	assert.Equal(t, seq, par)
}

func TestDetectDoesNotMutateInputs(t *testing.T) {
	candidate := daily("", "aspirin", "09:00")
	existing := []schedules.Schedule{daily("w1", "warfarin", "09:00")}
	before := fmt.Sprintf("%+v %+v", candidate, existing)

	mustDetect(t, Detector{}, candidate, existing, monday, DefaultOptions())
	assert.Equal(t, before, fmt.Sprintf("%+v %+v", candidate, existing))
}

func TestDetectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detector{}.Detect(ctx,
		daily("", "aspirin", "09:00"),
		[]schedules.Schedule{daily("w1", "warfarin", "09:00")},
		monday, oneDay())
	require.ErrorIs(t, err, context.Canceled)
}
