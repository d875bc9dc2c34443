package conflicts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medication-schedule/internal/domain/schedules"
	"medication-schedule/internal/ports/audit"
)

type recorder struct {
	entries  []audit.OverrideEntry
	err      error
	onRecord func()
}

func (r *recorder) RecordOverride(_ context.Context, e audit.OverrideEntry) error {
	if r.err != nil {
		return r.err
	}
	if r.onRecord != nil {
		r.onRecord()
	}
	r.entries = append(r.entries, e)
	return nil
}

func pendingResolution(t *testing.T) *Resolution {
	t.Helper()
	candidate := daily("", "aspirin", "08:05")
	existing := []schedules.Schedule{daily("w1", "warfarin", "08:00")}
	rep := mustDetect(t, Detector{}, candidate, existing, monday, oneDay())
	require.Len(t, rep.Conflicts, 1)

	c := rep.Conflicts[0]
	return &Resolution{
		ID:        "r1",
		PatientID: "p1",
		Candidate: candidate,
		Findings: []Finding{{
			Conflict:    c,
			Suggestions: Suggester{}.Suggest(candidate, existing, c, monday, oneDay()),
		}},
		State:     StatePending,
		CreatedAt: monday,
	}
}

func TestResolutionAdjust(t *testing.T) {
	r := pendingResolution(t)

	_, err := r.Adjust(nil, "u1", at(3, 9, 0))
	require.ErrorIs(t, err, ErrMissingSelection)
	assert.True(t, r.Pending())

	_, err = r.Suggestion(0, 9)
	require.ErrorIs(t, err, ErrMissingSelection)
	_, err = r.Suggestion(3, 1)
	require.ErrorIs(t, err, ErrMissingSelection)

	sg, err := r.Suggestion(0, 1)
	require.NoError(t, err)
	adjusted, err := r.Adjust(sg, "u1", at(3, 9, 0))
	require.NoError(t, err)

	assert.Equal(t, StateAdjusted, r.State)
	assert.Equal(t, []schedules.ClockTime{schedules.MustClock("09:00")}, adjusted.Rule.(schedules.FixedTimeRule).Times)
	require.NotNil(t, r.Result)
	assert.Equal(t, adjusted, *r.Result)
	assert.Equal(t, "u1", r.DecidedBy)
	assert.Equal(t, at(3, 9, 0), *r.DecidedAt)

	_, err = r.Adjust(sg, "u1", at(3, 9, 0))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, r.Cancel("u1", at(3, 9, 0)), ErrInvalidTransition)
	_, err = r.Override(context.Background(), "u1", at(3, 9, 0), &recorder{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResolutionAdjustInvalidStaysPending(t *testing.T) {
	r := pendingResolution(t)

	_, err := r.Adjust(&Suggestion{Type: SuggestionIntervalAdjustment, Suggested: Value{IntervalHours: 6}}, "u1", at(3, 9, 0))
	require.ErrorIs(t, err, ErrSuggestionMismatch)

	bad := schedules.ClockTime{Hour: 26}
	from := schedules.MustClock("08:05")
	_, err = r.Adjust(&Suggestion{Type: SuggestionTimeShift, Original: Value{Time: &from}, Suggested: Value{Time: &bad}}, "u1", at(3, 9, 0))
	var verrs schedules.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	assert.True(t, r.Pending())
	assert.Nil(t, r.Result)
}

func TestResolutionOverride(t *testing.T) {
	r := pendingResolution(t)
	ctx := context.Background()

	_, err := r.Override(ctx, "u1", at(3, 9, 0), nil)
	require.ErrorIs(t, err, ErrAuditRequired)

	failing := &recorder{err: errors.New("disk full")}
	_, err = r.Override(ctx, "u1", at(3, 9, 0), failing)
	require.Error(t, err)
	assert.True(t, r.Pending())

	rec := &recorder{}
	accepted, err := r.Override(ctx, "u1", at(3, 9, 0), rec)
	require.NoError(t, err)
	assert.Equal(t, StateOverridden, r.State)
	assert.Equal(t, r.Candidate, accepted)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "r1", e.ResolutionID)
	assert.Equal(t, "aspirin", e.MedicationID)
	assert.Equal(t, "u1", e.ActorID)
	assert.Equal(t, []string{"too_close:warfarin@2025-03-03T08:05:00Z"}, e.Conflicts)
}

func TestResolutionCancel(t *testing.T) {
	r := pendingResolution(t)
	require.NoError(t, r.Cancel("u1", at(3, 9, 0)))
	assert.Equal(t, StateCancelled, r.State)
	assert.Nil(t, r.Result)
	assert.ErrorIs(t, r.Cancel("u1", at(3, 9, 0)), ErrInvalidTransition)
}
