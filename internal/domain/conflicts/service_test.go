package conflicts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medication-schedule/internal/adapters/interactions/static"
	"medication-schedule/internal/domain/schedules"
)

type testRepo struct {
	mu   sync.Mutex
	byID map[string]Resolution
}

func (r *testRepo) Create(_ context.Context, res Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[res.ID] = res
	return nil
}

func (r *testRepo) Update(_ context.Context, res Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[res.ID]
	if !ok {
		return ErrNotFound
	}
	if !cur.Pending() {
		return ErrInvalidTransition
	}
	r.byID[res.ID] = res
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byID[id]
	if !ok {
		return Resolution{}, ErrNotFound
	}
	return res, nil
}

func (r *testRepo) ListByPatient(_ context.Context, patientID string) ([]Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Resolution
	for _, res := range r.byID {
		if res.PatientID == patientID {
			out = append(out, res)
		}
	}
	return out, nil
}

type testStore struct {
	tz        string
	active    []schedules.Schedule
	created   []schedules.Schedule
	withdrawn []string
}

func (s *testStore) Withdraw(_ context.Context, id string) (schedules.Schedule, error) {
	s.withdrawn = append(s.withdrawn, id)
	return schedules.Schedule{ID: id, Status: schedules.StatusRetired}, nil
}

func (s *testStore) Normalize(_ context.Context, draft schedules.Schedule) (schedules.Schedule, error) {
	if draft.Timezone == "" {
		draft.Timezone = s.tz
	}
	return draft, nil
}

func (s *testStore) ListActive(context.Context, string) ([]schedules.Schedule, error) {
	return s.active, nil
}

func (s *testStore) Calculator(context.Context, string) (schedules.Calculator, error) {
	return schedules.Calculator{}, nil
}

func (s *testStore) Create(ctx context.Context, draft schedules.Schedule) (schedules.Schedule, error) {
	draft, _ = s.Normalize(ctx, draft)
	draft.ID = "new"
	draft.Version = 1
	draft.Status = schedules.StatusActive
	s.created = append(s.created, draft)
	return draft, nil
}

type testObserver struct {
	calls int
	last  Report
}

func (o *testObserver) CheckCompleted(_ time.Duration, rep Report) {
	o.calls++
	o.last = rep
}

func newTestService(rec *recorder) (*Service, *testRepo, *testStore, *testObserver) {
	repo := &testRepo{byID: map[string]Resolution{}}
	store := &testStore{active: []schedules.Schedule{daily("w1", "warfarin", "08:00")}}
	obs := &testObserver{}
	d := Deps{
		Repo:      repo,
		Schedules: store,
		Oracle:    static.New([]static.Pair{{A: "warfarin", B: "aspirin", Severity: "major"}}),
		Observer:  obs,
	}
	if rec != nil {
		d.Audit = rec
	}
	svc := NewService(d, Config{Options: oneDay()})
	svc.now = func() time.Time { return monday }
	return svc, repo, store, obs
}

func TestServiceCheckClean(t *testing.T) {
	svc, repo, _, obs := newTestService(nil)

	res, err := svc.Check(context.Background(), CheckInput{
		PatientID: "p1",
		Candidate: daily("", "ibuprofen", "14:00"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.ResolutionID)
	assert.Empty(t, res.Findings)
	assert.Empty(t, repo.byID)
	assert.Equal(t, 1, obs.calls)
}

func TestServiceCheckThenAdjust(t *testing.T) {
	svc, repo, store, obs := newTestService(nil)
	ctx := context.Background()

	res, err := svc.Check(ctx, CheckInput{
		PatientID: "p1",
		Candidate: daily("", "aspirin", "08:05"),
		From:      monday,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ResolutionID)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, TypeInteraction, res.Findings[0].Type)
	assert.Empty(t, res.Findings[0].Suggestions)
	assert.Equal(t, TypeTooClose, res.Findings[1].Type)
	require.NotEmpty(t, res.Findings[1].Suggestions)
	assert.Len(t, obs.last.Conflicts, 2)

	stored := repo.byID[res.ResolutionID]
	assert.Equal(t, StatePending, stored.State)
	assert.Equal(t, "p1", stored.Candidate.PatientID)

	_, err = svc.Adjust(ctx, res.ResolutionID, nil, "u1")
	require.ErrorIs(t, err, ErrMissingSelection)
	_, err = svc.Adjust(ctx, res.ResolutionID, &Selection{Finding: 0, Rank: 1}, "u1")
	require.ErrorIs(t, err, ErrMissingSelection)

	decided, err := svc.Adjust(ctx, res.ResolutionID, &Selection{Finding: 1, Rank: 1}, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateAdjusted, decided.State)
	require.NotNil(t, decided.Result)
	assert.Equal(t, "new", decided.Result.ID)

	require.Len(t, store.created, 1)
	assert.Equal(t, []schedules.ClockTime{schedules.MustClock("09:00")}, store.created[0].Rule.(schedules.FixedTimeRule).Times)
	assert.Equal(t, StateAdjusted, repo.byID[res.ResolutionID].State)

	_, err = svc.Cancel(ctx, res.ResolutionID, "u1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestServiceOverride(t *testing.T) {
	ctx := context.Background()
	in := CheckInput{PatientID: "p1", Candidate: daily("", "aspirin", "08:00")}

	svc, _, store, _ := newTestService(nil)
	res, err := svc.Check(ctx, in)
	require.NoError(t, err)
	_, err = svc.Override(ctx, res.ResolutionID, "u1")
	require.ErrorIs(t, err, ErrAuditRequired)
	assert.Empty(t, store.created)

	rec := &recorder{}
	svc, repo, store, _ := newTestService(rec)
	res, err = svc.Check(ctx, in)
	require.NoError(t, err)
	decided, err := svc.Override(ctx, res.ResolutionID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateOverridden, decided.State)
	require.Len(t, store.created, 1)
	assert.Len(t, rec.entries, 1)
	assert.Equal(t, StateOverridden, repo.byID[res.ResolutionID].State)
}

func TestServiceOverrideWithdrawsSchedule(t *testing.T) {
	ctx := context.Background()
	in := CheckInput{PatientID: "p1", Candidate: daily("", "aspirin", "08:00")}

	t.Run("audit fails", func(t *testing.T) {
		svc, repo, store, _ := newTestService(&recorder{err: errors.New("disk full")})
		res, err := svc.Check(ctx, in)
		require.NoError(t, err)

		_, err = svc.Override(ctx, res.ResolutionID, "u1")
		require.Error(t, err)
		assert.Equal(t, []string{"new"}, store.withdrawn)
		assert.Equal(t, StatePending, repo.byID[res.ResolutionID].State)
	})

	t.Run("decided meanwhile", func(t *testing.T) {
		rec := &recorder{}
		svc, repo, store, _ := newTestService(rec)
		res, err := svc.Check(ctx, in)
		require.NoError(t, err)

		// Otra decisión entra entre la lectura y el Update.
		rec.onRecord = func() {
			_, err := svc.Cancel(ctx, res.ResolutionID, "u2")
			require.NoError(t, err)
		}
		_, err = svc.Override(ctx, res.ResolutionID, "u1")
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, []string{"new"}, store.withdrawn)
		assert.Equal(t, StateCancelled, repo.byID[res.ResolutionID].State)
	})
}

func TestServiceCheckErrors(t *testing.T) {
	svc, _, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Check(ctx, CheckInput{Candidate: daily("", "aspirin", "08:00")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Check(ctx, CheckInput{PatientID: "p1", Candidate: schedules.Schedule{MedicationID: "aspirin"}})
	var verrs schedules.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Cancel(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceCheckUsesPatientTimezone(t *testing.T) {
	svc, _, store, _ := newTestService(nil)
	ctx := context.Background()

	metformin := daily("m1", "metformin", "08:00")
	metformin.Timezone = "America/Lima"
	store.tz = "America/Lima"
	store.active = []schedules.Schedule{metformin}

	res, err := svc.Check(ctx, CheckInput{
		PatientID: "p1",
		Candidate: daily("", "lisinopril", "08:00"),
		From:      monday,
	})
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, TypeOverlap, res.Findings[0].Type)
	assert.Equal(t, at(3, 13, 0), *res.Findings[0].ConflictingTime)

	decided, err := svc.Cancel(ctx, res.ResolutionID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "America/Lima", decided.Candidate.Timezone)
}
