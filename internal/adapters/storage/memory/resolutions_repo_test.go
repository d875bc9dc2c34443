package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medication-schedule/internal/domain/conflicts"
)

func TestResolutionRepoUpdateOnlyFromPending(t *testing.T) {
	repo := NewResolutionRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, conflicts.Resolution{ID: "r1", PatientID: "p1", State: conflicts.StatePending}))

	require.NoError(t, repo.Update(ctx, conflicts.Resolution{ID: "r1", PatientID: "p1", State: conflicts.StateCancelled}))
	err := repo.Update(ctx, conflicts.Resolution{ID: "r1", PatientID: "p1", State: conflicts.StateOverridden})
	assert.ErrorIs(t, err, conflicts.ErrInvalidTransition)

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, conflicts.StateCancelled, got.State)

	assert.ErrorIs(t, repo.Update(ctx, conflicts.Resolution{ID: "nope"}), conflicts.ErrNotFound)
}
