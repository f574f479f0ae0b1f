package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"conductor/pkg/store/sqlstore/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAction(key, actionType string, notBefore time.Time) *model.Action {
	now := time.Now()
	return &model.Action{
		ActionID:       "act-" + key,
		IdempotencyKey: key,
		ActionType:     actionType,
		Status:         model.ActionStatusPending,
		NotBefore:      notBefore,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func fixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

func TestActionCreateDuplicateKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Action.Create(ctx, newAction("k1", "webhook", time.Now())))

	err := repo.Action.Create(ctx, newAction("k1", "webhook", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	count, err := repo.Action.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClaimBatchLimitAndEligibility(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	// Three eligible items and one scheduled in the future
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Action.Create(ctx, newAction(fmt.Sprintf("k%d", i), "webhook", now.Add(-time.Minute))))
	}
	future := newAction("k-future", "webhook", now.Add(time.Hour))
	require.NoError(t, repo.Action.Create(ctx, future))

	claimed, err := repo.Action.ClaimBatch(ctx, 2, now)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
	for _, c := range claimed {
		assert.Equal(t, model.ActionStatusRunning, c.Status)
		assert.NotNil(t, c.ClaimedAt)
		assert.NotEqual(t, "k-future", c.IdempotencyKey)
	}

	// Second claim picks up the remaining eligible item only
	claimed, err = repo.Action.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.NotEqual(t, "k-future", claimed[0].IdempotencyKey)

	// Nothing left under the horizon
	claimed, err = repo.Action.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestClaimBatchOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	late := newAction("late", "webhook", now.Add(-time.Minute))
	early := newAction("early", "webhook", now.Add(-time.Hour))
	require.NoError(t, repo.Action.Create(ctx, late))
	require.NoError(t, repo.Action.Create(ctx, early))

	claimed, err := repo.Action.ClaimBatch(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "early", claimed[0].IdempotencyKey, "oldest not_before claims first")
}

func TestMarkRetryDeadLettersOnFourthFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	maxRetries := 3

	require.NoError(t, repo.Action.Create(ctx, newAction("k1", "webhook", now.Add(-time.Minute))))

	for failure := 1; failure <= 4; failure++ {
		claimed, err := repo.Action.ClaimBatch(ctx, 1, time.Now().Add(time.Second))
		require.NoError(t, err)
		require.Len(t, claimed, 1, "failure %d should be claimable", failure)

		status, err := repo.Action.MarkRetry(ctx, claimed[0].ActionID, "boom", maxRetries, fixedDelay(0), time.Now())
		require.NoError(t, err)

		action, err := repo.Action.GetByActionID(ctx, claimed[0].ActionID)
		require.NoError(t, err)
		assert.Equal(t, failure, action.Attempts, "attempts track failures")

		if failure <= maxRetries {
			assert.Equal(t, model.ActionStatusFailedRetry, status, "failure %d retries", failure)
		} else {
			assert.Equal(t, model.ActionStatusDeadLetter, status, "failure %d dead-letters", failure)
		}
	}
}

func TestMarkRetrySetsBackoffNotBefore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Action.Create(ctx, newAction("k1", "webhook", now.Add(-time.Minute))))
	claimed, err := repo.Action.ClaimBatch(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	markAt := time.Now()
	_, err = repo.Action.MarkRetry(ctx, claimed[0].ActionID, "boom", 3, fixedDelay(time.Hour), markAt)
	require.NoError(t, err)

	action, err := repo.Action.GetByActionID(ctx, claimed[0].ActionID)
	require.NoError(t, err)
	assert.WithinDuration(t, markAt.Add(time.Hour), action.NotBefore, 2*time.Second)
}

func TestTerminalTransitionsAreIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Action.Create(ctx, newAction("k1", "webhook", now.Add(-time.Minute))))
	claimed, err := repo.Action.ClaimBatch(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	id := claimed[0].ActionID

	require.NoError(t, repo.Action.MarkSuccess(ctx, id, time.Now()))

	// Terminal states are never revisited
	require.NoError(t, repo.Action.MarkSuccess(ctx, id, time.Now()))
	require.NoError(t, repo.Action.MarkFailed(ctx, id, "late failure", time.Now()))
	status, err := repo.Action.MarkRetry(ctx, id, "late retry", 3, fixedDelay(0), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusSuccess, status)

	action, err := repo.Action.GetByActionID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusSuccess, action.Status)
	assert.Equal(t, 0, action.Attempts)
}

func TestListStuckRunning(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Action.Create(ctx, newAction("fresh", "webhook", now.Add(-time.Minute))))
	require.NoError(t, repo.Action.Create(ctx, newAction("stale", "webhook", now.Add(-2*time.Hour))))

	// Claim "stale" an hour ago and "fresh" just now
	claimed, err := repo.Action.ClaimBatch(ctx, 1, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	claimed2, err := repo.Action.ClaimBatch(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, claimed2, 1)

	stuck, err := repo.Action.ListStuckRunning(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, claimed[0].ActionID, stuck[0].ActionID)
}
