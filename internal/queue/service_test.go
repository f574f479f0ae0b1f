package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"conductor/pkg/store/sqlstore"
	"conductor/pkg/store/sqlstore/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, maxRetries int, backoffBase, reclaimAfter time.Duration) (*Service, *sqlstore.Repository) {
	t.Helper()

	repo, err := sqlstore.NewRepository("", filepath.Join(t.TempDir(), "queue_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return NewService(repo.Action, maxRetries, backoffBase, reclaimAfter), repo
}

func TestEnqueueIdempotent(t *testing.T) {
	svc, repo := newTestService(t, 3, 30*time.Second, 10*time.Minute)
	ctx := context.Background()

	first, created, err := svc.Enqueue(ctx, "deploy-v1", "webhook", map[string]interface{}{"url": "http://example.test"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.ActionStatusPending, first.Status)

	// Re-submitting the same key returns the same item without a new row.
	second, created, err := svc.Enqueue(ctx, "deploy-v1", "webhook", map[string]interface{}{"url": "http://other.test"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ActionID, second.ActionID)

	count, err := repo.Action.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEnqueueValidation(t *testing.T) {
	svc, _ := newTestService(t, 3, 30*time.Second, 10*time.Minute)
	ctx := context.Background()

	_, _, err := svc.Enqueue(ctx, "", "webhook", nil)
	assert.Error(t, err)

	_, _, err = svc.Enqueue(ctx, "some-key", "", nil)
	assert.Error(t, err)
}

func TestRetryWalkEndsInDeadLetter(t *testing.T) {
	svc, repo := newTestService(t, 3, time.Millisecond, 10*time.Minute)
	ctx := context.Background()

	item, _, err := svc.Enqueue(ctx, "flaky-task", "webhook", nil)
	require.NoError(t, err)

	// Three failures stay on the retry path.
	for attempt := 1; attempt <= 3; attempt++ {
		claimed := claimOne(t, svc, ctx, item.ActionID)
		require.NotNil(t, claimed, "attempt %d should be claimable", attempt)

		status, err := svc.MarkRetry(ctx, item.ActionID, "handler failed")
		require.NoError(t, err)
		assert.Equal(t, model.ActionStatusFailedRetry, status, "attempt %d", attempt)
	}

	// The fourth failure exhausts the budget.
	claimed := claimOne(t, svc, ctx, item.ActionID)
	require.NotNil(t, claimed)

	status, err := svc.MarkRetry(ctx, item.ActionID, "handler failed")
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusDeadLetter, status)

	final, err := repo.Action.GetByActionID(ctx, item.ActionID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusDeadLetter, final.Status)
	assert.Equal(t, 4, final.Attempts)

	// Dead-lettered items never come back.
	assert.Nil(t, claimOne(t, svc, ctx, item.ActionID))
}

// claimOne repeatedly claims until the given item shows up or the backlog is
// empty. The millisecond backoff base in these tests makes retried items
// eligible again almost immediately.
func claimOne(t *testing.T, svc *Service, ctx context.Context, actionID string) *model.Action {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		batch, err := svc.ClaimBatch(ctx, 10)
		require.NoError(t, err)
		for i := range batch {
			if batch[i].ActionID == actionID {
				return &batch[i]
			}
		}
		if len(batch) == 0 {
			item, err := svc.Get(ctx, actionID)
			require.NoError(t, err)
			require.NotNil(t, item)
			if model.IsTerminalStatus(item.Status) {
				return nil
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func TestMarkSuccessThenRetryIsNoOp(t *testing.T) {
	svc, repo := newTestService(t, 3, 30*time.Second, 10*time.Minute)
	ctx := context.Background()

	item, _, err := svc.Enqueue(ctx, "one-shot", "webhook", nil)
	require.NoError(t, err)

	_, err = svc.ClaimBatch(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.MarkSuccess(ctx, item.ActionID))

	status, err := svc.MarkRetry(ctx, item.ActionID, "late failure report")
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusSuccess, status)

	final, err := repo.Action.GetByActionID(ctx, item.ActionID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusSuccess, final.Status)
	assert.Equal(t, 0, final.Attempts)
}

func TestReclaimStuck(t *testing.T) {
	svc, repo := newTestService(t, 3, time.Millisecond, 10*time.Minute)
	ctx := context.Background()

	item, _, err := svc.Enqueue(ctx, "orphaned-task", "webhook", nil)
	require.NoError(t, err)

	batch, err := svc.ClaimBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// Simulate a leader that died mid-tick by backdating the claim.
	stale := time.Now().Add(-time.Hour)
	err = repo.GetDatastore().DB(ctx).Model(&model.Action{}).
		Where("action_id = ?", item.ActionID).
		Update("claimed_at", stale).Error
	require.NoError(t, err)

	reclaimed, err := svc.ReclaimStuck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	after, err := repo.Action.GetByActionID(ctx, item.ActionID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionStatusFailedRetry, after.Status)
	assert.Equal(t, 1, after.Attempts)

	// A fresh claim is left alone.
	reclaimed, err = svc.ReclaimStuck(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
}
