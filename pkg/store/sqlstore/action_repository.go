package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conductor/pkg/store/sqlstore/model"

	"gorm.io/gorm"
)

// ActionRepository handles work item persistence
type ActionRepository struct {
	ds *Datastore
}

// NewActionRepository creates a new action repository
func NewActionRepository(ds *Datastore) *ActionRepository {
	return &ActionRepository{ds: ds}
}

// Create inserts a new work item. The unique index on idempotency_key makes
// duplicate submission surface as gorm.ErrDuplicatedKey, which callers use
// for idempotent enqueue.
func (r *ActionRepository) Create(ctx context.Context, action *model.Action) error {
	return r.ds.DB(ctx).Create(action).Error
}

// GetByActionID retrieves a work item by its external id
func (r *ActionRepository) GetByActionID(ctx context.Context, actionID string) (*model.Action, error) {
	var action model.Action
	err := r.ds.DB(ctx).Where("action_id = ?", actionID).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return &action, nil
}

// GetByIdempotencyKey retrieves a work item by its caller-supplied key
func (r *ActionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Action, error) {
	var action model.Action
	err := r.ds.DB(ctx).Where("idempotency_key = ?", key).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get action by idempotency key: %w", err)
	}
	return &action, nil
}

// ClaimBatch atomically transitions up to limit eligible items into RUNNING
// and returns them, oldest not_before first. Each claim is a CAS update on
// (id, status), so a second instance that somehow also believes it is leader
// cannot claim the same item; rows lost to a racer are skipped.
func (r *ActionRepository) ClaimBatch(ctx context.Context, limit int, now time.Time) ([]model.Action, error) {
	var candidates []model.Action
	err := r.ds.DB(ctx).
		Where("status IN ? AND not_before <= ?", model.ClaimableStatuses, now).
		Order("not_before ASC, id ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list claimable actions: %w", err)
	}

	claimed := make([]model.Action, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		result := r.ds.DB(ctx).Model(&model.Action{}).
			Where("id = ? AND status = ?", c.ID, c.Status).
			Updates(map[string]interface{}{
				"status":     model.ActionStatusRunning,
				"claimed_at": now,
				"updated_at": now,
			})
		if result.Error != nil {
			return claimed, fmt.Errorf("failed to claim action %s: %w", c.ActionID, result.Error)
		}
		if result.RowsAffected == 0 {
			// Lost to a concurrent claimer
			continue
		}
		c.Status = model.ActionStatusRunning
		claimedAt := now
		c.ClaimedAt = &claimedAt
		c.UpdatedAt = now
		claimed = append(claimed, c)
	}
	return claimed, nil
}

// MarkSuccess transitions a RUNNING item to SUCCESS. A no-op if the item is
// already terminal.
func (r *ActionRepository) MarkSuccess(ctx context.Context, actionID string, now time.Time) error {
	return r.markTerminal(ctx, actionID, model.ActionStatusSuccess, "", now)
}

// MarkFailed transitions a RUNNING item to DEAD_LETTER (terminal failure
// without retry eligibility). A no-op if the item is already terminal.
func (r *ActionRepository) MarkFailed(ctx context.Context, actionID, errMsg string, now time.Time) error {
	return r.markTerminal(ctx, actionID, model.ActionStatusDeadLetter, errMsg, now)
}

func (r *ActionRepository) markTerminal(ctx context.Context, actionID, status, errMsg string, now time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if errMsg != "" {
		updates["last_error"] = errMsg
	}
	result := r.ds.DB(ctx).Model(&model.Action{}).
		Where("action_id = ? AND status NOT IN ?", actionID,
			[]string{model.ActionStatusSuccess, model.ActionStatusDeadLetter}).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark action %s %s: %w", actionID, status, result.Error)
	}
	// Zero rows means the item is already terminal (idempotent) or unknown;
	// an unknown id is a caller bug surfaced elsewhere, not here.
	return nil
}

// MarkRetry increments attempts and either schedules the item for re-claim
// after delayFor(newAttempts) or, when the retry budget is exhausted
// (attempts >= maxRetries before the increment), dead-letters it regardless
// of what the caller asked for. The cap lives here, not in callers. The
// transition is a CAS on (id, status, attempts) so a concurrent change
// invalidates the write instead of corrupting the count.
// The returned status is the one the item ended up in.
func (r *ActionRepository) MarkRetry(ctx context.Context, actionID, errMsg string, maxRetries int, delayFor func(attempts int) time.Duration, now time.Time) (string, error) {
	action, err := r.GetByActionID(ctx, actionID)
	if err != nil {
		return "", err
	}
	if action == nil {
		return "", fmt.Errorf("action not found: %s", actionID)
	}
	if model.IsTerminalStatus(action.Status) {
		return action.Status, nil
	}

	toStatus := model.ActionStatusFailedRetry
	updates := map[string]interface{}{
		"attempts":   action.Attempts + 1,
		"last_error": errMsg,
		"updated_at": now,
	}
	if action.Attempts >= maxRetries {
		toStatus = model.ActionStatusDeadLetter
	} else {
		updates["not_before"] = now.Add(delayFor(action.Attempts + 1))
	}
	updates["status"] = toStatus

	result := r.ds.DB(ctx).Model(&model.Action{}).
		Where("action_id = ? AND status = ? AND attempts = ?", actionID, action.Status, action.Attempts).
		Updates(updates)
	if result.Error != nil {
		return "", fmt.Errorf("failed to mark action %s for retry: %w", actionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return "", fmt.Errorf("action %s changed concurrently during retry transition", actionID)
	}
	return toStatus, nil
}

// ListStuckRunning returns items that have sat in RUNNING since before the
// cutoff, i.e. claims orphaned by a tick timeout or a crashed leader.
func (r *ActionRepository) ListStuckRunning(ctx context.Context, cutoff time.Time) ([]model.Action, error) {
	var actions []model.Action
	err := r.ds.DB(ctx).
		Where("status = ? AND claimed_at < ?", model.ActionStatusRunning, cutoff).
		Order("claimed_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck actions: %w", err)
	}
	return actions, nil
}

// CountByStatus counts work items by status
func (r *ActionRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&model.Action{}).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return count, nil
}

// Count returns the total number of work item rows
func (r *ActionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&model.Action{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return count, nil
}
