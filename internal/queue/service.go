// Package queue owns the work item lifecycle: idempotent enqueue, atomic
// claim-for-processing, and the terminal transitions (success, scheduled
// retry, dead-letter). The retry cap and backoff schedule are enforced here
// so no handler bug can create an infinite-retry item.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conductor/pkg/logger"
	"conductor/pkg/store/sqlstore"
	"conductor/pkg/store/sqlstore/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the Work Queue component
type Service struct {
	actionRepo   *sqlstore.ActionRepository
	maxRetries   int
	backoffBase  time.Duration
	reclaimAfter time.Duration
}

// NewService creates the work queue service
func NewService(actionRepo *sqlstore.ActionRepository, maxRetries int, backoffBase, reclaimAfter time.Duration) *Service {
	return &Service{
		actionRepo:   actionRepo,
		maxRetries:   maxRetries,
		backoffBase:  backoffBase,
		reclaimAfter: reclaimAfter,
	}
}

// Enqueue submits a work item. If the idempotency key already exists the
// existing item is returned unchanged (created=false): re-submitting the
// same logical task is a no-op even if an upstream collaborator retries.
func (s *Service) Enqueue(ctx context.Context, idempotencyKey, actionType string, payload map[string]interface{}) (*model.Action, bool, error) {
	if idempotencyKey == "" {
		return nil, false, errors.New("idempotency key required")
	}
	if actionType == "" {
		return nil, false, errors.New("action type required")
	}

	now := time.Now()
	action := &model.Action{
		ActionID:       uuid.New().String(),
		IdempotencyKey: idempotencyKey,
		ActionType:     actionType,
		Payload:        model.JSONMap(payload),
		Status:         model.ActionStatusPending,
		NotBefore:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.actionRepo.Create(ctx, action)
	if err == nil {
		logger.Infof("action enqueued, id: %s, type: %s, key: %s", action.ActionID, actionType, idempotencyKey)
		return action, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("failed to enqueue action: %w", err)
	}

	existing, err := s.actionRepo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("duplicate idempotency key %q but existing action not found", idempotencyKey)
	}
	return existing, false, nil
}

// ClaimBatch atomically claims up to limit eligible items into RUNNING
func (s *Service) ClaimBatch(ctx context.Context, limit int) ([]model.Action, error) {
	return s.actionRepo.ClaimBatch(ctx, limit, time.Now())
}

// MarkSuccess records a successful execution; no-op if already terminal
func (s *Service) MarkSuccess(ctx context.Context, actionID string) error {
	return s.actionRepo.MarkSuccess(ctx, actionID, time.Now())
}

// MarkFailed dead-letters an item without retry eligibility; no-op if
// already terminal
func (s *Service) MarkFailed(ctx context.Context, actionID, errMsg string) error {
	return s.actionRepo.MarkFailed(ctx, actionID, errMsg, time.Now())
}

// MarkRetry schedules an item for another attempt with exponential backoff,
// or dead-letters it when the retry budget is exhausted. Returns the status
// the item ended up in.
func (s *Service) MarkRetry(ctx context.Context, actionID, errMsg string) (string, error) {
	return s.actionRepo.MarkRetry(ctx, actionID, errMsg, s.maxRetries, s.delayFor, time.Now())
}

func (s *Service) delayFor(attempts int) time.Duration {
	return Backoff(s.backoffBase, attempts)
}

// Get returns a work item by external id, or nil when unknown
func (s *Service) Get(ctx context.Context, actionID string) (*model.Action, error) {
	return s.actionRepo.GetByActionID(ctx, actionID)
}

// ReclaimStuck routes items stuck in RUNNING since before the reclaim
// threshold back through the retry path, treating the stall as a transient
// failure. Covers claims orphaned by tick timeouts and crashed leaders.
func (s *Service) ReclaimStuck(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.reclaimAfter)
	stuck, err := s.actionRepo.ListStuckRunning(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range stuck {
		a := &stuck[i]
		status, err := s.MarkRetry(ctx, a.ActionID, fmt.Sprintf("reclaimed after stall, claimed_at: %v", a.ClaimedAt))
		if err != nil {
			logger.Errorf("failed to reclaim action %s: %v", a.ActionID, err)
			continue
		}
		logger.Warnf("reclaimed stalled action %s, new status: %s", a.ActionID, status)
		reclaimed++
	}
	return reclaimed, nil
}
