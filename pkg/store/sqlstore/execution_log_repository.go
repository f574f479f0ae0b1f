package sqlstore

import (
	"context"
	"fmt"
	"time"

	"conductor/pkg/store/sqlstore/model"
)

// ExecutionLogRepository handles append-only execution log entries
type ExecutionLogRepository struct {
	ds *Datastore
}

// NewExecutionLogRepository creates a new execution log repository
func NewExecutionLogRepository(ds *Datastore) *ExecutionLogRepository {
	return &ExecutionLogRepository{ds: ds}
}

// Append writes one entry
func (r *ExecutionLogRepository) Append(ctx context.Context, entry *model.ExecutionLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := r.ds.DB(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append execution log: %w", err)
	}
	return nil
}

// ListByActionID returns the entries for one work item, oldest first
func (r *ExecutionLogRepository) ListByActionID(ctx context.Context, actionID string) ([]model.ExecutionLog, error) {
	var entries []model.ExecutionLog
	err := r.ds.DB(ctx).
		Where("action_id = ?", actionID).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list execution log: %w", err)
	}
	return entries, nil
}

// ListByTimeRange returns entries in [since, until), oldest first
func (r *ExecutionLogRepository) ListByTimeRange(ctx context.Context, since, until time.Time) ([]model.ExecutionLog, error) {
	var entries []model.ExecutionLog
	err := r.ds.DB(ctx).
		Where("timestamp >= ? AND timestamp < ?", since, until).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list execution log by time range: %w", err)
	}
	return entries, nil
}
