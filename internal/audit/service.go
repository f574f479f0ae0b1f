// Package audit exposes read-only queries over the append-only trail
// (execution log entries and tick summaries) for dashboard consumption.
package audit

import (
	"context"
	"time"

	"conductor/pkg/store/sqlstore"
	"conductor/pkg/store/sqlstore/model"
)

// Service is the audit read interface
type Service struct {
	execLog *sqlstore.ExecutionLogRepository
	ticks   *sqlstore.TickSummaryRepository
}

// NewService creates the audit service
func NewService(execLog *sqlstore.ExecutionLogRepository, ticks *sqlstore.TickSummaryRepository) *Service {
	return &Service{execLog: execLog, ticks: ticks}
}

// EntriesForAction returns the execution log for one work item
func (s *Service) EntriesForAction(ctx context.Context, actionID string) ([]model.ExecutionLog, error) {
	return s.execLog.ListByActionID(ctx, actionID)
}

// EntriesInRange returns execution log entries in [since, until)
func (s *Service) EntriesInRange(ctx context.Context, since, until time.Time) ([]model.ExecutionLog, error) {
	return s.execLog.ListByTimeRange(ctx, since, until)
}

// LatestTicks returns the most recent n tick summaries, newest first
func (s *Service) LatestTicks(ctx context.Context, n int) ([]model.TickSummary, error) {
	return s.ticks.Latest(ctx, n)
}

// LatestTick returns the newest tick summary, or nil when the daemon has
// never completed a tick
func (s *Service) LatestTick(ctx context.Context) (*model.TickSummary, error) {
	return s.ticks.LatestOne(ctx)
}
