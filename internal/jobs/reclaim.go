package jobs

import (
	"context"
	"time"

	"conductor/internal/queue"
	"conductor/pkg/logger"
)

// ReclaimJob periodically requeues work items stuck in RUNNING, covering
// claims orphaned by tick timeouts and crashed leaders. The stall is
// treated as a transient failure, so reclaimed items go back through the
// normal retry budget.
type ReclaimJob struct {
	queue    *queue.Service
	interval time.Duration
}

// NewReclaimJob creates the reclaim sweep
func NewReclaimJob(q *queue.Service, interval time.Duration) *ReclaimJob {
	return &ReclaimJob{queue: q, interval: interval}
}

// Name identifies the job in logs
func (j *ReclaimJob) Name() string {
	return "stuck-action-reclaim"
}

// Interval returns the sweep cadence
func (j *ReclaimJob) Interval() time.Duration {
	return j.interval
}

// Run performs one sweep
func (j *ReclaimJob) Run(ctx context.Context) error {
	n, err := j.queue.ReclaimStuck(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Infof("reclaim sweep requeued %d stalled actions", n)
	}
	return nil
}
