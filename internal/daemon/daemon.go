// Package daemon implements the orchestrating control flow: acquire and
// renew the leadership lease, read the operator control flags, claim a
// bounded batch of work items, dispatch each to its handler, and persist an
// execution log entry plus a tick summary before sleeping.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"conductor/internal/queue"
	"conductor/internal/registry"
	"conductor/pkg/config"
	"conductor/pkg/logger"
	"conductor/pkg/store/sqlstore"
	"conductor/pkg/store/sqlstore/model"
)

// State of the daemon loop state machine
type State string

const (
	StateStarting   State = "STARTING"
	StateLeader     State = "LEADER_ACTIVE"
	StatePaused     State = "PAUSED"
	StateProcessing State = "PROCESSING"
	StateStopped    State = "STOPPED"
)

// ErrLostLeadership is returned when a lease renewal fails mid-run. The
// tick that observed it marks nothing: claimed items stay RUNNING for the
// reclaim sweep, and the process must not keep acting with stale authority.
var ErrLostLeadership = errors.New("lost leadership")

// Options tune a single daemon invocation
type Options struct {
	// RehearsalOnly forces REHEARSAL mode regardless of the stored
	// rehearsal_mode flag, for safe manual verification.
	RehearsalOnly bool
	// MaxTicks exits the loop after N ticks; 0 runs forever.
	MaxTicks int
	// MaxAcquireAttempts bounds lease polling for CLI invocations;
	// 0 polls forever (long-running service mode).
	MaxAcquireAttempts int
}

// Daemon is the single-leader orchestration loop
type Daemon struct {
	cfg      config.DaemonConfig
	opts     Options
	lease    *LeaseManager
	flags    *sqlstore.ControlFlagsRepository
	execLog  *sqlstore.ExecutionLogRepository
	ticks    *sqlstore.TickSummaryRepository
	queue    *queue.Service
	registry *registry.Registry

	mu    sync.Mutex
	state State
}

// New creates a daemon loop
func New(cfg config.DaemonConfig, opts Options, lease *LeaseManager, repo *sqlstore.Repository, q *queue.Service, reg *registry.Registry) *Daemon {
	return &Daemon{
		cfg:      cfg,
		opts:     opts,
		lease:    lease,
		flags:    repo.ControlFlags,
		execLog:  repo.ExecutionLog,
		ticks:    repo.TickSummary,
		queue:    q,
		registry: reg,
		state:    StateStarting,
	}
}

// State returns the current loop state
func (d *Daemon) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Daemon) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run executes the loop until killed, cancelled, leadership is lost, or the
// optional tick bound is reached.
func (d *Daemon) Run(ctx context.Context) error {
	d.setState(StateStarting)
	if err := d.pollForLease(ctx); err != nil {
		d.setState(StateStopped)
		return err
	}

	logger.Infof("leadership acquired, owner: %s", d.lease.Owner())
	d.setState(StateLeader)

	tickCount := 0
	for {
		if ctx.Err() != nil {
			d.stop(true)
			return nil
		}

		// Renew first: never process a tick with stale authority. On
		// failure nothing is marked; claimed items stay RUNNING for
		// the recovery sweep.
		if !d.lease.Renew(ctx) {
			logger.Error("lease renewal failed, stopping immediately")
			d.setState(StateStopped)
			return ErrLostLeadership
		}

		flags, err := d.flags.Get(ctx)
		if err != nil {
			// Store unreachable: end the tick early with a FAIL summary
			// rather than crashing, so the next tick can retry cleanly
			logger.Errorf("failed to read control flags: %v", err)
			d.appendTickSummary(ctx, &model.TickSummary{
				StartedAt:  time.Now(),
				FinishedAt: time.Now(),
				Status:     model.TickStatusFail,
				Notes:      fmt.Sprintf("control flags unreadable: %v", err),
			})
			if !d.sleep(ctx) {
				d.stop(true)
				return nil
			}
			continue
		}

		if flags.Killed {
			logger.Info("kill flag set, stopping gracefully")
			d.stop(true)
			return nil
		}

		if flags.Paused {
			d.setState(StatePaused)
			started := time.Now()
			d.appendTickSummary(ctx, &model.TickSummary{
				StartedAt:      started,
				FinishedAt:     time.Now(),
				Status:         model.TickStatusSuccess,
				AttemptedCount: 0,
				SucceededCount: 0,
				Notes:          "paused",
			})
		} else {
			d.setState(StateProcessing)
			summary := d.processTick(ctx, flags)
			d.appendTickSummary(ctx, summary)
			d.setState(StateLeader)
		}

		tickCount++
		if d.opts.MaxTicks > 0 && tickCount >= d.opts.MaxTicks {
			logger.Infof("max ticks reached (%d), stopping", d.opts.MaxTicks)
			d.stop(true)
			return nil
		}

		if !d.sleep(ctx) {
			d.stop(true)
			return nil
		}
	}
}

// pollForLease sits in STARTING until the lease is acquired
func (d *Daemon) pollForLease(ctx context.Context) error {
	attempts := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.lease.Acquire(ctx) {
			return nil
		}
		attempts++
		if d.opts.MaxAcquireAttempts > 0 && attempts >= d.opts.MaxAcquireAttempts {
			return fmt.Errorf("could not acquire leadership after %d attempts", attempts)
		}
		logger.Debugf("lease held elsewhere, polling (attempt %d)", attempts)
		if !d.sleep(ctx) {
			return ctx.Err()
		}
	}
}

// processTick claims a batch and dispatches each item independently: one
// item's failure never aborts the rest of the batch.
func (d *Daemon) processTick(ctx context.Context, flags *model.ControlFlags) *model.TickSummary {
	started := time.Now()
	summary := &model.TickSummary{StartedAt: started}

	tickCtx, cancel := context.WithTimeout(ctx, d.cfg.TickDeadline())
	defer cancel()

	batch, err := d.queue.ClaimBatch(tickCtx, d.cfg.MaxActionsPerTick)
	if err != nil {
		logger.Errorf("claim batch failed: %v", err)
		summary.FinishedAt = time.Now()
		summary.Status = model.TickStatusFail
		summary.Notes = fmt.Sprintf("claim failed: %v", err)
		return summary
	}

	mode := registry.ModeProduction
	if flags.RehearsalMode || d.opts.RehearsalOnly {
		mode = registry.ModeRehearsal
	}

	var notes []string
	for i := range batch {
		if tickCtx.Err() != nil {
			// Tick budget exhausted: remaining claimed items stay
			// RUNNING until the reclaim sweep requeues them
			left := len(batch) - i
			logger.Warnf("tick deadline exceeded, leaving %d claimed items for recovery", left)
			notes = append(notes, fmt.Sprintf("tick deadline exceeded, %d items left for recovery", left))
			break
		}

		item := &batch[i]
		summary.AttemptedCount++
		if d.processItem(ctx, tickCtx, item, mode) {
			summary.SucceededCount++
		}
	}

	summary.FinishedAt = time.Now()
	summary.Notes = strings.Join(notes, "; ")
	switch {
	case summary.SucceededCount == summary.AttemptedCount:
		summary.Status = model.TickStatusSuccess
	default:
		summary.Status = model.TickStatusPartial
	}
	return summary
}

// processItem dispatches one claimed item and records its transition plus an
// execution log entry. Returns true on success. Marks are written against
// the parent context so a tick deadline cannot strand the in-flight item.
func (d *Daemon) processItem(ctx, tickCtx context.Context, item *model.Action, mode registry.Mode) bool {
	outcome, err := d.dispatch(tickCtx, item, mode)

	if err == nil && outcome != nil && outcome.Success {
		if markErr := d.queue.MarkSuccess(ctx, item.ActionID); markErr != nil {
			logger.Errorf("failed to mark action %s success: %v", item.ActionID, markErr)
		}
		d.appendExecLog(ctx, item.ActionID, model.LogLevelInfo, outcome.Message, outcome)
		logger.Infof("action %s (%s) succeeded in %s mode", item.ActionID, item.ActionType, mode)
		return true
	}

	if err == nil {
		detail := "handler reported failure"
		if outcome != nil && outcome.ErrorDetail != "" {
			detail = outcome.ErrorDetail
		}
		err = errors.New(detail)
	}

	if registry.IsPermanent(err) {
		if markErr := d.queue.MarkFailed(ctx, item.ActionID, err.Error()); markErr != nil {
			logger.Errorf("failed to dead-letter action %s: %v", item.ActionID, markErr)
		}
		d.appendExecLog(ctx, item.ActionID, model.LogLevelError, "permanent failure: "+err.Error(), outcome)
		logger.Errorf("action %s (%s) dead-lettered: %v", item.ActionID, item.ActionType, err)
		return false
	}

	status, markErr := d.queue.MarkRetry(ctx, item.ActionID, err.Error())
	if markErr != nil {
		logger.Errorf("failed to mark action %s for retry: %v", item.ActionID, markErr)
	}
	d.appendExecLog(ctx, item.ActionID, model.LogLevelError, "transient failure: "+err.Error(), outcome)
	logger.Warnf("action %s (%s) failed, new status %s: %v", item.ActionID, item.ActionType, status, err)
	return false
}

// dispatch runs the handler under its own deadline and converts panics into
// transient errors so a handler bug cannot take down the loop.
func (d *Daemon) dispatch(tickCtx context.Context, item *model.Action, mode registry.Mode) (outcome *registry.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("handler panic for action %s: %v\n%s", item.ActionID, r, debug.Stack())
			outcome = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(tickCtx, d.cfg.HandlerDeadline())
	defer cancel()

	return d.registry.Dispatch(handlerCtx, item.ActionType, item.Payload, mode)
}

func (d *Daemon) appendExecLog(ctx context.Context, actionID, level, message string, outcome *registry.Outcome) {
	entry := &model.ExecutionLog{
		ActionID:  actionID,
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	if outcome != nil {
		entry.ArtifactRef = outcome.ArtifactRef
		entry.ArtifactDigest = outcome.ArtifactDigest
	}
	if err := d.execLog.Append(ctx, entry); err != nil {
		logger.Errorf("failed to append execution log for %s: %v", actionID, err)
	}
}

func (d *Daemon) appendTickSummary(ctx context.Context, summary *model.TickSummary) {
	if err := d.ticks.Append(ctx, summary); err != nil {
		logger.Errorf("failed to append tick summary: %v", err)
	}
}

// sleep waits one heartbeat; returns false if the context was cancelled
func (d *Daemon) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d.cfg.HeartbeatDuration()):
		return true
	}
}

// stop transitions to STOPPED, optionally releasing the lease
func (d *Daemon) stop(release bool) {
	if release {
		// Release against a fresh context: the loop context may already
		// be cancelled during shutdown
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.lease.Release(releaseCtx)
	}
	d.setState(StateStopped)
}
