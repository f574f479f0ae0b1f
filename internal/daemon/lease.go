package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"conductor/pkg/logger"
	"conductor/pkg/store/sqlstore"

	"github.com/google/uuid"
)

// LeaseManager gates leadership on the store-backed lease. All store I/O
// errors are treated as "did not acquire" / "lost leadership"; never assume
// success on ambiguous failure.
type LeaseManager struct {
	repo  *sqlstore.LeaseRepository
	owner string
	ttl   time.Duration
}

// NewLeaseManager creates a lease manager for the given process identity
func NewLeaseManager(repo *sqlstore.LeaseRepository, owner string, ttl time.Duration) *LeaseManager {
	return &LeaseManager{repo: repo, owner: owner, ttl: ttl}
}

// Owner returns the process identity the manager acquires under
func (m *LeaseManager) Owner() string {
	return m.owner
}

// Acquire attempts to take the lease; fails closed on store errors
func (m *LeaseManager) Acquire(ctx context.Context) bool {
	ok, err := m.repo.Acquire(ctx, m.owner, m.ttl, time.Now())
	if err != nil {
		logger.Warnf("lease acquire failed, treating as not acquired: %v", err)
		return false
	}
	return ok
}

// Renew extends the lease; fails closed on store errors. A false return
// means leadership is lost and the caller must stop processing immediately.
func (m *LeaseManager) Renew(ctx context.Context) bool {
	ok, err := m.repo.Renew(ctx, m.owner, m.ttl, time.Now())
	if err != nil {
		logger.Warnf("lease renew failed, treating as lost leadership: %v", err)
		return false
	}
	return ok
}

// Release drops the lease on graceful shutdown. Best effort: expiry
// guarantees eventual reclaim even if this never runs.
func (m *LeaseManager) Release(ctx context.Context) {
	if err := m.repo.Release(ctx, m.owner); err != nil {
		logger.Warnf("lease release failed (harmless, lease will expire): %v", err)
	}
}

// OwnerIdentity builds a process+host identity string for lease ownership
func OwnerIdentity() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
}
