package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conductor/pkg/store/sqlstore/model"

	"gorm.io/gorm"
)

// LeaseRepository handles the single exclusive leadership lease.
// Every mutation is one atomic statement; the classic split-leader race is
// excluded by the fixed primary key plus guarded updates.
type LeaseRepository struct {
	ds *Datastore
}

// NewLeaseRepository creates a new lease repository
func NewLeaseRepository(ds *Datastore) *LeaseRepository {
	return &LeaseRepository{ds: ds}
}

// Acquire attempts to take the lease for owner. It succeeds only if no lease
// row exists or the existing one has expired. Returns false on any store
// error (fail closed: never assume success on ambiguous failure).
func (r *LeaseRepository) Acquire(ctx context.Context, owner string, ttl time.Duration, now time.Time) (bool, error) {
	// Steal an expired lease in place
	result := r.ds.DB(ctx).Model(&model.Lease{}).
		Where("id = ? AND expires_at <= ?", model.LeaseID, now).
		Updates(map[string]interface{}{
			"owner":       owner,
			"acquired_at": now,
			"renewed_at":  now,
			"expires_at":  now.Add(ttl),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// No expired row to steal: either no row exists yet, or the current
	// lease is live. Insertion with the fixed key resolves the race:
	// exactly one of any concurrent first-boot acquirers wins.
	lease := &model.Lease{
		ID:         model.LeaseID,
		Owner:      owner,
		AcquiredAt: now,
		RenewedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	err := r.ds.DB(ctx).Create(lease).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	return true, nil
}

// Renew extends the lease if and only if owner still holds it. Zero rows
// affected means leadership was lost.
func (r *LeaseRepository) Renew(ctx context.Context, owner string, ttl time.Duration, now time.Time) (bool, error) {
	result := r.ds.DB(ctx).Model(&model.Lease{}).
		Where("id = ? AND owner = ?", model.LeaseID, owner).
		Updates(map[string]interface{}{
			"renewed_at": now,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to renew lease: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Release drops the lease if owner still holds it. Best-effort cleanup on
// graceful shutdown; expiry guarantees eventual reclaim without it.
func (r *LeaseRepository) Release(ctx context.Context, owner string) error {
	return r.ds.DB(ctx).
		Where("id = ? AND owner = ?", model.LeaseID, owner).
		Delete(&model.Lease{}).Error
}

// Get returns the current lease row, or nil if none exists
func (r *LeaseRepository) Get(ctx context.Context) (*model.Lease, error) {
	var lease model.Lease
	err := r.ds.DB(ctx).Where("id = ?", model.LeaseID).First(&lease).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lease: %w", err)
	}
	return &lease, nil
}
