package model

import "time"

// LeaseID is the fixed primary key of the single lease row.
const LeaseID = 1

// Lease model for the leases table. At most one non-expired row exists;
// a process may only act as leader while holding a row whose ExpiresAt is
// in the future. Expired rows are stolen in place, never deleted by expiry.
type Lease struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Owner      string    `gorm:"column:owner;type:varchar(255);not null" json:"owner"`
	AcquiredAt time.Time `gorm:"column:acquired_at;not null" json:"acquired_at"`
	RenewedAt  time.Time `gorm:"column:renewed_at;not null" json:"renewed_at"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
}

// TableName specifies the table name for Lease
func (Lease) TableName() string {
	return "leases"
}

// Expired reports whether the lease has lapsed at the given instant.
func (l *Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
