package model

import "time"

// Work item status constants. SUCCESS and DEAD_LETTER are terminal and
// never revisited; FAILED_RETRY becomes claimable again once NotBefore elapses.
const (
	ActionStatusPending     = "PENDING"
	ActionStatusReady       = "READY"
	ActionStatusRunning     = "RUNNING"
	ActionStatusSuccess     = "SUCCESS"
	ActionStatusFailedRetry = "FAILED_RETRY"
	ActionStatusDeadLetter  = "DEAD_LETTER"
)

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == ActionStatusSuccess || status == ActionStatusDeadLetter
}

// ClaimableStatuses lists the statuses eligible for claim once NotBefore has passed.
var ClaimableStatuses = []string{ActionStatusPending, ActionStatusReady, ActionStatusFailedRetry}

// Action model for the actions table (queued work items).
// Rows are never deleted; terminal rows are retained for audit.
type Action struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	ActionID       string     `gorm:"column:action_id;type:varchar(255);not null;uniqueIndex:idx_action_id_unique" json:"id"`
	IdempotencyKey string     `gorm:"column:idempotency_key;type:varchar(255);not null;uniqueIndex:idx_idempotency_key_unique" json:"idempotency_key"`
	ActionType     string     `gorm:"column:action_type;type:varchar(100);not null;index:idx_action_type" json:"action_type"`
	Payload        JSONMap    `gorm:"column:payload;type:json" json:"payload"`
	Status         string     `gorm:"column:status;type:varchar(50);not null;index:idx_status_not_before,priority:1" json:"status"`
	Attempts       int        `gorm:"column:attempts;type:int;not null;default:0" json:"attempts"`
	NotBefore      time.Time  `gorm:"column:not_before;not null;index:idx_status_not_before,priority:2" json:"not_before"`
	LastError      string     `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	ClaimedAt      *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for Action
func (Action) TableName() string {
	return "actions"
}
