package model

import "time"

// Execution log levels
const (
	LogLevelInfo    = "INFO"
	LogLevelWarning = "WARNING"
	LogLevelError   = "ERROR"
)

// ExecutionLog model for the execution_log table. Append-only; one or more
// entries are written per work item attempt.
type ExecutionLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActionID       string    `gorm:"column:action_id;type:varchar(255);not null;index:idx_log_action_id" json:"action_id"`
	Timestamp      time.Time `gorm:"column:timestamp;not null;index:idx_log_timestamp" json:"timestamp"`
	Level          string    `gorm:"column:level;type:varchar(20);not null" json:"level"`
	Message        string    `gorm:"column:message;type:text" json:"message"`
	ArtifactRef    string    `gorm:"column:artifact_ref;type:varchar(500)" json:"artifact_ref,omitempty"`
	ArtifactDigest string    `gorm:"column:artifact_digest;type:varchar(128)" json:"artifact_digest,omitempty"`
}

// TableName specifies the table name for ExecutionLog
func (ExecutionLog) TableName() string {
	return "execution_log"
}
