package model

import "time"

// Tick summary statuses
const (
	TickStatusSuccess = "SUCCESS"
	TickStatusPartial = "PARTIAL"
	TickStatusFail    = "FAIL"
)

// TickSummary model for the tick_summaries table. One append-only row per
// daemon loop iteration, consumed by dashboards for liveness checks.
type TickSummary struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt      time.Time `gorm:"column:started_at;not null;index:idx_tick_started_at" json:"started_at"`
	FinishedAt     time.Time `gorm:"column:finished_at;not null" json:"finished_at"`
	Status         string    `gorm:"column:status;type:varchar(20);not null" json:"status"`
	AttemptedCount int       `gorm:"column:attempted_count;type:int;not null" json:"attempted_count"`
	SucceededCount int       `gorm:"column:succeeded_count;type:int;not null" json:"succeeded_count"`
	Notes          string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

// TableName specifies the table name for TickSummary
func (TickSummary) TableName() string {
	return "tick_summaries"
}
