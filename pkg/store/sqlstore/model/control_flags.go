package model

import "time"

// ControlFlagsID is the fixed primary key of the singleton flags row.
const ControlFlagsID = 1

// ControlFlags model for the control_flags table. Exactly one row exists;
// it is created on first boot with rehearsal mode on (safe default) and is
// mutated only through the operator surface.
type ControlFlags struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Paused        bool      `gorm:"column:paused;not null" json:"paused"`
	Killed        bool      `gorm:"column:killed;not null" json:"killed"`
	RehearsalMode bool      `gorm:"column:rehearsal_mode;not null" json:"rehearsal_mode"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for ControlFlags
func (ControlFlags) TableName() string {
	return "control_flags"
}
