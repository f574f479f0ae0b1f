package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conductor/pkg/store/sqlstore/model"

	"gorm.io/gorm"
)

// ControlFlagsRepository handles the singleton operator control flags row
type ControlFlagsRepository struct {
	ds *Datastore
}

// NewControlFlagsRepository creates a new control flags repository
func NewControlFlagsRepository(ds *Datastore) *ControlFlagsRepository {
	return &ControlFlagsRepository{ds: ds}
}

// Get returns the control flags, creating the row with safe defaults
// (rehearsal mode on) on first boot.
func (r *ControlFlagsRepository) Get(ctx context.Context) (*model.ControlFlags, error) {
	var flags model.ControlFlags
	err := r.ds.DB(ctx).Where("id = ?", model.ControlFlagsID).First(&flags).Error
	if err == nil {
		return &flags, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get control flags: %w", err)
	}

	flags = model.ControlFlags{
		ID:            model.ControlFlagsID,
		Paused:        false,
		Killed:        false,
		RehearsalMode: true,
		UpdatedAt:     time.Now(),
	}
	if err := r.ds.DB(ctx).Create(&flags).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another instance created the row first; read theirs
			if err := r.ds.DB(ctx).Where("id = ?", model.ControlFlagsID).First(&flags).Error; err != nil {
				return nil, fmt.Errorf("failed to get control flags: %w", err)
			}
			return &flags, nil
		}
		return nil, fmt.Errorf("failed to create control flags: %w", err)
	}
	return &flags, nil
}

// Update applies a partial update to the singleton row. Keys must be column
// names (paused, killed, rehearsal_mode).
func (r *ControlFlagsRepository) Update(ctx context.Context, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	result := r.ds.DB(ctx).Model(&model.ControlFlags{}).
		Where("id = ?", model.ControlFlagsID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update control flags: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("control flags row missing")
	}
	return nil
}
