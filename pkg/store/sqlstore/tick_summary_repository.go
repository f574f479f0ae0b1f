package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"conductor/pkg/store/sqlstore/model"

	"gorm.io/gorm"
)

// TickSummaryRepository handles append-only tick summaries
type TickSummaryRepository struct {
	ds *Datastore
}

// NewTickSummaryRepository creates a new tick summary repository
func NewTickSummaryRepository(ds *Datastore) *TickSummaryRepository {
	return &TickSummaryRepository{ds: ds}
}

// Append writes one summary row
func (r *TickSummaryRepository) Append(ctx context.Context, summary *model.TickSummary) error {
	if err := r.ds.DB(ctx).Create(summary).Error; err != nil {
		return fmt.Errorf("failed to append tick summary: %w", err)
	}
	return nil
}

// Latest returns the most recent n summaries, newest first
func (r *TickSummaryRepository) Latest(ctx context.Context, n int) ([]model.TickSummary, error) {
	var summaries []model.TickSummary
	err := r.ds.DB(ctx).
		Order("id DESC").
		Limit(n).
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tick summaries: %w", err)
	}
	return summaries, nil
}

// LatestOne returns the most recent summary, or nil if none exists
func (r *TickSummaryRepository) LatestOne(ctx context.Context) (*model.TickSummary, error) {
	var summary model.TickSummary
	err := r.ds.DB(ctx).Order("id DESC").First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest tick summary: %w", err)
	}
	return &summary, nil
}
