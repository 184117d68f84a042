package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wealthlens/internal/calendar"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
)

// portfolioSnapshotService handles portfolio snapshot operations.
type portfolioSnapshotService struct {
	db        *gorm.DB
	portfolio PortfolioServicer
}

// NewPortfolioSnapshotService creates a new PortfolioSnapshotServicer.
func NewPortfolioSnapshotService(db *gorm.DB, portfolio PortfolioServicer) PortfolioSnapshotServicer {
	return &portfolioSnapshotService{db: db, portfolio: portfolio}
}

// RecordSnapshots stores a valuation for every user with holdings. Re-running
// for the same date replaces that day's snapshot.
func (s *portfolioSnapshotService) RecordSnapshots(ctx context.Context, date time.Time) (int, error) {
	day := calendar.DateOnly(date)

	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Holding{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	count := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		summary, err := s.portfolio.GetSummary(userID)
		if err != nil {
			return count, err
		}

		snapshot := &models.PortfolioSnapshot{
			UserID:        userID,
			SnapshotDate:  day,
			TotalInvested: summary.TotalInvested,
			CurrentValue:  summary.CurrentValue,
			GainLoss:      summary.TotalGainLoss,
			HoldingCount:  summary.HoldingCount,
		}

		if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
			if !isUniqueConstraintError(err) {
				return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			// Already recorded for this day, update it
			if err := s.db.WithContext(ctx).Model(&models.PortfolioSnapshot{}).
				Where("user_id = ? AND snapshot_date = ?", userID, day).
				Updates(map[string]interface{}{
					"total_invested": snapshot.TotalInvested,
					"current_value":  snapshot.CurrentValue,
					"gain_loss":      snapshot.GainLoss,
					"holding_count":  snapshot.HoldingCount,
				}).Error; err != nil {
				return count, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		count++
	}

	return count, nil
}

// GetSnapshots returns paginated snapshots for a user within a date range.
func (s *portfolioSnapshotService) GetSnapshots(
	userID string,
	from, to time.Time,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.PortfolioSnapshot], error) {
	base := s.db.Model(&models.PortfolioSnapshot{}).
		Where("user_id = ? AND snapshot_date >= ? AND snapshot_date <= ?", userID, calendar.DateOnly(from), calendar.DateOnly(to))

	result, err := pagination.Find[models.PortfolioSnapshot](base, page, "snapshot_date DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
