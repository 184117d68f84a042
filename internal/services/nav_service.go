package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wealthlens/internal/calendar"
	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
)

// navService handles the per-scheme NAV time series.
type navService struct {
	db *gorm.DB
}

// NewNAVService creates a new NAVServicer.
func NewNAVService(db *gorm.DB) NAVServicer {
	return &navService{db: db}
}

// HasNAV reports whether a NAV is already stored for the scheme and date.
func (s *navService) HasNAV(ctx context.Context, schemeCode string, date time.Time) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SchemeNAV{}).
		Where("scheme_code = ? AND nav_date = ?", schemeCode, calendar.DateOnly(date)).
		Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// RecordNAV stores a NAV unless one already exists for the scheme and date.
// Existing history is never overwritten. It reports whether a row was inserted.
func (s *navService) RecordNAV(ctx context.Context, schemeCode string, date time.Time, nav decimal.Decimal) (bool, error) {
	if !nav.IsPositive() {
		return false, apperrors.WithMessage(apperrors.ErrInvalidInput, "NAV must be positive")
	}

	row := &models.SchemeNAV{
		SchemeCode:  schemeCode,
		NAVDate:     calendar.DateOnly(date),
		NAV:         nav,
		LastUpdated: time.Now().UTC(),
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scheme_code"}, {Name: "nav_date"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetLatestNAV returns the most recent NAV for a scheme.
func (s *navService) GetLatestNAV(schemeCode string) (*models.SchemeNAV, error) {
	var nav models.SchemeNAV
	if err := s.db.Where("scheme_code = ?", schemeCode).
		Order("nav_date DESC").
		First(&nav).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNAVNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &nav, nil
}

// LatestNAVs returns the most recent NAV for each scheme code. Schemes with no
// NAV are not included in the map.
func (s *navService) LatestNAVs(ctx context.Context, schemeCodes []string) (map[string]models.SchemeNAV, error) {
	if len(schemeCodes) == 0 {
		return map[string]models.SchemeNAV{}, nil
	}

	subq := s.db.Model(&models.SchemeNAV{}).
		Select("scheme_code, MAX(nav_date) AS max_date").
		Where("scheme_code IN ?", schemeCodes).
		Group("scheme_code")

	var rows []models.SchemeNAV
	if err := s.db.WithContext(ctx).Table("scheme_navs sn").
		Select("sn.*").
		Joins("INNER JOIN (?) latest ON sn.scheme_code = latest.scheme_code AND sn.nav_date = latest.max_date", subq).
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make(map[string]models.SchemeNAV, len(rows))
	for _, r := range rows {
		result[r.SchemeCode] = r
	}
	return result, nil
}

// GetNAVHistory returns paginated NAVs for a scheme within a date range, newest first.
func (s *navService) GetNAVHistory(
	schemeCode string,
	from, to time.Time,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.SchemeNAV], error) {
	base := s.db.Model(&models.SchemeNAV{}).
		Where("scheme_code = ? AND nav_date >= ? AND nav_date <= ?", schemeCode, calendar.DateOnly(from), calendar.DateOnly(to))

	result, err := pagination.Find[models.SchemeNAV](base, page, "nav_date DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
