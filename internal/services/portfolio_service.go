package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/models"
)

var paisePerRupee = decimal.NewFromInt(100)

// portfolioService aggregates a user's holdings.
type portfolioService struct {
	db   *gorm.DB
	navs NAVServicer
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB, navs NAVServicer) PortfolioServicer {
	return &portfolioService{db: db, navs: navs}
}

// GetSummary values every holding of the user and aggregates by asset type.
// Resolved mutual funds are valued at units times the latest NAV; other
// holdings use their manual current value, falling back to the invested amount.
func (s *portfolioService) GetSummary(userID string) (*PortfolioSummary, error) {
	var holdings []models.Holding
	if err := s.db.Preload("Asset").Where("user_id = ?", userID).Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	codes := make([]string, 0, len(holdings))
	for i := range holdings {
		if code := fundSchemeCode(&holdings[i].Asset); code != "" {
			codes = append(codes, code)
		}
	}
	latest, err := s.navs.LatestNAVs(context.Background(), codes)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		HoldingCount: len(holdings),
		Allocation:   make(map[models.AssetType]TypeSummary),
	}
	for i := range holdings {
		h := &holdings[i]
		value := holdingValue(h, latest)

		summary.TotalInvested += h.InvestedValue
		summary.CurrentValue += value

		ts := summary.Allocation[h.Asset.AssetType]
		ts.Value += value
		ts.Count++
		summary.Allocation[h.Asset.AssetType] = ts
	}

	summary.TotalGainLoss = summary.CurrentValue - summary.TotalInvested
	if summary.TotalInvested > 0 {
		summary.GainLossPct = float64(summary.TotalGainLoss) / float64(summary.TotalInvested) * 100
	}
	if summary.CurrentValue > 0 {
		for t, ts := range summary.Allocation {
			ts.Percentage = float64(ts.Value) / float64(summary.CurrentValue) * 100
			summary.Allocation[t] = ts
		}
	}

	return summary, nil
}

func fundSchemeCode(a *models.Asset) string {
	if a.AssetType != models.AssetTypeMutualFund || a.Symbol == nil {
		return ""
	}
	return *a.Symbol
}

// holdingValue returns the holding's value in paise.
func holdingValue(h *models.Holding, latest map[string]models.SchemeNAV) int64 {
	if code := fundSchemeCode(&h.Asset); code != "" {
		if nav, ok := latest[code]; ok {
			return decimal.NewFromFloat(h.Quantity).Mul(nav.NAV).Mul(paisePerRupee).Round(0).IntPart()
		}
	}
	if h.CurrentValue != nil {
		return *h.CurrentValue
	}
	return h.InvestedValue
}
