package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "wealthlens/internal/errors"
	"wealthlens/internal/models"
	"wealthlens/internal/pagination"
)

// assetService handles asset and holding business logic.
type assetService struct {
	db *gorm.DB
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB) AssetServicer {
	return &assetService{db: db}
}

// AddHolding records a holding, creating the asset on its first use. A new
// mutual fund asset without an ISIN is left for the backfill to resolve.
func (s *assetService) AddHolding(userID string, input HoldingInput) (*models.Holding, error) {
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if !isValidAssetType(input.AssetType) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unsupported asset type")
	}
	if input.Quantity < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity cannot be negative")
	}
	if input.InvestedValue < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invested value cannot be negative")
	}

	holding := &models.Holding{
		UserID:        userID,
		Quantity:      input.Quantity,
		InvestedValue: input.InvestedValue,
		CurrentValue:  input.CurrentValue,
		Notes:         input.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		err := tx.Where("name = ? AND asset_type = ?", name, input.AssetType).First(&asset).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			asset = models.Asset{
				Name:      name,
				AssetType: input.AssetType,
				Symbol:    nonEmpty(input.Symbol),
				ISIN:      upperNonEmpty(input.ISIN),
				IsActive:  true,
			}
			if txErr := tx.Create(&asset).Error; txErr != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
			}
		case err != nil:
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		default:
			if isin := upperNonEmpty(input.ISIN); isin != nil && !asset.IsResolved() {
				if txErr := tx.Model(&asset).Update("isin", *isin).Error; txErr != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
				}
			}
		}

		holding.AssetID = asset.ID
		if txErr := tx.Create(holding).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		holding.Asset = asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	return holding, nil
}

// GetUserHoldings returns a paginated list of the user's holdings, newest first.
func (s *assetService) GetUserHoldings(userID string, assetType *models.AssetType, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error) {
	base := s.db.Model(&models.Holding{}).Where("holdings.user_id = ?", userID)
	if assetType != nil {
		base = base.Joins("JOIN assets ON assets.id = holdings.asset_id").
			Where("assets.asset_type = ?", *assetType)
	}

	result, err := pagination.Find[models.Holding](base, page, "holdings.created_at DESC", preloadAsset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func preloadAsset(db *gorm.DB) *gorm.DB {
	return db.Preload("Asset")
}

// GetHoldingByID returns one of the user's holdings.
func (s *assetService) GetHoldingByID(userID, holdingID string) (*models.Holding, error) {
	var holding models.Holding
	if err := s.db.Preload("Asset").
		Where("id = ? AND user_id = ?", holdingID, userID).
		First(&holding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHoldingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &holding, nil
}

// UpdateHolding applies the provided fields to a holding.
func (s *assetService) UpdateHolding(userID, holdingID string, update HoldingUpdate) (*models.Holding, error) {
	holding, err := s.GetHoldingByID(userID, holdingID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Quantity != nil {
		if *update.Quantity < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity cannot be negative")
		}
		updates["quantity"] = *update.Quantity
	}
	if update.InvestedValue != nil {
		if *update.InvestedValue < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invested value cannot be negative")
		}
		updates["invested_value"] = *update.InvestedValue
	}
	if update.CurrentValue != nil {
		updates["current_value"] = *update.CurrentValue
	}
	if update.Notes != nil {
		updates["notes"] = *update.Notes
	}
	if len(updates) == 0 {
		return holding, nil
	}

	if err := s.db.Model(holding).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetHoldingByID(userID, holdingID)
}

// DeleteHolding soft-deletes a holding. The asset is kept.
func (s *assetService) DeleteHolding(userID, holdingID string) error {
	holding, err := s.GetHoldingByID(userID, holdingID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(holding).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetAssetByID returns an asset by its ID.
func (s *assetService) GetAssetByID(assetID string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.Where("id = ?", assetID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// ListUnresolvedFunds returns active mutual fund assets missing either an ISIN
// or a scheme code, oldest first. With force set, resolved funds are included
// for re-resolution.
func (s *assetService) ListUnresolvedFunds(ctx context.Context, force bool) ([]models.Asset, error) {
	q := s.db.WithContext(ctx).
		Where("asset_type = ? AND is_active = ?", models.AssetTypeMutualFund, true)
	if !force {
		q = q.Where("(isin IS NULL OR isin = '' OR symbol IS NULL OR symbol = '')")
	}

	var assets []models.Asset
	if err := q.Order("created_at ASC, id ASC").Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return assets, nil
}

// SetResolution writes a matched ISIN and scheme code onto an asset.
func (s *assetService) SetResolution(ctx context.Context, assetID, isin, schemeCode string) error {
	result := s.db.WithContext(ctx).Model(&models.Asset{}).
		Where("id = ?", assetID).
		Updates(map[string]interface{}{
			"isin":   isin,
			"symbol": schemeCode,
		})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAssetNotFound
	}
	return nil
}

// ListHeldFundISINs returns the distinct ISINs of active mutual fund assets
// that at least one user currently holds.
func (s *assetService) ListHeldFundISINs(ctx context.Context) ([]string, error) {
	var isins []string
	if err := s.db.WithContext(ctx).Model(&models.Asset{}).
		Joins("JOIN holdings ON holdings.asset_id = assets.id AND holdings.deleted_at IS NULL AND holdings.quantity > 0").
		Where("assets.asset_type = ? AND assets.is_active = ?", models.AssetTypeMutualFund, true).
		Where("assets.isin IS NOT NULL AND assets.isin <> ''").
		Distinct("assets.isin").
		Order("assets.isin ASC").
		Pluck("assets.isin", &isins).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return isins, nil
}

func isValidAssetType(t models.AssetType) bool {
	for _, known := range models.AssetTypes {
		if t == known {
			return true
		}
	}
	return false
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func upperNonEmpty(s *string) *string {
	v := nonEmpty(s)
	if v == nil {
		return nil
	}
	u := strings.ToUpper(*v)
	return &u
}

// isUniqueConstraintError checks if a GORM error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}
