package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"wealthlens/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a unique external user id.
func NewUserID() string {
	return fmt.Sprintf("user-%d", nextID())
}

// CreateTestAsset creates an active asset of the given type.
func CreateTestAsset(t *testing.T, db *gorm.DB, name string, assetType models.AssetType) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		Name:      name,
		AssetType: assetType,
		IsActive:  true,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// CreateTestFundAsset creates an active, unresolved mutual fund asset.
func CreateTestFundAsset(t *testing.T, db *gorm.DB, name string) *models.Asset {
	t.Helper()
	return CreateTestAsset(t, db, name, models.AssetTypeMutualFund)
}

// CreateTestResolvedFund creates a mutual fund asset already mapped to a scheme.
func CreateTestResolvedFund(t *testing.T, db *gorm.DB, name, isin, schemeCode string) *models.Asset {
	t.Helper()

	asset := CreateTestFundAsset(t, db, name)
	if err := db.Model(asset).Updates(map[string]interface{}{
		"isin":   isin,
		"symbol": schemeCode,
	}).Error; err != nil {
		t.Fatalf("failed to resolve test asset: %v", err)
	}
	asset.ISIN = &isin
	asset.Symbol = &schemeCode
	return asset
}

// CreateTestHolding creates a holding for the user in the given asset.
// invested is in paise.
func CreateTestHolding(t *testing.T, db *gorm.DB, userID, assetID string, quantity float64, invested int64) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		UserID:        userID,
		AssetID:       assetID,
		Quantity:      quantity,
		InvestedValue: invested,
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return holding
}

// CreateTestScheme creates an active scheme master record with a growth ISIN.
// An empty isin leaves every variant nil.
func CreateTestScheme(t *testing.T, db *gorm.DB, code, name, isin string) *models.SchemeMaster {
	t.Helper()

	scheme := &models.SchemeMaster{
		SchemeCode:  code,
		SchemeName:  name,
		FundHouse:   fmt.Sprintf("Fund House %d", nextID()),
		Status:      models.SchemeStatusActive,
		LastUpdated: time.Now().UTC(),
	}
	if isin != "" {
		scheme.ISINGrowth = &isin
	}
	if err := db.Create(scheme).Error; err != nil {
		t.Fatalf("failed to create test scheme: %v", err)
	}
	return scheme
}

// CreateTestNAV records a NAV for a scheme on the given date.
func CreateTestNAV(t *testing.T, db *gorm.DB, schemeCode string, date time.Time, nav string) *models.SchemeNAV {
	t.Helper()

	row := &models.SchemeNAV{
		SchemeCode:  schemeCode,
		NAVDate:     date,
		NAV:         decimal.RequireFromString(nav),
		LastUpdated: time.Now().UTC(),
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create test nav: %v", err)
	}
	return row
}
