package models

// AssetType is the instrument class of an asset.
type AssetType string

const (
	AssetTypeEquity       AssetType = "equity"
	AssetTypeETF          AssetType = "etf"
	AssetTypeMutualFund   AssetType = "mutual_fund"
	AssetTypeFixedDeposit AssetType = "fixed_deposit"
	AssetTypeEPF          AssetType = "epf"
	AssetTypePPF          AssetType = "ppf"
	AssetTypeBond         AssetType = "bond"
	AssetTypeGold         AssetType = "gold"
	AssetTypeRealEstate   AssetType = "real_estate"
)

// AssetTypes lists every supported instrument class.
var AssetTypes = []AssetType{
	AssetTypeEquity, AssetTypeETF, AssetTypeMutualFund, AssetTypeFixedDeposit,
	AssetTypeEPF, AssetTypePPF, AssetTypeBond, AssetTypeGold, AssetTypeRealEstate,
}

// Asset is the instrument a holding refers to. For mutual funds, Symbol carries
// the resolved scheme code and ISIN the resolved settlement variant; both stay
// nil until the ISIN backfill finds a match.
type Asset struct {
	Base
	Name      string    `gorm:"not null" json:"name"`
	AssetType AssetType `gorm:"type:varchar(20);not null;index" json:"asset_type"`
	Symbol    *string   `gorm:"index" json:"symbol,omitempty"`
	ISIN      *string   `gorm:"column:isin;type:varchar(12);index" json:"isin,omitempty"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
}

// IsResolved reports whether the asset has been mapped to a scheme.
func (a *Asset) IsResolved() bool {
	return a.ISIN != nil && *a.ISIN != ""
}

// HasSchemeCode reports whether the asset carries its scheme code in Symbol.
func (a *Asset) HasSchemeCode() bool {
	return a.Symbol != nil && *a.Symbol != ""
}
