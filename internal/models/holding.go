package models

// Holding is a user's position in an asset. Values are stored in paise.
type Holding struct {
	Base
	UserID        string  `gorm:"type:varchar(64);not null;index" json:"user_id"`
	AssetID       string  `gorm:"type:uuid;not null;index" json:"asset_id"`
	Quantity      float64 `gorm:"not null;default:0" json:"quantity"`
	InvestedValue int64   `gorm:"type:bigint;not null;default:0" json:"invested_value"`
	CurrentValue  *int64  `gorm:"type:bigint" json:"current_value,omitempty"` // Manual valuation for instruments without a market feed
	Notes         string  `json:"notes,omitempty"`

	// Relationships
	Asset Asset `gorm:"foreignKey:AssetID" json:"asset"`
}
