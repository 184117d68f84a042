package models

import (
	"time"

	"wealthlens/internal/uuid"

	"gorm.io/gorm"
)

// PortfolioSnapshot is a user's portfolio valuation on a trading day, recorded
// after the NAV update. One row per (user_id, snapshot_date).
type PortfolioSnapshot struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_portfolio_snapshot_user_date" json:"user_id"`
	SnapshotDate  time.Time `gorm:"type:date;not null;uniqueIndex:idx_portfolio_snapshot_user_date" json:"snapshot_date"`
	TotalInvested int64     `gorm:"type:bigint;not null" json:"total_invested"`
	CurrentValue  int64     `gorm:"type:bigint;not null" json:"current_value"`
	GainLoss      int64     `gorm:"type:bigint;not null" json:"gain_loss"`
	HoldingCount  int       `gorm:"not null" json:"holding_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PortfolioSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
