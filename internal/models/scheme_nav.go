package models

import (
	"time"

	"wealthlens/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SchemeNAV is one published NAV for a scheme. At most one row exists per
// (scheme_code, nav_date); rows are never overwritten.
type SchemeNAV struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	SchemeCode  string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_scheme_nav_code_date" json:"scheme_code"`
	NAVDate     time.Time       `gorm:"column:nav_date;type:date;not null;uniqueIndex:idx_scheme_nav_code_date" json:"nav_date"`
	NAV         decimal.Decimal `gorm:"column:nav;type:numeric(20,6);not null" json:"nav"`
	LastUpdated time.Time       `gorm:"not null" json:"last_updated"`
}

// TableName overrides the default.
func (SchemeNAV) TableName() string { return "scheme_navs" }

// BeforeCreate hook generates a UUIDv7 for new records
func (n *SchemeNAV) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New()
	}
	return nil
}
