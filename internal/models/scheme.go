package models

import "time"

// SchemeStatus reports whether a scheme is still offered by its fund house.
type SchemeStatus string

const (
	SchemeStatusActive   SchemeStatus = "active"
	SchemeStatusInactive SchemeStatus = "inactive"
)

// SchemeMaster is the canonical catalog entry for a mutual-fund scheme. A scheme
// has up to three settlement variants, each with its own ISIN.
type SchemeMaster struct {
	SchemeCode          string       `gorm:"primaryKey;type:varchar(20)" json:"scheme_code"`
	SchemeName          string       `gorm:"not null" json:"scheme_name"`
	FundHouse           string       `json:"fund_house"`
	ISINGrowth          *string      `gorm:"column:isin_growth;type:varchar(12);index" json:"isin_growth,omitempty"`
	ISINDivPayout       *string      `gorm:"column:isin_div_payout;type:varchar(12);index" json:"isin_div_payout,omitempty"`
	ISINDivReinvestment *string      `gorm:"column:isin_div_reinvestment;type:varchar(12);index" json:"isin_div_reinvestment,omitempty"`
	Status              SchemeStatus `gorm:"type:varchar(10);not null;default:active" json:"status"`
	LastUpdated         time.Time    `gorm:"not null" json:"last_updated"`
}

// TableName overrides the pluralized default.
func (SchemeMaster) TableName() string { return "scheme_master" }

// PreferredISIN returns the first populated ISIN in the order growth,
// dividend payout, dividend reinvestment, or nil when the scheme has none.
func (s *SchemeMaster) PreferredISIN() *string {
	for _, isin := range []*string{s.ISINGrowth, s.ISINDivPayout, s.ISINDivReinvestment} {
		if isin != nil && *isin != "" {
			return isin
		}
	}
	return nil
}

// HasISIN reports whether at least one settlement variant has an ISIN.
func (s *SchemeMaster) HasISIN() bool {
	return s.PreferredISIN() != nil
}
