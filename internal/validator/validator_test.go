package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
)

type holdingRequest struct {
	AssetType string   `binding:"required,asset_type"`
	ISIN      string   `binding:"omitempty,isin"`
	Codes     []string `binding:"omitempty,dive,scheme_code"`
}

func TestRegister(t *testing.T) {
	Register()

	tests := []struct {
		name    string
		req     holdingRequest
		wantErr bool
	}{
		{"valid_fund", holdingRequest{AssetType: "mutual_fund", ISIN: "INF179K01XQ0", Codes: []string{"119018"}}, false},
		{"valid_without_isin", holdingRequest{AssetType: "gold"}, false},
		{"unknown_asset_type", holdingRequest{AssetType: "crypto"}, true},
		{"lowercase_isin", holdingRequest{AssetType: "mutual_fund", ISIN: "inf179k01xq0"}, true},
		{"foreign_isin", holdingRequest{AssetType: "equity", ISIN: "US0378331005"}, true},
		{"non_numeric_code", holdingRequest{AssetType: "mutual_fund", Codes: []string{"HDFC50"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
