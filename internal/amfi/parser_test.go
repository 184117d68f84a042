package amfi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthlens/internal/models"
)

const navAllSample = `Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date

Open Ended Schemes(Equity Scheme - Large Cap Fund)

HDFC Mutual Fund

119018;INF179K01XQ0;-;HDFC Top 100 Fund - Direct Plan - Growth Option;1123.4560;15-Oct-2026
119019;INF179K01XR8;INF179K01XS6;HDFC Top 100 Fund - Direct Plan - IDCW Option;78.1200;15-Oct-2026

Open Ended Schemes(Index Funds)

ICICI Prudential Mutual Fund

120716;INF109K012R6;;ICICI Prudential Nifty 50 Index Fund - Direct Plan Cumulative Option;245.3300;15-Oct-2026
bad-row;INF109K012R6;-;Broken;1;15-Oct-2026
120716;INF109K012R6;-;ICICI Prudential Nifty 50 Index Fund - Direct Plan - Growth;245.3300;15-Oct-2026
999999;N.A.;-;Segregated Portfolio 1;N.A.;15-Oct-2026
`

func TestParseNAVAll(t *testing.T) {
	asOf := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	schemes, err := ParseNAVAll(strings.NewReader(navAllSample), asOf)
	require.NoError(t, err)
	require.Len(t, schemes, 4)

	byCode := make(map[string]models.SchemeMaster)
	for _, s := range schemes {
		byCode[s.SchemeCode] = s
	}

	t.Run("growth_row", func(t *testing.T) {
		s := byCode["119018"]
		assert.Equal(t, "HDFC Mutual Fund", s.FundHouse)
		assert.Equal(t, "HDFC Top 100 Fund - Direct Plan - Growth Option", s.SchemeName)
		require.NotNil(t, s.ISINGrowth)
		assert.Equal(t, "INF179K01XQ0", *s.ISINGrowth)
		assert.Nil(t, s.ISINDivPayout)
		assert.Nil(t, s.ISINDivReinvestment)
		assert.Equal(t, models.SchemeStatusActive, s.Status)
		assert.Equal(t, asOf, s.LastUpdated)
	})

	t.Run("idcw_row_uses_payout_column", func(t *testing.T) {
		s := byCode["119019"]
		assert.Nil(t, s.ISINGrowth)
		require.NotNil(t, s.ISINDivPayout)
		assert.Equal(t, "INF179K01XR8", *s.ISINDivPayout)
		require.NotNil(t, s.ISINDivReinvestment)
		assert.Equal(t, "INF179K01XS6", *s.ISINDivReinvestment)
	})

	t.Run("duplicate_code_keeps_last_row", func(t *testing.T) {
		s := byCode["120716"]
		assert.Equal(t, "ICICI Prudential Mutual Fund", s.FundHouse)
		assert.Equal(t, "ICICI Prudential Nifty 50 Index Fund - Direct Plan - Growth", s.SchemeName)
	})

	t.Run("invalid_isin_becomes_nil", func(t *testing.T) {
		s := byCode["999999"]
		assert.False(t, s.HasISIN())
	})
}

func TestParseNAVAll_Empty(t *testing.T) {
	schemes, err := ParseNAVAll(strings.NewReader(""), time.Now())
	require.NoError(t, err)
	assert.Empty(t, schemes)
}

func TestValidISIN(t *testing.T) {
	assert.True(t, ValidISIN("INF179K01XQ0"))
	assert.True(t, ValidISIN("INE002A01018"))
	assert.False(t, ValidISIN("US0378331005"))
	assert.False(t, ValidISIN("INF179K01XQ"))
	assert.False(t, ValidISIN("inf179k01xq0"))
	assert.False(t, ValidISIN("-"))
}
