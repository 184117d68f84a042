package matching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthlens/internal/models"
)

func strPtr(s string) *string { return &s }

func scheme(code, name string, growth, payout, reinvest string) models.SchemeMaster {
	s := models.SchemeMaster{SchemeCode: code, SchemeName: name, Status: models.SchemeStatusActive}
	if growth != "" {
		s.ISINGrowth = strPtr(growth)
	}
	if payout != "" {
		s.ISINDivPayout = strPtr(payout)
	}
	if reinvest != "" {
		s.ISINDivReinvestment = strPtr(reinvest)
	}
	return s
}

func TestRanker_EndToEnd(t *testing.T) {
	r := NewRanker(nil, DefaultConfig())
	candidates := []models.SchemeMaster{
		scheme("120684", "HDFC NIFTY 50 INDEX FUND - DIRECT PLAN - GROWTH OPTION", "INF179KB1HP9", "", ""),
		scheme("149288", "HDFC NIFTY NEXT 50 INDEX FUND - DIRECT PLAN - GROWTH OPTION", "INF179KC1DH4", "", ""),
		scheme("149287", "HDFC NIFTY NEXT 50 INDEX FUND - REGULAR PLAN - GROWTH OPTION", "INF179KC1DG6", "", ""),
		scheme("120620", "ICICI Prudential Nifty Next 50 Index Fund - Direct Plan - Growth", "INF109K012K1", "", ""),
	}

	result := r.Match("HDFC Nifty Next50 Index Growth Direct Plan", candidates)

	require.Equal(t, OutcomeMatched, result.Outcome)
	assert.Equal(t, "149288", result.SchemeCode)
	assert.Equal(t, "INF179KC1DH4", result.ISIN)
	assert.Greater(t, result.TopScore(), 60.0)
	assert.InDelta(t, 100, result.Best.TokenScore, 1e-9)
	assert.Equal(t, 15.0, result.Best.PlanAdjustment)
	require.Len(t, result.Ranked, 4)
	for _, c := range result.Ranked[1:] {
		assert.Less(t, c.Total, result.Best.Total)
	}
}

func TestRanker_PlanConflict(t *testing.T) {
	r := NewRanker(nil, DefaultConfig())
	asset := r.Tokenizer().Analyze("HDFC Flexicap IDCW Payout")

	reinvest := r.Score(asset, scheme("2", "HDFC Flexicap IDCW Reinvestment", "", "", "INF179K01AS4"))
	payout := r.Score(asset, scheme("1", "HDFC Flexicap IDCW Payout", "", "INF179K01AR6", ""))

	assert.Equal(t, 0.0, reinvest.Breakdown.Plan)
	assert.True(t, reinvest.Breakdown.SettlementConflict)
	assert.Equal(t, 1.0, payout.Breakdown.Plan)
	assert.Greater(t, payout.Total-reinvest.Total, 10.0)
	assert.Equal(t, reinvest.PlanAdjustment, payout.PlanAdjustment, "conflict is not penalized beyond the plan sub-score")
}

func TestRanker_TokenScoreUsesFixedWeights(t *testing.T) {
	r := NewRanker(nil, DefaultConfig())

	t.Run("no_other_tokens_caps_at_85", func(t *testing.T) {
		asset := r.Tokenizer().Analyze("SBI Small Cap Growth")
		c := r.Score(asset, scheme("125497", "SBI Small Cap Fund - Direct Plan - Growth", "INF200K01T51", "", ""))
		assert.InDelta(t, 85, c.TokenScore, 1e-9)
	})

	t.Run("conflicting_settlement_loses_plan_weight", func(t *testing.T) {
		asset := r.Tokenizer().Analyze("HDFC Flexicap IDCW Payout")
		c := r.Score(asset, scheme("2", "HDFC Flexicap IDCW Reinvestment", "", "", "INF179K01AS4"))
		assert.InDelta(t, 70, c.TokenScore, 1e-9)
	})

	t.Run("never_exceeds_100", func(t *testing.T) {
		asset := r.Tokenizer().Analyze("HDFC Nifty Next50 Index Growth Direct Plan")
		c := r.Score(asset, scheme("149288", "HDFC NIFTY NEXT 50 INDEX FUND - DIRECT PLAN - GROWTH OPTION", "INF179KC1DH4", "", ""))
		assert.LessOrEqual(t, c.TokenScore, 100.0)
	})
}

func TestRanker_SettlementConflictPenalty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SettlementConflictPenalty = 50
	r := NewRanker(nil, cfg)

	result := r.Match("HDFC Flexicap IDCW Payout", []models.SchemeMaster{
		scheme("2", "HDFC Flexicap IDCW Reinvestment", "", "", "INF179K01AS4"),
	})

	assert.Equal(t, OutcomeBelowThreshold, result.Outcome)
}

func TestRanker_ThresholdBoundary(t *testing.T) {
	name := "Axis Bluechip Fund Growth Direct Plan"
	candidates := []models.SchemeMaster{
		scheme("120465", "Axis Bluechip Fund - Direct Plan - Growth", "INF846K01DP8", "", ""),
	}
	forced := func(bonus float64) Config {
		return Config{TokenWeight: 0, StringWeight: 0, Threshold: 60, Categories: DefaultCategoryWeights(), DirectBonus: bonus}
	}

	t.Run("exactly_threshold_accepted", func(t *testing.T) {
		result := NewRanker(nil, forced(60)).Match(name, candidates)
		assert.Equal(t, OutcomeMatched, result.Outcome)
		assert.Equal(t, 60.0, result.TopScore())
	})

	t.Run("just_below_rejected", func(t *testing.T) {
		result := NewRanker(nil, forced(59.999)).Match(name, candidates)
		assert.Equal(t, OutcomeBelowThreshold, result.Outcome)
		assert.Empty(t, result.ISIN)
	})

	t.Run("scored_59_rejected", func(t *testing.T) {
		result := NewRanker(nil, forced(59)).Match(name, candidates)
		assert.False(t, result.Matched())
		assert.Equal(t, 59.0, result.TopScore())
	})
}

func TestRanker_ISINPreference(t *testing.T) {
	r := NewRanker(nil, DefaultConfig())
	name := "Kotak Emerging Equity Growth Direct"

	t.Run("growth_preferred_over_payout", func(t *testing.T) {
		result := r.Match(name, []models.SchemeMaster{
			scheme("1", "Kotak Emerging Equity Fund - Direct Plan - Growth", "INF174K01LS2", "INF174K01LT0", "INF174K01LU8"),
		})
		require.True(t, result.Matched())
		assert.Equal(t, "INF174K01LS2", result.ISIN)
	})

	t.Run("payout_before_reinvestment", func(t *testing.T) {
		result := r.Match(name, []models.SchemeMaster{
			scheme("1", "Kotak Emerging Equity Fund - Direct Plan - Growth", "", "INF174K01LT0", "INF174K01LU8"),
		})
		require.True(t, result.Matched())
		assert.Equal(t, "INF174K01LT0", result.ISIN)
	})

	t.Run("no_isin_rejected", func(t *testing.T) {
		result := r.Match(name, []models.SchemeMaster{
			scheme("1", "Kotak Emerging Equity Fund - Direct Plan - Growth", "", "", ""),
		})
		assert.Equal(t, OutcomeMissingISIN, result.Outcome)
		require.NotNil(t, result.Best)
		assert.GreaterOrEqual(t, result.Best.Total, 60.0)
	})
}

func TestRanker_NoCandidates(t *testing.T) {
	result := NewRanker(nil, DefaultConfig()).Match("Anything", nil)

	assert.Equal(t, OutcomeNoCandidates, result.Outcome)
	assert.Nil(t, result.Best)
	assert.Equal(t, 0.0, result.TopScore())
}

func TestRanker_PlanAdjustment(t *testing.T) {
	r := NewRanker(nil, DefaultConfig())

	assert.Equal(t, 15.0, r.planAdjustment("X Direct Growth", "X - DIRECT PLAN - GROWTH"))
	assert.Equal(t, 10.0, r.planAdjustment("X Regular", "X - Regular Plan - IDCW"))
	assert.Equal(t, -20.0, r.planAdjustment("X Direct", "X - Regular Plan"))
	assert.Equal(t, 0.0, r.planAdjustment("X Growth", "X - Regular Plan - IDCW"))
	assert.Equal(t, -30.0, r.planAdjustment("X Direct Growth", "X - Regular Plan - IDCW"))
}

func TestRanker_Deterministic(t *testing.T) {
	r := NewRanker(nil, DefaultConfig())
	candidates := []models.SchemeMaster{
		scheme("300", "SBI Small Cap Fund - Direct Plan - Growth", "INF200K01T51", "", ""),
		scheme("200", "SBI Small Cap Fund - Direct Plan - Growth", "INF200K01T52", "", ""),
		scheme("100", "SBI Contra Fund - Direct Plan - Growth", "INF200K01T53", "", ""),
	}
	name := "SBI Small Cap Direct Growth"

	first := r.Match(name, candidates)
	require.True(t, first.Matched())
	assert.Equal(t, "200", first.SchemeCode, "ties resolve to the lower scheme code")

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Match(name, candidates)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, first.SchemeCode, res.SchemeCode)
		assert.Equal(t, first.TopScore(), res.TopScore())
	}
}
