package matching

import (
	"sort"
	"strings"

	"wealthlens/internal/models"
)

// MaxCandidates is the largest shortlist the ranker is meant to score per name.
const MaxCandidates = 100

// Config controls how candidates are scored and when a match is accepted.
type Config struct {
	TokenWeight  float64
	StringWeight float64
	Threshold    float64
	Categories   CategoryWeights

	// Plan preference adjustments, applied to the raw names.
	DirectBonus          float64
	RegularBonus         float64
	PlanMismatchPenalty  float64
	GrowthBonus          float64
	GrowthMissingPenalty float64

	// SettlementConflictPenalty is subtracted from the total when the asset and
	// candidate name opposite settlement options. Zero keeps the conflict a
	// plan sub-score signal only.
	SettlementConflictPenalty float64
}

// DefaultConfig returns the production scoring parameters.
func DefaultConfig() Config {
	return Config{
		TokenWeight:          0.7,
		StringWeight:         0.3,
		Threshold:            60,
		Categories:           DefaultCategoryWeights(),
		DirectBonus:          10,
		RegularBonus:         10,
		PlanMismatchPenalty:  20,
		GrowthBonus:          5,
		GrowthMissingPenalty: 10,
	}
}

// Outcome classifies the result of a match attempt.
type Outcome string

const (
	OutcomeMatched        Outcome = "matched"
	OutcomeNoCandidates   Outcome = "no_candidates"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeMissingISIN    Outcome = "missing_isin"
)

// Candidate is a scheme scored against one asset name. Candidates only live
// for the duration of a match attempt.
type Candidate struct {
	Scheme         models.SchemeMaster `json:"scheme"`
	Tokens         TokenSet            `json:"tokens"`
	Breakdown      TokenBreakdown      `json:"breakdown"`
	TokenScore     float64             `json:"token_score"`
	StringScore    float64             `json:"string_score"`
	PlanAdjustment float64             `json:"plan_adjustment"`
	Total          float64             `json:"total"`
}

// Result is the outcome of matching one name against a candidate set.
type Result struct {
	Outcome    Outcome     `json:"outcome"`
	SchemeCode string      `json:"scheme_code,omitempty"`
	ISIN       string      `json:"isin,omitempty"`
	Best       *Candidate  `json:"best,omitempty"`
	Ranked     []Candidate `json:"ranked,omitempty"`
}

// Matched reports whether the result can be written back to an asset.
func (r Result) Matched() bool { return r.Outcome == OutcomeMatched }

// TopScore returns the best candidate's total, or 0 without candidates.
func (r Result) TopScore() float64 {
	if r.Best == nil {
		return 0
	}
	return r.Best.Total
}

// Ranker scores candidate schemes against asset names.
type Ranker struct {
	tokenizer *Tokenizer
	config    Config
}

// NewRanker creates a Ranker. A nil tokenizer uses the default keywords.
func NewRanker(tokenizer *Tokenizer, config Config) *Ranker {
	if tokenizer == nil {
		tokenizer = NewTokenizer(nil)
	}
	return &Ranker{tokenizer: tokenizer, config: config}
}

// Tokenizer returns the tokenizer used for both sides of a comparison.
func (r *Ranker) Tokenizer() *Tokenizer { return r.tokenizer }

// Config returns the scoring parameters.
func (r *Ranker) Config() Config { return r.config }

// Score computes all scores for one candidate.
func (r *Ranker) Score(asset Analysis, scheme models.SchemeMaster) Candidate {
	cand := r.tokenizer.Analyze(scheme.SchemeName)
	breakdown := TokenScore(asset.Tokens, cand.Tokens, r.config.Categories)
	stringScore := StringSimilarity(asset.Normalized, cand.Normalized) * 100
	adjustment := r.planAdjustment(asset.Raw, scheme.SchemeName)
	if breakdown.SettlementConflict {
		adjustment -= r.config.SettlementConflictPenalty
	}

	return Candidate{
		Scheme:         scheme,
		Tokens:         cand.Tokens,
		Breakdown:      breakdown,
		TokenScore:     breakdown.Score,
		StringScore:    stringScore,
		PlanAdjustment: adjustment,
		Total:          r.config.TokenWeight*breakdown.Score + r.config.StringWeight*stringScore + adjustment,
	}
}

// Rank scores every scheme and orders them best first. Ties are broken by
// scheme code so the order is deterministic.
func (r *Ranker) Rank(asset Analysis, schemes []models.SchemeMaster) []Candidate {
	ranked := make([]Candidate, len(schemes))
	for i := range schemes {
		ranked[i] = r.Score(asset, schemes[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Scheme.SchemeCode < ranked[j].Scheme.SchemeCode
	})
	return ranked
}

// Match picks the best scheme for name. The top candidate is accepted when its
// total reaches the threshold and it carries an ISIN, preferring the growth,
// then dividend payout, then dividend reinvestment variant.
func (r *Ranker) Match(name string, schemes []models.SchemeMaster) Result {
	if len(schemes) == 0 {
		return Result{Outcome: OutcomeNoCandidates}
	}

	ranked := r.Rank(r.tokenizer.Analyze(name), schemes)
	best := ranked[0]
	result := Result{Best: &best, Ranked: ranked}

	if best.Total < r.config.Threshold {
		result.Outcome = OutcomeBelowThreshold
		return result
	}

	isin := best.Scheme.PreferredISIN()
	if isin == nil {
		result.Outcome = OutcomeMissingISIN
		return result
	}

	result.Outcome = OutcomeMatched
	result.SchemeCode = best.Scheme.SchemeCode
	result.ISIN = *isin
	return result
}

// planAdjustment rewards agreement on direct/regular and growth, checked as
// substrings of the lower-cased raw names.
func (r *Ranker) planAdjustment(assetName, schemeName string) float64 {
	a := strings.ToLower(assetName)
	c := strings.ToLower(schemeName)

	var adj float64
	assetDirect := strings.Contains(a, "direct")
	candDirect := strings.Contains(c, "direct")
	switch {
	case assetDirect && candDirect:
		adj += r.config.DirectBonus
	case !assetDirect && !candDirect:
		adj += r.config.RegularBonus
	default:
		adj -= r.config.PlanMismatchPenalty
	}

	if strings.Contains(a, "growth") {
		if strings.Contains(c, "growth") {
			adj += r.config.GrowthBonus
		} else {
			adj -= r.config.GrowthMissingPenalty
		}
	}
	return adj
}
