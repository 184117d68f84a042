package matching

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// settlementBonus is added to the plan sub-score when asset and candidate name
// the same settlement option explicitly.
const settlementBonus = 0.2

// CategoryWeights are the relative weights of the token buckets in TokenScore.
type CategoryWeights struct {
	AMC   float64
	Type  float64
	Plan  float64
	Other float64
}

// DefaultCategoryWeights returns the 40/30/15/15 split.
func DefaultCategoryWeights() CategoryWeights {
	return CategoryWeights{AMC: 40, Type: 30, Plan: 15, Other: 15}
}

// TokenBreakdown is the per-bucket detail behind a token-category score.
// Sub-scores are in [0, 1]; Score is in [0, 100].
type TokenBreakdown struct {
	AMC                float64 `json:"amc"`
	Type               float64 `json:"type"`
	Plan               float64 `json:"plan"`
	Other              float64 `json:"other"`
	SettlementConflict bool    `json:"settlement_conflict"`
	Score              float64 `json:"score"`
}

// StringSimilarity returns 1 - levenshtein(a, b) / max(len(a), len(b)), in [0, 1].
// Two empty strings are identical and score 1.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// TokenScore compares the asset's token buckets with a candidate's. Each
// bucket contributes weight * sub-score; a bucket the asset has no tokens in
// contributes nothing, so the score tops out at 100 only when all four match.
func TokenScore(asset, candidate TokenSet, w CategoryWeights) TokenBreakdown {
	var b TokenBreakdown

	if len(asset.AMC) > 0 {
		b.AMC = exactFraction(asset.AMC, candidate.AMC)
	}
	if len(asset.Type) > 0 {
		b.Type = bestSimilarityAverage(asset.Type, candidate.Type)
	}
	if len(asset.Plan) > 0 {
		b.Plan, b.SettlementConflict = planScore(asset.Plan, candidate.Plan)
	}
	if len(asset.Other) > 0 {
		b.Other = bestSimilarityAverage(asset.Other, candidate.Other)
	}

	b.Score = w.AMC*b.AMC + w.Type*b.Type + w.Plan*b.Plan + w.Other*b.Other
	return b
}

// exactFraction is the share of want found verbatim in have.
func exactFraction(want, have []string) float64 {
	if len(want) == 0 {
		return 0
	}
	set := toSet(have)
	found := 0
	for _, tok := range want {
		if _, ok := set[tok]; ok {
			found++
		}
	}
	return float64(found) / float64(len(want))
}

// bestSimilarityAverage averages, over want, the best StringSimilarity
// against any token in have.
func bestSimilarityAverage(want, have []string) float64 {
	if len(want) == 0 || len(have) == 0 {
		return 0
	}
	var sum float64
	for _, w := range want {
		best := 0.0
		for _, h := range have {
			if s := StringSimilarity(w, h); s > best {
				best = s
				if best == 1 {
					break
				}
			}
		}
		sum += best
	}
	return sum / float64(len(want))
}

// planScore is the matched fraction of plan tokens. Payout and reinvestment
// are distinct settlement options: naming opposite ones zeroes the score,
// naming the same one earns settlementBonus.
func planScore(asset, candidate []string) (float64, bool) {
	assetPayout, assetReinvest := settlementSignals(asset)
	candPayout, candReinvest := settlementSignals(candidate)

	if (assetPayout && candReinvest) || (assetReinvest && candPayout) {
		return 0, true
	}

	score := exactFraction(asset, candidate)
	if (assetPayout && candPayout) || (assetReinvest && candReinvest) {
		score = min(1, score+settlementBonus)
	}
	return score, false
}

func settlementSignals(tokens []string) (payout, reinvest bool) {
	for _, tok := range tokens {
		switch tok {
		case "payout":
			payout = true
		case "reinvestment", "reinvest":
			reinvest = true
		}
	}
	return payout, reinvest
}
