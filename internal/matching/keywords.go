package matching

// Keywords holds the curated vocabularies used to categorize tokens. A
// Keywords value is immutable once built and may be shared between goroutines.
type Keywords struct {
	amc       map[string]struct{}
	fundType  map[string]struct{}
	plan      map[string]struct{}
	stopwords map[string]struct{}
}

// NewKeywords builds a keyword set from the given vocabularies. Entries are
// expected in normalized form (see Normalize).
func NewKeywords(amc, fundType, plan, stopwords []string) *Keywords {
	return &Keywords{
		amc:       toSet(amc),
		fundType:  toSet(fundType),
		plan:      toSet(plan),
		stopwords: toSet(stopwords),
	}
}

// DefaultKeywords returns the vocabularies for Indian mutual fund names.
func DefaultKeywords() *Keywords {
	return NewKeywords(defaultAMC, defaultFundTypes, defaultPlans, defaultStopwords)
}

// IsAMC reports whether token names a fund house.
func (k *Keywords) IsAMC(token string) bool { return has(k.amc, token) }

// IsFundType reports whether token describes an asset class or strategy.
func (k *Keywords) IsFundType(token string) bool { return has(k.fundType, token) }

// IsPlan reports whether token describes a distribution or settlement option.
func (k *Keywords) IsPlan(token string) bool { return has(k.plan, token) }

// IsStopword reports whether token carries no matching signal.
func (k *Keywords) IsStopword(token string) bool { return has(k.stopwords, token) }

func has(set map[string]struct{}, token string) bool {
	_, ok := set[token]
	return ok
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Fund house fragments. Words shared with scheme themes ("life", "sun", "one")
// are left out so they do not pull unrelated schemes together.
var defaultAMC = []string{
	"aditya", "birla", "axis", "bajaj", "bandhan", "baroda", "bnp", "boi",
	"canara", "dsp", "edelweiss", "franklin", "groww", "hdfc", "helios", "hsbc",
	"icici", "idbi", "idfc", "invesco", "iti", "jm", "kotak", "lic", "mahindra",
	"manulife", "mirae", "motilal", "navi", "nippon", "nj", "oswal", "paribas",
	"parag", "parikh", "pgim", "ppfas", "pru", "prudential", "quant", "quantum",
	"robeco", "samco", "sbi", "shriram", "sundaram", "tata", "taurus", "templeton",
	"trust", "union", "uti", "whiteoak", "zerodha",
}

var defaultFundTypes = []string{
	"equity", "debt", "hybrid", "balanced", "advantage", "aggressive", "conservative",
	"arbitrage", "liquid", "overnight", "money", "market", "gilt", "bond", "credit",
	"risk", "duration", "ultra", "short", "medium", "long", "dynamic", "floater",
	"corporate", "banking", "psu", "income", "savings", "index", "etf", "fof",
	"elss", "tax", "saver", "largecap", "large", "midcap", "mid", "smallcap", "small",
	"multicap", "multi", "flexicap", "flexi", "cap", "focused", "value", "contra",
	"yield", "bluechip", "sectoral", "thematic", "infrastructure",
	"technology", "pharma", "healthcare", "consumption", "international", "global",
	"asset", "allocation", "solution", "oriented", "retirement", "children",
	"gold", "silver", "commodities",
}

// "dividend" is the pre-2021 name for IDCW and is treated as a plan token.
var defaultPlans = []string{
	"direct", "regular", "growth", "idcw", "dividend", "payout", "reinvestment",
	"reinvest", "bonus", "daily", "weekly", "monthly", "quarterly", "annual",
	"half", "yearly",
}

var defaultStopwords = []string{
	"a", "an", "the", "of", "in", "on", "at", "to", "for", "from", "by", "with",
	"and", "or", "nor", "but", "as", "into", "under", "mutual",
}
