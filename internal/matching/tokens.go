package matching

import "strings"

// Category is the semantic bucket a core token falls into.
type Category string

const (
	CategoryAMC   Category = "amc"
	CategoryType  Category = "type"
	CategoryPlan  Category = "plan"
	CategoryOther Category = "other"
)

// TokenSet holds the core tokens of a name partitioned by category. Each
// bucket preserves the order tokens appeared in and holds no duplicates.
type TokenSet struct {
	AMC   []string `json:"amc"`
	Type  []string `json:"type"`
	Plan  []string `json:"plan"`
	Other []string `json:"other"`
}

// Len returns the number of tokens across all buckets.
func (ts TokenSet) Len() int {
	return len(ts.AMC) + len(ts.Type) + len(ts.Plan) + len(ts.Other)
}

// All returns every token, bucket by bucket.
func (ts TokenSet) All() []string {
	out := make([]string, 0, ts.Len())
	out = append(out, ts.AMC...)
	out = append(out, ts.Type...)
	out = append(out, ts.Plan...)
	return append(out, ts.Other...)
}

// Analysis is a name prepared for scoring.
type Analysis struct {
	Raw        string
	Normalized string
	Tokens     TokenSet
}

// Tokenizer splits normalized names into categorized core tokens.
type Tokenizer struct {
	keywords *Keywords
}

// NewTokenizer creates a Tokenizer backed by the given keyword sets.
func NewTokenizer(keywords *Keywords) *Tokenizer {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	return &Tokenizer{keywords: keywords}
}

// Keywords returns the keyword sets the tokenizer categorizes with.
func (t *Tokenizer) Keywords() *Keywords { return t.keywords }

// Tokens splits a normalized string on whitespace.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// CoreTokens returns the tokens of a normalized string with stopwords and
// single-character fragments removed.
func (t *Tokenizer) CoreTokens(normalized string) []string {
	raw := Tokens(normalized)
	core := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) < 2 || t.keywords.IsStopword(tok) {
			continue
		}
		core = append(core, tok)
	}
	return core
}

// Classify returns the category of a single core token.
func (t *Tokenizer) Classify(token string) Category {
	switch {
	case t.keywords.IsAMC(token):
		return CategoryAMC
	case t.keywords.IsFundType(token):
		return CategoryType
	case t.keywords.IsPlan(token):
		return CategoryPlan
	default:
		return CategoryOther
	}
}

// Categorize partitions core tokens into the four buckets.
func (t *Tokenizer) Categorize(tokens []string) TokenSet {
	var ts TokenSet
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}

		switch t.Classify(tok) {
		case CategoryAMC:
			ts.AMC = append(ts.AMC, tok)
		case CategoryType:
			ts.Type = append(ts.Type, tok)
		case CategoryPlan:
			ts.Plan = append(ts.Plan, tok)
		default:
			ts.Other = append(ts.Other, tok)
		}
	}
	return ts
}

// Analyze normalizes, tokenizes and categorizes a raw name.
func (t *Tokenizer) Analyze(name string) Analysis {
	normalized := Normalize(name)
	return Analysis{
		Raw:        name,
		Normalized: normalized,
		Tokens:     t.Categorize(t.CoreTokens(normalized)),
	}
}
