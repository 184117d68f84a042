// Package matching resolves free-text mutual fund names to scheme master records.
//
// A name is normalized, split into core tokens, and each token is bucketed as
// an AMC, fund type, plan or other token. Candidates are ranked by a weighted
// blend of token-category overlap and whole-string edit similarity, adjusted
// by direct/regular and growth preferences taken from the raw names.
// Everything in this package is pure and safe for concurrent use.
package matching

import (
	"regexp"
	"strings"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]+`)
	digitThenLetter = regexp.MustCompile(`([0-9])([a-z])`)
	letterThenDigit = regexp.MustCompile(`([a-z])([0-9])`)
	noiseWords      = regexp.MustCompile(`\b(funds?|plans?|options?|schemes?)\b`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a fund name for comparison: lower case, "&" spelled
// out, hyphens and punctuation dropped, digits split from letters ("next50"
// becomes "next 50"), generic noise words removed and whitespace collapsed.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	s = digitThenLetter.ReplaceAllString(s, "$1 $2")
	s = letterThenDigit.ReplaceAllString(s, "$1 $2")
	s = noiseWords.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
