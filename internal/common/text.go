package common

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// suffixVariants collapses legal-suffix spellings to one canonical token so
// "ACME Ltd." and "ACME LIMITED" normalize identically.
var suffixVariants = map[string]string{
	"ltd":  "limited",
	"corp": "corporation",
	"inc":  "incorporated",
	"co":   "company",
}

// CollapseWhitespace trims a string and collapses runs of whitespace to a
// single space.
func CollapseWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeName derives the canonical comparison form of an offender name:
// lowercase, "&" spelled out, punctuation stripped, whitespace collapsed,
// legal-suffix variants collapsed. Deterministic and idempotent.
func NormalizeName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for i, tok := range tokens {
		if canonical, ok := suffixVariants[tok]; ok {
			tokens[i] = canonical
		}
	}
	return strings.Join(tokens, " ")
}

// NormalizePostcode strips all whitespace and uppercases a postcode for
// comparison. An empty input stays empty.
func NormalizePostcode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
