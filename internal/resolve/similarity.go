// Package resolve decides whether an incoming offender matches a known
// entity or must be created anew.
package resolve

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Matching thresholds. These are the primary tuning surface; every one is
// named so it can be adjusted and tested independently.
const (
	// PoolThreshold bounds the candidate set retrieved for scoring; the
	// full offender table is never scored.
	PoolThreshold = 0.3

	// AcceptThreshold is the minimum blended score for a match. Below it
	// the candidate becomes a new entity.
	AcceptThreshold = 0.7

	// BoostGate is the base similarity below which a postcode match cannot
	// rescue a weak name match.
	BoostGate = 0.6

	// PostcodeBoost is added to the base similarity when both postcodes
	// are present and equal, capped at 1.0.
	PostcodeBoost = 0.15

	// Blend weights for the two name-similarity measures. The exact ratio
	// is tunable; this split satisfies the worked matching scenarios.
	jaccardWeight     = 0.5
	jaroWinklerWeight = 0.5
)

// NameSimilarity blends token-overlap (Jaccard) and edit-based
// (Jaro-Winkler, prefix-weighted) similarity over two normalized names.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	jac := jaccard(strings.Fields(a), strings.Fields(b))
	jw := smetrics.JaroWinkler(a, b, 0.7, 4)
	return jaccardWeight*jac + jaroWinklerWeight*jw
}

// jaccard is set intersection over union of name tokens.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, tok := range a {
		set[tok] = true
	}

	union := len(set)
	intersection := 0
	seen := make(map[string]bool, len(b))
	for _, tok := range b {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if set[tok] {
			intersection++
		} else {
			union++
		}
	}

	return float64(intersection) / float64(union)
}
