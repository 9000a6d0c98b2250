package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/service"
)

// Resolver matches offender candidates against the pool of known offenders
// supplied by an injected provider. It holds no state of its own: resolving
// the same candidate against an unchanged pool always yields the same
// decision.
type Resolver struct {
	provider service.CandidateProvider
}

// New creates a resolver over the given candidate provider.
func New(provider service.CandidateProvider) *Resolver {
	return &Resolver{provider: provider}
}

// scored pairs a candidate record with its blended score for selection.
type scored struct {
	record        model.OffenderRecord
	score         float64
	postcodeMatch bool
}

// Resolve decides match-or-create for one candidate. The decision is
// terminal: a wrong merge or a wrong duplicate is only ever corrected by an
// administrative process, so postcode conflicts always win over name
// similarity.
func (r *Resolver) Resolve(ctx context.Context, candidate model.OffenderCandidate) (model.MatchDecision, error) {
	name := candidate.NormalizedName
	if name == "" {
		name = common.NormalizeName(candidate.RawName)
	}
	if name == "" {
		return model.MatchDecision{}, fmt.Errorf("%w: %q", common.ErrEmptyName, candidate.RawName)
	}

	postcode := common.NormalizePostcode(candidate.Postcode)

	// Exact (name, postcode) hit short-circuits scoring entirely.
	if postcode != "" {
		exact, err := r.provider.FindExact(ctx, name, postcode)
		if err != nil {
			return model.MatchDecision{}, fmt.Errorf("exact lookup: %w", err)
		}
		if exact != nil {
			if exact.ID == 0 {
				return model.MatchDecision{}, fmt.Errorf("%w: exact match without identifier", common.ErrBadProviderData)
			}
			return model.Match(exact.ID, 1.0), nil
		}
	}

	pool, err := r.provider.FindSimilar(ctx, name, PoolThreshold)
	if err != nil {
		return model.MatchDecision{}, fmt.Errorf("candidate pool: %w", err)
	}

	accepted := make([]scored, 0, len(pool))
	for _, record := range pool {
		if record.ID == 0 {
			return model.MatchDecision{}, fmt.Errorf("%w: pool record without identifier", common.ErrBadProviderData)
		}

		score, postcodeMatch := r.score(name, postcode, &record)
		if score > AcceptThreshold {
			accepted = append(accepted, scored{record: record, score: score, postcodeMatch: postcodeMatch})
		}
	}

	if len(accepted) == 0 {
		slog.Debug("No offender match, creating new entity", "name", name)
		return model.CreateNew(), nil
	}

	// On a score tie, prefer the candidate with geographic corroboration.
	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].score != accepted[j].score {
			return accepted[i].score > accepted[j].score
		}
		return accepted[i].postcodeMatch && !accepted[j].postcodeMatch
	})

	top := accepted[0]
	slog.Debug("Matched offender",
		"name", name,
		"offender_id", top.record.ID,
		"score", top.score,
		"postcode_match", top.postcodeMatch)
	return model.Match(top.record.ID, top.score), nil
}

// score computes the blended similarity for one existing record, applying
// the postcode rules: equal postcodes boost a strong name match, different
// postcodes force the score to zero, and an absent postcode does neither.
func (r *Resolver) score(name, postcode string, record *model.OffenderRecord) (float64, bool) {
	base := NameSimilarity(name, record.NormalizedName)

	theirs := common.NormalizePostcode(record.Postcode)
	if postcode == "" || theirs == "" {
		return base, false
	}

	if postcode != theirs {
		// Same name at two physical locations is two entities; merging
		// them would corrupt the aggregate counters on both.
		return 0.0, false
	}

	if base > BoostGate {
		boosted := base + PostcodeBoost
		if boosted > 1.0 {
			boosted = 1.0
		}
		return boosted, true
	}
	return base, true
}
