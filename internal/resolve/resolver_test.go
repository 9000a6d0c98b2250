package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
)

// fakeProvider is an in-memory CandidateProvider.
type fakeProvider struct {
	t             *testing.T
	records       []model.OffenderRecord
	forbidSimilar bool
	disableExact  bool
}

func (f *fakeProvider) FindExact(_ context.Context, normalizedName, postcode string) (*model.OffenderRecord, error) {
	if f.disableExact {
		return nil, nil
	}
	for i := range f.records {
		r := &f.records[i]
		if r.NormalizedName == normalizedName && common.NormalizePostcode(r.Postcode) == postcode {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeProvider) FindSimilar(_ context.Context, normalizedName string, threshold float64) ([]model.OffenderRecord, error) {
	if f.forbidSimilar {
		f.t.Fatal("FindSimilar called; exact match should have short-circuited")
	}
	var pool []model.OffenderRecord
	for _, r := range f.records {
		if NameSimilarity(normalizedName, r.NormalizedName) >= threshold {
			pool = append(pool, r)
		}
	}
	return pool, nil
}

func record(id int64, name, postcode string) model.OffenderRecord {
	return model.OffenderRecord{
		ID:             id,
		Name:           name,
		NormalizedName: common.NormalizeName(name),
		Postcode:       postcode,
	}
}

func TestResolve_ExactMatchShortCircuits(t *testing.T) {
	provider := &fakeProvider{
		t:             t,
		forbidSimilar: true,
		records:       []model.OffenderRecord{record(7, "ACME LTD", "SW1A 1AA")},
	}
	r := New(provider)

	decision, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName:  "ACME LTD",
		Postcode: "SW1A 1AA",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !decision.Matched || decision.OffenderID != 7 {
		t.Errorf("decision = %+v, want match on id 7", decision)
	}
	if decision.Score != 1.0 {
		t.Errorf("Score = %f, want 1.0", decision.Score)
	}
}

func TestResolve_PostcodeConflictForcesZero(t *testing.T) {
	// Identical names at different postcodes are different entities, no
	// matter how similar the names are.
	provider := &fakeProvider{
		t:       t,
		records: []model.OffenderRecord{record(3, "ACME CONSTRUCTION LTD", "M1 2AB")},
	}
	r := New(provider)

	decision, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName:  "ACME CONSTRUCTION LTD",
		Postcode: "SW1A 1AA",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if decision.Matched {
		t.Errorf("decision = %+v, want CreateNew despite identical names", decision)
	}
}

func TestResolve_TypoTolerance(t *testing.T) {
	provider := &fakeProvider{
		t:       t,
		records: []model.OffenderRecord{record(11, "ACME CONSTRUCTION LTD", "SW1A 1AA")},
	}
	r := New(provider)

	decision, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName:  "ACME CONSTRUTION LTD",
		Postcode: "SW1A 1AA",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !decision.Matched || decision.OffenderID != 11 {
		t.Fatalf("decision = %+v, want match on id 11", decision)
	}
	if decision.Score <= AcceptThreshold {
		t.Errorf("Score = %f, want above %f", decision.Score, AcceptThreshold)
	}
}

func TestResolve_NoPostcodeStillMatches(t *testing.T) {
	provider := &fakeProvider{
		t:       t,
		records: []model.OffenderRecord{record(5, "Smith Construction Limited", "")},
	}
	r := New(provider)

	decision, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName: "Smith Construction Ltd",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !decision.Matched || decision.OffenderID != 5 {
		t.Errorf("decision = %+v, want match on id 5", decision)
	}
}

func TestResolve_WeakNameNotRescuedByPostcode(t *testing.T) {
	provider := &fakeProvider{
		t:       t,
		records: []model.OffenderRecord{record(9, "Jones Haulage Ltd", "SW1A 1AA")},
	}
	r := New(provider)

	decision, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName:  "ACME Scaffolding Ltd",
		Postcode: "SW1A 1AA",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if decision.Matched {
		t.Errorf("decision = %+v, want CreateNew for weak name match", decision)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	provider := &fakeProvider{
		t: t,
		records: []model.OffenderRecord{
			record(1, "ACME CONSTRUCTION LTD", "SW1A 1AA"),
			record(2, "ACME CONSTRUCTION (SOUTH) LTD", "SW1A 1AA"),
		},
	}
	r := New(provider)

	candidate := model.OffenderCandidate{
		RawName:  "ACME CONSTRUTION LTD",
		Postcode: "SW1A 1AA",
	}

	first, err := r.Resolve(context.Background(), candidate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve(context.Background(), candidate)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != second {
		t.Errorf("decisions differ across identical runs: %+v vs %+v", first, second)
	}
}

func TestResolve_TieBreakPrefersPostcodeMatch(t *testing.T) {
	// Two pool entries with the same normalized name score identically;
	// the one with geographic corroboration wins.
	provider := &fakeProvider{
		t:            t,
		disableExact: true,
		records: []model.OffenderRecord{
			record(21, "ACME CONSTRUCTION LTD", ""),
			record(22, "ACME CONSTRUCTION LTD", "SW1A 1AA"),
		},
	}
	r := New(provider)

	decision, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName:  "ACME CONSTRUCTION LTD",
		Postcode: "SW1A 1AA",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !decision.Matched || decision.OffenderID != 22 {
		t.Errorf("decision = %+v, want the postcode-corroborated id 22", decision)
	}
}

func TestResolve_EmptyNameIsError(t *testing.T) {
	r := New(&fakeProvider{t: t})

	_, err := r.Resolve(context.Background(), model.OffenderCandidate{RawName: "  ...  "})
	if err == nil {
		t.Fatal("expected an error for an empty normalized name")
	}
	if !errors.Is(err, common.ErrEmptyName) {
		t.Errorf("error = %v, want ErrEmptyName", err)
	}
}

func TestResolve_ProviderWithoutIDIsError(t *testing.T) {
	provider := &fakeProvider{
		t:       t,
		records: []model.OffenderRecord{record(0, "ACME CONSTRUCTION LTD", "SW1A 1AA")},
	}
	r := New(provider)

	_, err := r.Resolve(context.Background(), model.OffenderCandidate{
		RawName:  "ACME CONSTRUCTION LTD",
		Postcode: "SW1A 1AA",
	})
	if err == nil {
		t.Fatal("expected an error for a record without an identifier")
	}
	if !errors.Is(err, common.ErrBadProviderData) {
		t.Errorf("error = %v, want ErrBadProviderData", err)
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a       string
		b       string
		atLeast float64
		below   float64
	}{
		{name: "identical", a: "acme construction limited", b: "acme construction limited", atLeast: 1.0, below: 1.01},
		{name: "single typo", a: "acme constrution limited", b: "acme construction limited", atLeast: 0.7, below: 1.0},
		{name: "unrelated", a: "jones haulage limited", b: "acme scaffolding limited", atLeast: 0.0, below: BoostGate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.a, tt.b)
			if got < tt.atLeast || got >= tt.below {
				t.Errorf("NameSimilarity(%q, %q) = %f, want [%f, %f)", tt.a, tt.b, got, tt.atLeast, tt.below)
			}
		})
	}
}
