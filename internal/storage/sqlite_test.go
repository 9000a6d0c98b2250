package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/resolve"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func testOffender(name, normalized, postcode string) *model.OffenderRecord {
	return &model.OffenderRecord{
		Name:           name,
		NormalizedName: normalized,
		Postcode:       postcode,
		BusinessType:   model.BusinessLimitedCompany,
		TotalFines:     decimal.Zero,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStorage(t)

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	version, err := s.currentSchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("currentSchemaVersion() error = %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}

func TestCreateOffender_AndFindExact(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateOffender(ctx, testOffender("Acme Scaffolding Ltd", "acme scaffolding limited", "LS1 4AP"))
	if err != nil {
		t.Fatalf("CreateOffender() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateOffender() returned zero ID")
	}

	found, err := s.FindExact(ctx, "acme scaffolding limited", "LS1 4AP")
	if err != nil {
		t.Fatalf("FindExact() error = %v", err)
	}
	if found == nil {
		t.Fatal("FindExact() returned nil for existing offender")
	}
	if found.ID != created.ID {
		t.Errorf("FindExact() ID = %d, want %d", found.ID, created.ID)
	}
	if found.Name != "Acme Scaffolding Ltd" {
		t.Errorf("FindExact() Name = %q", found.Name)
	}
}

func TestFindExact_AbsentAndEmptyPostcode(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	found, err := s.FindExact(ctx, "nobody here", "AB1 2CD")
	if err != nil {
		t.Fatalf("FindExact() error = %v", err)
	}
	if found != nil {
		t.Errorf("FindExact() = %+v, want nil for absent offender", found)
	}

	// An empty postcode can never corroborate identity.
	found, err = s.FindExact(ctx, "acme scaffolding limited", "")
	if err != nil {
		t.Fatalf("FindExact() error = %v", err)
	}
	if found != nil {
		t.Error("FindExact() with empty postcode should return nil")
	}
}

func TestCreateOffender_Duplicate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.CreateOffender(ctx, testOffender("Acme Ltd", "acme limited", "LS1 4AP")); err != nil {
		t.Fatalf("CreateOffender() error = %v", err)
	}

	_, err := s.CreateOffender(ctx, testOffender("ACME LTD", "acme limited", "LS1 4AP"))
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("duplicate CreateOffender() error = %v, want ErrDuplicateEntry", err)
	}
}

func TestFindSimilar(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	names := []string{
		"acme scaffolding limited",
		"acme scaffold limited",
		"northern demolition limited",
	}
	for i, n := range names {
		o := testOffender(n, n, "")
		o.Postcode = ""
		if _, err := s.CreateOffender(ctx, o); err != nil {
			t.Fatalf("CreateOffender(%d) error = %v", i, err)
		}
	}

	// The pool threshold admits weak candidates cheaply; acceptance is the
	// resolver's job. Assert ordering, not exclusion: both acme variants
	// rank ahead of anything sharing only the legal suffix.
	pool, err := s.FindSimilar(ctx, "acme scaffolding limited", resolve.PoolThreshold)
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(pool) < 2 {
		t.Fatalf("FindSimilar() returned %d candidates, want at least 2", len(pool))
	}
	if pool[0].NormalizedName != "acme scaffolding limited" {
		t.Errorf("best candidate = %q, want the exact name", pool[0].NormalizedName)
	}
	if pool[1].NormalizedName != "acme scaffold limited" {
		t.Errorf("second candidate = %q, want the near variant", pool[1].NormalizedName)
	}

	// At the acceptance threshold the suffix-only overlap drops out.
	strict, err := s.FindSimilar(ctx, "acme scaffolding limited", resolve.AcceptThreshold)
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	for _, c := range strict {
		if c.NormalizedName == "northern demolition limited" {
			t.Error("offender sharing only the legal suffix cleared the acceptance threshold")
		}
	}
}

func TestIncrementOffenderCase(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created, err := s.CreateOffender(ctx, testOffender("Acme Ltd", "acme limited", "LS1 4AP"))
	if err != nil {
		t.Fatalf("CreateOffender() error = %v", err)
	}

	if err := s.IncrementOffenderCase(ctx, created.ID, decimal.NewFromInt(12000)); err != nil {
		t.Fatalf("IncrementOffenderCase() error = %v", err)
	}
	if err := s.IncrementOffenderCase(ctx, created.ID, decimal.RequireFromString("500.50")); err != nil {
		t.Fatalf("IncrementOffenderCase() error = %v", err)
	}

	got, err := s.GetOffenderByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetOffenderByID() error = %v", err)
	}
	if got.TotalCases != 2 {
		t.Errorf("TotalCases = %d, want 2", got.TotalCases)
	}
	if !got.TotalFines.Equal(decimal.RequireFromString("12500.50")) {
		t.Errorf("TotalFines = %s, want 12500.50", got.TotalFines)
	}
}

func TestSearchOffenders(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, n := range []string{"Acme Scaffolding Ltd", "Acme Roofing Ltd", "Borealis Plant Hire"} {
		o := testOffender(n, common.NormalizeName(n), "")
		if _, err := s.CreateOffender(ctx, o); err != nil {
			t.Fatalf("CreateOffender(%q) error = %v", n, err)
		}
	}

	results, err := s.SearchOffenders(ctx, "acme", 10)
	if err != nil {
		t.Fatalf("SearchOffenders() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("SearchOffenders() returned %d results, want 2", len(results))
	}
}

func intPtr(v int) *int { return &v }

func TestLegislation_FindOrCreateCycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	found, err := s.FindLegislation(ctx, "Work at Height Regulations", intPtr(2005), nil)
	if err != nil {
		t.Fatalf("FindLegislation() error = %v", err)
	}
	if found != nil {
		t.Fatal("FindLegislation() found a reference in an empty store")
	}

	created, err := s.CreateLegislation(ctx, &model.LegislationReference{
		Title: "Work at Height Regulations",
		Year:  intPtr(2005),
		Type:  model.LegislationRegulation,
	})
	if err != nil {
		t.Fatalf("CreateLegislation() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateLegislation() returned zero ID")
	}

	found, err = s.FindLegislation(ctx, "Work at Height Regulations", intPtr(2005), nil)
	if err != nil {
		t.Fatalf("FindLegislation() error = %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("FindLegislation() = %+v, want ID %d", found, created.ID)
	}
	if found.Year == nil || *found.Year != 2005 {
		t.Errorf("FindLegislation() Year = %v, want 2005", found.Year)
	}
	if found.Number != nil {
		t.Errorf("FindLegislation() Number = %v, want nil", found.Number)
	}
}

func TestCreateLegislation_Duplicate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ref := &model.LegislationReference{
		Title: "Health and Safety at Work etc. Act",
		Year:  intPtr(1974),
		Type:  model.LegislationAct,
	}
	if _, err := s.CreateLegislation(ctx, ref); err != nil {
		t.Fatalf("CreateLegislation() error = %v", err)
	}

	_, err := s.CreateLegislation(ctx, ref)
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("duplicate CreateLegislation() error = %v, want ErrDuplicateEntry", err)
	}
}

func TestCreateLegislation_UnknownYearIsDistinctIdentity(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Same title with and without a year are separate rows; a second
	// yearless create is the duplicate.
	if _, err := s.CreateLegislation(ctx, &model.LegislationReference{
		Title: "Gas Safety (Installation and Use) Regulations",
		Year:  intPtr(1998),
		Type:  model.LegislationRegulation,
	}); err != nil {
		t.Fatalf("CreateLegislation() error = %v", err)
	}
	if _, err := s.CreateLegislation(ctx, &model.LegislationReference{
		Title: "Gas Safety (Installation and Use) Regulations",
		Type:  model.LegislationRegulation,
	}); err != nil {
		t.Fatalf("yearless CreateLegislation() error = %v", err)
	}
	_, err := s.CreateLegislation(ctx, &model.LegislationReference{
		Title: "Gas Safety (Installation and Use) Regulations",
		Type:  model.LegislationRegulation,
	})
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("second yearless CreateLegislation() error = %v, want ErrDuplicateEntry", err)
	}
}

func testCase(t *testing.T, s *SQLiteStorage, offenderID int64, refs []model.LegislationReference) *model.EnforcementCase {
	t.Helper()

	actionDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &model.EnforcementCase{
		ID:           uuid.NewString(),
		Hash:         uuid.NewString(),
		OffenderID:   offenderID,
		ActionDate:   &actionDate,
		Fine:         decimal.NewFromInt(24000),
		Costs:        decimal.RequireFromString("3411.20"),
		BusinessType: model.BusinessLimitedCompany,
		Breach:       "Failure to ensure safe systems of work at height",
		SourceURL:    "https://example.org/notices/1234",
		Legislation:  refs,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestSaveCase_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	offender, err := s.CreateOffender(ctx, testOffender("Acme Ltd", "acme limited", "LS1 4AP"))
	if err != nil {
		t.Fatalf("CreateOffender() error = %v", err)
	}
	ref, err := s.CreateLegislation(ctx, &model.LegislationReference{
		Title: "Work at Height Regulations",
		Year:  intPtr(2005),
		Type:  model.LegislationRegulation,
	})
	if err != nil {
		t.Fatalf("CreateLegislation() error = %v", err)
	}
	linked := *ref
	linked.SectionLabel = "Regulation 4(1)"

	c := testCase(t, s, offender.ID, []model.LegislationReference{linked})
	if err := s.SaveCase(ctx, c); err != nil {
		t.Fatalf("SaveCase() error = %v", err)
	}

	exists, err := s.CaseExists(ctx, c.Hash)
	if err != nil {
		t.Fatalf("CaseExists() error = %v", err)
	}
	if !exists {
		t.Error("CaseExists() = false after SaveCase()")
	}

	cases, err := s.GetCasesByOffender(ctx, offender.ID)
	if err != nil {
		t.Fatalf("GetCasesByOffender() error = %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("GetCasesByOffender() returned %d cases, want 1", len(cases))
	}
	got := cases[0]
	if got.ID != c.ID {
		t.Errorf("case ID = %q, want %q", got.ID, c.ID)
	}
	if !got.Fine.Equal(c.Fine) {
		t.Errorf("Fine = %s, want %s", got.Fine, c.Fine)
	}
	if !got.Costs.Equal(c.Costs) {
		t.Errorf("Costs = %s, want %s", got.Costs, c.Costs)
	}
	if got.ActionDate == nil || !got.ActionDate.Equal(*c.ActionDate) {
		t.Errorf("ActionDate = %v, want %v", got.ActionDate, c.ActionDate)
	}
	if got.HearingDate != nil {
		t.Errorf("HearingDate = %v, want nil", got.HearingDate)
	}
	if len(got.Legislation) != 1 {
		t.Fatalf("Legislation count = %d, want 1", len(got.Legislation))
	}
	if got.Legislation[0].SectionLabel != "Regulation 4(1)" {
		t.Errorf("SectionLabel = %q", got.Legislation[0].SectionLabel)
	}
	if got.Legislation[0].Title != "Work at Height Regulations" {
		t.Errorf("Title = %q", got.Legislation[0].Title)
	}
}

func TestSaveCase_DuplicateHash(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	offender, err := s.CreateOffender(ctx, testOffender("Acme Ltd", "acme limited", "LS1 4AP"))
	if err != nil {
		t.Fatalf("CreateOffender() error = %v", err)
	}

	c := testCase(t, s, offender.ID, nil)
	if err := s.SaveCase(ctx, c); err != nil {
		t.Fatalf("SaveCase() error = %v", err)
	}

	again := testCase(t, s, offender.ID, nil)
	again.Hash = c.Hash
	err = s.SaveCase(ctx, again)
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("duplicate SaveCase() error = %v, want ErrDuplicateEntry", err)
	}
}

func TestCaseExists_Absent(t *testing.T) {
	s := newTestStorage(t)

	exists, err := s.CaseExists(context.Background(), "no-such-hash")
	if err != nil {
		t.Fatalf("CaseExists() error = %v", err)
	}
	if exists {
		t.Error("CaseExists() = true for unknown hash")
	}
}

func TestValidation_RejectsBadInput(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.FindExact(nil, "acme limited", "LS1 4AP"); err == nil { //nolint:staticcheck
		t.Error("FindExact(nil ctx) should error")
	}
	if _, err := s.CaseExists(ctx, ""); err == nil {
		t.Error("CaseExists(empty hash) should error")
	}
	if _, err := s.CreateOffender(ctx, &model.OffenderRecord{}); err == nil {
		t.Error("CreateOffender(empty record) should error")
	}

	bad := testCase(t, s, 1, nil)
	bad.Fine = decimal.NewFromInt(-5)
	if err := s.SaveCase(ctx, bad); err == nil {
		t.Error("SaveCase(negative fine) should error")
	}
}
