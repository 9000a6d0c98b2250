package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessType classifies the legal form of an offender.
type BusinessType string

const (
	// BusinessLimitedCompany covers Ltd, LLC, Inc and Corp forms.
	BusinessLimitedCompany BusinessType = "limited_company"
	// BusinessPLC is a public limited company.
	BusinessPLC BusinessType = "plc"
	// BusinessPartnership covers LLPs and other partnerships.
	BusinessPartnership BusinessType = "partnership"
	// BusinessIndividual is a named person; also the fallback when no
	// corporate suffix is recognised.
	BusinessIndividual BusinessType = "individual"
	// BusinessOther is reserved for forms set by hand, never by the parser.
	BusinessOther BusinessType = "other"
)

// OffenderCandidate is an incoming offender awaiting resolution against the
// pool of known offenders. NormalizedName is derived deterministically from
// RawName; Postcode is empty when the source page had none.
type OffenderCandidate struct {
	RawName        string
	NormalizedName string
	Postcode       string
	BusinessType   BusinessType
}

// OffenderRecord is a persisted offender entity. The aggregate counters are
// maintained by the storage layer, not computed here, but their existence
// constrains matching: merging two records with different postcodes would
// silently pool counters across unrelated entities.
type OffenderRecord struct {
	LastUpdated    time.Time
	Name           string
	NormalizedName string
	Postcode       string
	TotalFines     decimal.Decimal
	ID             int64
	TotalCases     int
	TotalNotices   int
	BusinessType   BusinessType
}

// MatchDecision is the terminal outcome of resolving one candidate. It is
// produced once and never revised automatically; merging two offenders later
// is an administrative operation.
type MatchDecision struct {
	OffenderID int64
	Score      float64
	Matched    bool
}

// Match records a successful resolution against an existing offender.
func Match(offenderID int64, score float64) MatchDecision {
	return MatchDecision{OffenderID: offenderID, Score: score, Matched: true}
}

// CreateNew instructs the caller to create a fresh offender record.
func CreateNew() MatchDecision {
	return MatchDecision{}
}
