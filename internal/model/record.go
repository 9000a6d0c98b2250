// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one loosely-structured enforcement record as scraped from a
// source page. Every field is the raw string extracted from the page; the
// parsing pipeline owns all interpretation. Consumed once, never mutated.
type RawRecord struct {
	OffenderName     string
	Address          string
	Postcode         string
	ActionDate       string
	HearingDate      string
	Fine             string
	Costs            string
	Breach           string
	BusinessTypeHint string
	SourceURL        string
}

// GenerateHash creates a unique hash for duplicate detection, so re-ingesting
// the same scrape is idempotent.
func (r *RawRecord) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		strings.TrimSpace(r.OffenderName),
		strings.TrimSpace(r.ActionDate),
		strings.TrimSpace(r.Fine),
		strings.TrimSpace(r.Breach))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ParsedFields is the typed projection of a RawRecord. Money fields default
// to zero and dates to nil on unparseable input; Fallbacks names each field
// that fell back so operators can see the accuracy cost.
type ParsedFields struct {
	ActionDate   *time.Time
	HearingDate  *time.Time
	Fine         decimal.Decimal
	Costs        decimal.Decimal
	BusinessType BusinessType
	Fallbacks    []string
}

// EnforcementCase is a fully resolved, typed record ready for storage.
type EnforcementCase struct {
	CreatedAt    time.Time
	ActionDate   *time.Time
	HearingDate  *time.Time
	ID           string
	Hash         string
	Breach       string
	SourceURL    string
	Legislation  []LegislationReference
	Fine         decimal.Decimal
	Costs        decimal.Decimal
	OffenderID   int64
	BusinessType BusinessType
}
