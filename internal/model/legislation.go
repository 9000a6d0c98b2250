package model

import (
	"fmt"
	"time"
)

// LegislationType classifies a legislation reference by instrument kind.
type LegislationType string

const (
	// LegislationAct is primary legislation (an Act of Parliament).
	LegislationAct LegislationType = "act"
	// LegislationRegulation is a statutory instrument containing regulations.
	LegislationRegulation LegislationType = "regulation"
	// LegislationOrder is a statutory instrument containing an order.
	LegislationOrder LegislationType = "order"
	// LegislationACOP is an approved code of practice.
	LegislationACOP LegislationType = "acop"
)

// LegislationReference is one canonical row in the append-only legislation
// reference table. Title always holds the canonical expanded form, never a
// raw abbreviation. Year and Number are nil when the source text and the
// recovery tables both fail to supply them.
type LegislationReference struct {
	CreatedAt    time.Time
	Year         *int
	Number       *int
	Title        string
	SectionLabel string
	Type         LegislationType
	ID           int64
}

// IdentityKey returns the (title, year, number) lookup key. A nil number is
// excluded from the key so references created before the instrument number
// was known still collide with later, fuller citations of the same statute.
func (l *LegislationReference) IdentityKey() string {
	year := 0
	if l.Year != nil {
		year = *l.Year
	}
	if l.Number == nil {
		return fmt.Sprintf("%s|%d", l.Title, year)
	}
	return fmt.Sprintf("%s|%d|%d", l.Title, year, *l.Number)
}

// PopulatedFields counts non-nil optional fields, used to break ties between
// approximate-match candidates.
func (l *LegislationReference) PopulatedFields() int {
	n := 0
	if l.Year != nil {
		n++
	}
	if l.Number != nil {
		n++
	}
	if l.SectionLabel != "" {
		n++
	}
	return n
}
