// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/harwood/breachdb/internal/model"
	"github.com/shopspring/decimal"
)

// LegislationStore is the injected lookup/insert dependency for the
// legislation normalizer's find-or-create step. Find returns (nil, nil) when
// no row matches the identity key; List supplies the candidate set for the
// normalizer's approximate-match fallback.
type LegislationStore interface {
	FindLegislation(ctx context.Context, title string, year, number *int) (*model.LegislationReference, error)
	ListLegislation(ctx context.Context) ([]model.LegislationReference, error)
	CreateLegislation(ctx context.Context, ref *model.LegislationReference) (*model.LegislationReference, error)
}

// CandidateProvider supplies existing offender records to the entity
// resolver, which has no direct storage dependency. FindExact returns
// (nil, nil) when no record has the given normalized name and postcode;
// FindSimilar returns the bounded candidate pool above the similarity
// threshold that pairwise scoring operates on.
type CandidateProvider interface {
	FindExact(ctx context.Context, normalizedName, postcode string) (*model.OffenderRecord, error)
	FindSimilar(ctx context.Context, normalizedName string, threshold float64) ([]model.OffenderRecord, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	LegislationStore
	CandidateProvider

	// Offender operations
	GetOffenderByID(ctx context.Context, id int64) (*model.OffenderRecord, error)
	CreateOffender(ctx context.Context, offender *model.OffenderRecord) (*model.OffenderRecord, error)
	SearchOffenders(ctx context.Context, query string, limit int) ([]model.OffenderRecord, error)
	IncrementOffenderCase(ctx context.Context, id int64, fine decimal.Decimal) error

	// Case operations
	SaveCase(ctx context.Context, c *model.EnforcementCase) error
	CaseExists(ctx context.Context, hash string) (bool, error)
	GetCasesByOffender(ctx context.Context, offenderID int64) ([]model.EnforcementCase, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// IngestStats shows the results of one ingest run.
type IngestStats struct {
	Duration       time.Duration
	TotalRecords   int
	NewOffenders   int
	MatchedRecords int
	Duplicates     int
	FieldFallbacks int
	Failed         int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
