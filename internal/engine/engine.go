// Package engine orchestrates the normalization pipeline: typed-field
// parsing, legislation normalization and offender resolution for each raw
// scraped record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/legislation"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/parse"
	"github.com/harwood/breachdb/internal/resolve"
	"github.com/harwood/breachdb/internal/service"
)

// Config holds configuration options for the pipeline engine.
type Config struct {
	Legislation legislation.Config
	Workers     int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		Legislation: legislation.DefaultConfig(),
	}
}

// Engine runs raw scraped records through the full pipeline and persists
// the resolved result.
type Engine struct {
	storage    service.Storage
	normalizer *legislation.Normalizer
	resolver   *resolve.Resolver
	workers    int
}

// New creates a pipeline engine over the given storage.
func New(storage service.Storage, config Config) *Engine {
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultConfig().Workers
	}
	return &Engine{
		storage:    storage,
		normalizer: legislation.New(config.Legislation, storage),
		resolver:   resolve.New(storage),
		workers:    workers,
	}
}

// result is the outcome of processing one record.
type result struct {
	c         *model.EnforcementCase
	fallbacks int
	matched   bool
}

// Process runs one raw record through the pipeline and stores the resolved
// case. Returns common.ErrDuplicateEntry when the record's hash has been
// ingested before.
func (e *Engine) Process(ctx context.Context, raw model.RawRecord) (*model.EnforcementCase, error) {
	res, err := e.process(ctx, raw)
	if err != nil {
		return nil, err
	}
	return res.c, nil
}

func (e *Engine) process(ctx context.Context, raw model.RawRecord) (result, error) {
	hash := raw.GenerateHash()
	exists, err := e.storage.CaseExists(ctx, hash)
	if err != nil {
		return result{}, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return result{}, fmt.Errorf("%w: case %s", common.ErrDuplicateEntry, hash[:12])
	}

	fields := parse.ParseFields(raw)

	// The parser only converts; ordering between the two dates is enforced
	// here. An impossible hearing date is dropped, not fatal.
	if fields.ActionDate != nil && fields.HearingDate != nil &&
		fields.HearingDate.Before(*fields.ActionDate) {
		slog.Warn("Hearing date precedes action date, dropping it",
			"offender", raw.OffenderName,
			"action_date", fields.ActionDate,
			"hearing_date", fields.HearingDate)
		fields.HearingDate = nil
		fields.Fallbacks = append(fields.Fallbacks, "hearing_date")
	}

	refs, err := e.normalizer.Normalize(ctx, raw.Breach)
	if err != nil {
		return result{}, fmt.Errorf("legislation normalization: %w", err)
	}

	offenderID, matched, err := e.resolveOffender(ctx, raw, fields)
	if err != nil {
		return result{}, err
	}

	c := &model.EnforcementCase{
		ID:           uuid.NewString(),
		Hash:         hash,
		OffenderID:   offenderID,
		ActionDate:   fields.ActionDate,
		HearingDate:  fields.HearingDate,
		Fine:         fields.Fine,
		Costs:        fields.Costs,
		BusinessType: fields.BusinessType,
		Breach:       raw.Breach,
		SourceURL:    raw.SourceURL,
		Legislation:  refs,
		CreatedAt:    time.Now(),
	}

	if err := e.storage.SaveCase(ctx, c); err != nil {
		return result{}, fmt.Errorf("save case: %w", err)
	}
	if err := e.storage.IncrementOffenderCase(ctx, offenderID, fields.Fine); err != nil {
		return result{}, fmt.Errorf("update offender counters: %w", err)
	}

	slog.Debug("Processed record",
		"case_id", c.ID,
		"offender_id", offenderID,
		"matched", matched,
		"legislation_refs", len(refs))

	return result{c: c, matched: matched, fallbacks: len(fields.Fallbacks)}, nil
}

// resolveOffender runs entity resolution and creates the offender when the
// decision is CreateNew. Two workers deciding "create" for the same entity
// are serialized by the storage layer's uniqueness constraint: the loser
// re-fetches and reuses the winner's row.
func (e *Engine) resolveOffender(ctx context.Context, raw model.RawRecord, fields model.ParsedFields) (int64, bool, error) {
	candidate := model.OffenderCandidate{
		RawName:        raw.OffenderName,
		NormalizedName: common.NormalizeName(raw.OffenderName),
		Postcode:       common.NormalizePostcode(raw.Postcode),
		BusinessType:   fields.BusinessType,
	}

	decision, err := e.resolver.Resolve(ctx, candidate)
	if err != nil {
		return 0, false, fmt.Errorf("offender resolution: %w", err)
	}
	if decision.Matched {
		return decision.OffenderID, true, nil
	}

	created, err := e.storage.CreateOffender(ctx, &model.OffenderRecord{
		Name:           raw.OffenderName,
		NormalizedName: candidate.NormalizedName,
		Postcode:       candidate.Postcode,
		BusinessType:   fields.BusinessType,
		LastUpdated:    time.Now(),
	})
	if err == nil {
		return created.ID, false, nil
	}
	if !errors.Is(err, common.ErrDuplicateEntry) {
		return 0, false, fmt.Errorf("create offender: %w", err)
	}

	// Lost the creation race; reuse the winner.
	existing, ferr := e.refetchOffender(ctx, candidate.NormalizedName, candidate.Postcode)
	if ferr != nil || existing == nil {
		return 0, false, fmt.Errorf("%w: offender %q vanished after duplicate conflict", common.ErrTransient, candidate.NormalizedName)
	}
	return existing.ID, true, nil
}

// refetchOffender retrieves the row that won a creation race. FindExact
// requires a postcode on both sides, so postcode-less offenders are
// recovered through the similarity pool instead, matched on the full
// uniqueness key.
func (e *Engine) refetchOffender(ctx context.Context, normalizedName, postcode string) (*model.OffenderRecord, error) {
	if postcode != "" {
		return e.storage.FindExact(ctx, normalizedName, postcode)
	}

	pool, err := e.storage.FindSimilar(ctx, normalizedName, resolve.PoolThreshold)
	if err != nil {
		return nil, err
	}
	for i := range pool {
		if pool[i].NormalizedName == normalizedName && pool[i].Postcode == "" {
			return &pool[i], nil
		}
	}
	return nil, nil
}

// ProcessBatch processes records through a worker pool. Records are
// independent; only the offender and legislation find-or-create paths share
// state, and those are serialized through the storage layer. The progress
// callback, if non-nil, is invoked once per completed record.
func (e *Engine) ProcessBatch(ctx context.Context, records []model.RawRecord, progress func()) (service.IngestStats, error) {
	start := time.Now()
	stats := service.IngestStats{TotalRecords: len(records)}

	if len(records) == 0 {
		return stats, nil
	}

	slog.Info("Starting ingest batch",
		"records", len(records),
		"workers", e.workers)

	work := make(chan model.RawRecord)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range work {
				res, err := e.processWithRetry(ctx, raw)

				mu.Lock()
				switch {
				case errors.Is(err, common.ErrDuplicateEntry):
					stats.Duplicates++
				case err != nil:
					stats.Failed++
				case res.matched:
					stats.MatchedRecords++
					stats.FieldFallbacks += res.fallbacks
				default:
					stats.NewOffenders++
					stats.FieldFallbacks += res.fallbacks
				}
				mu.Unlock()

				if progress != nil {
					progress()
				}
			}
		}()
	}

	err := func() error {
		defer close(work)
		for _, raw := range records {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case work <- raw:
			}
		}
		return nil
	}()

	wg.Wait()
	stats.Duration = time.Since(start)

	slog.Info("Ingest batch complete",
		"total", stats.TotalRecords,
		"matched", stats.MatchedRecords,
		"new_offenders", stats.NewOffenders,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
		"field_fallbacks", stats.FieldFallbacks,
		"duration", stats.Duration)

	return stats, err
}

// processWithRetry runs one record, retrying when the failure is transient
// (a lost find-or-create race whose winner could not be re-fetched).
// Non-transient failures are marked non-retryable so they surface
// immediately.
func (e *Engine) processWithRetry(ctx context.Context, raw model.RawRecord) (result, error) {
	var res result
	err := common.WithRetry(ctx, func() error {
		r, perr := e.process(ctx, raw)
		if perr != nil {
			if common.IsRetryable(perr) {
				return perr
			}
			return &common.RetryableError{Err: perr, Retryable: false}
		}
		res = r
		return nil
	}, service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 50 * time.Millisecond,
	})

	if err != nil && !errors.Is(err, common.ErrDuplicateEntry) {
		common.LogError(err, "Record failed", common.Fields{
			"offender": raw.OffenderName,
		})
	}
	return res, err
}
