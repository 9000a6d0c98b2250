package legislation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/service"
)

// PlaceholderTitle is stored when a breach citation is nothing but a short
// code with no known expansion. Recording a placeholder keeps the record
// alive; operators can backfill the abbreviation table later.
const PlaceholderTitle = "Unrecognised Legislation"

// TitleSimilarityFloor is the conservative floor for the approximate-match
// fallback in find-or-create. It absorbs residual spelling drift without
// ever conflating two different statutes.
const TitleSimilarityFloor = 0.92

var (
	// Trailing four-digit year closes the title segment of a citation.
	trailingYearRe = regexp.MustCompile(`^(.*?)[\s,]*\b((?:18|19|20)\d{2})\s*$`)

	// Statutory instrument numbers: "No. 2306", "SI 1998 No 2306".
	instrumentNumberRe = regexp.MustCompile(`(?i)\bNo\.?\s*(\d+)\b`)

	// Citation batches are bounded by semicolons or newlines; the slash is
	// reserved for the title/section boundary inside one citation.
	citationSplitRe = regexp.MustCompile(`[;\n]+`)

	// Candidate short codes: runs of capitals that may be abbreviations.
	abbrevTokenRe = regexp.MustCompile(`\b[A-Z]{2,8}\b`)

	ampersandRe = regexp.MustCompile(`\s*&\s*`)

	titleKeyRe = regexp.MustCompile(`[(),.]`)
)

// Normalizer turns raw breach descriptions into canonical legislation
// references, finding or creating the canonical row through an injected
// store.
type Normalizer struct {
	store service.LegislationStore
	cfg   Config
}

// New creates a normalizer with the given lookup tables and legislation
// store.
func New(cfg Config, store service.LegislationStore) *Normalizer {
	return &Normalizer{cfg: cfg, store: store}
}

// Normalize parses one raw breach string into zero or more canonical
// legislation references. A single string may batch several citations
// separated by ";" or newlines; within one citation the first "/" separates
// the title segment from section labels.
func (n *Normalizer) Normalize(ctx context.Context, breachText string) ([]model.LegislationReference, error) {
	var refs []model.LegislationReference

	for _, chunk := range citationSplitRe.Split(breachText, -1) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		ref, err := n.normalizeOne(ctx, chunk)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			refs = append(refs, *ref)
		}
	}

	return refs, nil
}

// normalizeOne handles a single citation chunk.
func (n *Normalizer) normalizeOne(ctx context.Context, citation string) (*model.LegislationReference, error) {
	parts := strings.Split(citation, "/")

	head := common.CollapseWhitespace(parts[0])
	sectionLabel := joinSectionLabels(parts[1:])

	var number *int
	if m := instrumentNumberRe.FindStringSubmatch(head); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			number = &v
		}
		head = common.CollapseWhitespace(instrumentNumberRe.ReplaceAllString(head, " "))
	}

	var year *int
	rawTitle := head
	if m := trailingYearRe.FindStringSubmatch(head); m != nil {
		if v, err := strconv.Atoi(m[2]); err == nil {
			year = &v
			rawTitle = m[1]
		}
	}

	title := n.cleanTitle(rawTitle)
	if title == "" {
		return nil, nil
	}

	if year == nil {
		year = n.recoverYear(title)
	}

	ref := &model.LegislationReference{
		Title:  title,
		Year:   year,
		Number: number,
		Type:   classifyType(title),
	}

	canonical, err := n.findOrCreate(ctx, ref)
	if err != nil {
		return nil, err
	}

	// The canonical row is shared across citations; the section label
	// belongs to this citation alone.
	result := *canonical
	result.SectionLabel = sectionLabel
	return &result, nil
}

// cleanTitle runs the idempotent, order-sensitive cleaning pipeline:
// whitespace collapse, abbreviation expansion, punctuation normalization,
// canonical variant mapping.
func (n *Normalizer) cleanTitle(raw string) string {
	s := common.CollapseWhitespace(raw)
	if s == "" {
		return ""
	}

	if full, ok := n.cfg.Abbreviations[strings.ToUpper(s)]; ok {
		s = full
	} else {
		s = abbrevTokenRe.ReplaceAllStringFunc(s, func(tok string) string {
			if full, ok := n.cfg.Abbreviations[tok]; ok {
				return full
			}
			return tok
		})
	}

	// A citation that is still nothing but an unknown short code cannot be
	// normalized; record the placeholder instead of failing the record.
	if isAllCaps(s) && len(s) >= 2 && len(s) <= 8 {
		slog.Debug("Unknown legislation abbreviation", "code", s)
		return PlaceholderTitle
	}

	s = ampersandRe.ReplaceAllString(s, " and ")
	s = common.CollapseWhitespace(s)

	if canonical, ok := n.cfg.CanonicalTitles[titleKey(s)]; ok {
		s = canonical
	}

	return s
}

// recoverYear consults the known-years table for well-known titles that
// appear in the text without their enactment year. Table keys can be
// substrings of each other ("health and safety at work" sits inside the
// management regulations' key), so the longest matching key wins; equal
// lengths fall back to lexical order to keep the result independent of map
// iteration order.
func (n *Normalizer) recoverYear(title string) *int {
	lower := strings.ToLower(title)

	var bestKey string
	var bestYear int
	for substring, year := range n.cfg.KnownYears {
		if !strings.Contains(lower, substring) {
			continue
		}
		if len(substring) > len(bestKey) ||
			(len(substring) == len(bestKey) && substring < bestKey) {
			bestKey = substring
			bestYear = year
		}
	}

	if bestKey == "" {
		return nil
	}
	return &bestYear
}

// findOrCreate looks up the canonical row by identity key, falling back to
// approximate title comparison, and creates the row when neither finds one.
// A creation race is resolved by re-querying and returning the winner.
func (n *Normalizer) findOrCreate(ctx context.Context, ref *model.LegislationReference) (*model.LegislationReference, error) {
	existing, err := n.store.FindLegislation(ctx, ref.Title, ref.Year, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("legislation lookup: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if match, merr := n.approximateMatch(ctx, ref); merr != nil {
		return nil, merr
	} else if match != nil {
		return match, nil
	}

	created, err := n.store.CreateLegislation(ctx, ref)
	if err == nil {
		slog.Debug("Created legislation reference",
			"title", created.Title, "year", ref.Year)
		return created, nil
	}
	if !errors.Is(err, common.ErrDuplicateEntry) {
		return nil, fmt.Errorf("legislation create: %w", err)
	}

	// Lost a creation race; the winner's row is the canonical one.
	existing, err = n.store.FindLegislation(ctx, ref.Title, ref.Year, ref.Number)
	if err != nil || existing == nil {
		return nil, fmt.Errorf("%w: legislation %q vanished after duplicate conflict", common.ErrTransient, ref.Title)
	}
	return existing, nil
}

// approximateMatch scans existing rows for a title within the similarity
// floor, never crossing a year boundary. Ties prefer the candidate with the
// most populated fields.
func (n *Normalizer) approximateMatch(ctx context.Context, ref *model.LegislationReference) (*model.LegislationReference, error) {
	all, err := n.store.ListLegislation(ctx)
	if err != nil {
		return nil, fmt.Errorf("legislation list: %w", err)
	}

	var best *model.LegislationReference
	bestScore := 0.0

	for i := range all {
		candidate := &all[i]
		if ref.Year != nil && candidate.Year != nil && *ref.Year != *candidate.Year {
			continue
		}

		score := smetrics.JaroWinkler(
			strings.ToLower(ref.Title), strings.ToLower(candidate.Title), 0.7, 4)
		if score < TitleSimilarityFloor {
			continue
		}

		if best == nil || score > bestScore ||
			(score == bestScore && candidate.PopulatedFields() > best.PopulatedFields()) {
			best = candidate
			bestScore = score
		}
	}

	return best, nil
}

func joinSectionLabels(parts []string) string {
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if cleaned := common.CollapseWhitespace(p); cleaned != "" {
			labels = append(labels, cleaned)
		}
	}
	return strings.Join(labels, " ")
}

func titleKey(s string) string {
	return common.CollapseWhitespace(strings.ToLower(titleKeyRe.ReplaceAllString(s, " ")))
}

func isAllCaps(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) > 0
}
