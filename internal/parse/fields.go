// Package parse converts raw scraped strings into typed field values.
// Every conversion is total: bad input falls back to a zero value rather
// than failing the record, because the source data is inherently messy.
package parse

import (
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harwood/breachdb/internal/model"
)

// dateLayouts are tried in order before the permissive fallback.
var dateLayouts = []string{
	"2006-01-02", // ISO
	"02/01/2006", // UK
	"02-01-2006", // UK with dashes
}

var (
	// Day/month/year digit groups with arbitrary separators. Four-digit
	// years only; two-digit years are too ambiguous to guess.
	dmyFallbackRe = regexp.MustCompile(`\b(\d{1,2})\D{1,3}(\d{1,2})\D{1,3}(\d{4})\b`)
	ymdFallbackRe = regexp.MustCompile(`\b(\d{4})\D{1,3}(\d{1,2})\D{1,3}(\d{1,2})\b`)

	moneyTokenRe = regexp.MustCompile(`\d+(?:,\d+)*(?:\.\d+)?`)
	commaRe      = regexp.MustCompile(`,`)
)

// ParseDate converts a raw date string to a calendar date. It tries ISO
// YYYY-MM-DD, then UK DD/MM/YYYY and DD-MM-YYYY, then a permissive pattern
// over day/month/year digit groups. Returns nil when nothing matches.
func ParseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	if m := dmyFallbackRe.FindStringSubmatch(raw); m != nil {
		if t := buildDate(m[3], m[2], m[1]); t != nil {
			return t
		}
	}
	if m := ymdFallbackRe.FindStringSubmatch(raw); m != nil {
		if t := buildDate(m[1], m[2], m[3]); t != nil {
			return t
		}
	}

	return nil
}

// buildDate assembles a date from digit groups, rejecting values that
// time.Date would silently roll over (e.g. day 32).
func buildDate(year, month, day string) *time.Time {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return nil
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != time.Month(mo) {
		return nil
	}
	return &t
}

// ParseMoney extracts the first numeric token from a raw amount string and
// parses it as a fixed-point decimal with two decimal places. Currency
// symbols and thousands separators are ignored. Returns zero when no token
// is found; callers cannot distinguish "absent" from "stated as zero".
func ParseMoney(raw string) decimal.Decimal {
	amount, _ := parseMoneyToken(raw)
	return amount
}

func parseMoneyToken(raw string) (decimal.Decimal, bool) {
	token := moneyTokenRe.FindString(raw)
	if token == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(commaRe.ReplaceAllString(token, ""))
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount.Round(2), true
}

// ParseFields builds the typed projection of one raw record. Fields that
// fall back to defaults are named in Fallbacks so the caller can log the
// accuracy cost; silent zero fines and nil dates are a known operator
// concern.
func ParseFields(raw model.RawRecord) model.ParsedFields {
	fields := model.ParsedFields{
		Fine:  decimal.Zero,
		Costs: decimal.Zero,
	}

	fields.ActionDate = ParseDate(raw.ActionDate)
	if fields.ActionDate == nil && raw.ActionDate != "" {
		fields.Fallbacks = append(fields.Fallbacks, "action_date")
	}

	fields.HearingDate = ParseDate(raw.HearingDate)
	if fields.HearingDate == nil && raw.HearingDate != "" {
		fields.Fallbacks = append(fields.Fallbacks, "hearing_date")
	}

	var ok bool
	if fields.Fine, ok = parseMoneyToken(raw.Fine); !ok && raw.Fine != "" {
		fields.Fallbacks = append(fields.Fallbacks, "fine")
	}
	if fields.Costs, ok = parseMoneyToken(raw.Costs); !ok && raw.Costs != "" {
		fields.Fallbacks = append(fields.Fallbacks, "costs")
	}

	hint := raw.BusinessTypeHint
	if hint == "" {
		hint = raw.OffenderName
	}
	fields.BusinessType = ClassifyBusinessType(hint)

	if len(fields.Fallbacks) > 0 {
		slog.Debug("Fields fell back to defaults",
			"offender", raw.OffenderName,
			"fields", fields.Fallbacks)
	}

	return fields
}
