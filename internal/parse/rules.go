package parse

import (
	"strings"

	"github.com/harwood/breachdb/internal/model"
)

// BusinessTypeRule pairs a predicate with the type it implies. Rules are
// evaluated in order and the first match wins; some patterns are substrings
// of others, so the order is load-bearing.
type BusinessTypeRule struct {
	Match  func(name string) bool
	Name   string
	Result model.BusinessType
}

// BusinessTypeRules is the ordered rule list consulted by
// ClassifyBusinessType. Exposed so tests can enumerate the rules
// independently of the evaluator.
var BusinessTypeRules = []BusinessTypeRule{
	{
		Name:   "llc",
		Match:  func(name string) bool { return strings.Contains(name, "LLC") },
		Result: model.BusinessLimitedCompany,
	},
	{
		Name: "trailing inc",
		Match: func(name string) bool {
			trimmed := strings.TrimRight(name, ". ")
			return strings.HasSuffix(trimmed, " Inc")
		},
		Result: model.BusinessLimitedCompany,
	},
	{
		Name: "corp",
		Match: func(name string) bool {
			return strings.Contains(name, " Corp ") ||
				strings.Contains(name, " Corp.") ||
				strings.HasSuffix(name, " Corp")
		},
		Result: model.BusinessLimitedCompany,
	},
	{
		Name: "plc",
		Match: func(name string) bool {
			return strings.Contains(name, "PLC") || strings.Contains(name, "Plc")
		},
		Result: model.BusinessPLC,
	},
	{
		Name: "limited",
		Match: func(name string) bool {
			lower := strings.ToLower(name)
			return strings.Contains(lower, "limited") || containsWord(lower, "ltd")
		},
		Result: model.BusinessLimitedCompany,
	},
	{
		Name: "llp",
		Match: func(name string) bool {
			return strings.Contains(name, "LLP") || strings.Contains(name, "Llp")
		},
		Result: model.BusinessPartnership,
	},
}

// ClassifyBusinessType derives the legal form of an offender from its name.
// Individuals are the deliberate fallback when no corporate suffix matches.
func ClassifyBusinessType(name string) model.BusinessType {
	for _, rule := range BusinessTypeRules {
		if rule.Match(name) {
			return rule.Result
		}
	}
	return model.BusinessIndividual
}

func containsWord(s, word string) bool {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '.' || r == ',' || r == '(' || r == ')'
	}) {
		if tok == word {
			return true
		}
	}
	return false
}
