package legislation

import (
	"strings"

	"github.com/harwood/breachdb/internal/model"
)

// TypeRule pairs a lexical cue with the instrument type it implies. Rules
// run in order, most specific first; "order" must be checked before "act"
// so "Fire Safety Order" is not misread off a weaker cue.
type TypeRule struct {
	Match  func(title string) bool
	Name   string
	Result model.LegislationType
}

// TypeRules is the ordered rule list consulted by classifyType, exposed as
// data so tests can enumerate the rules independently of the evaluator.
var TypeRules = []TypeRule{
	{
		Name: "approved code of practice",
		Match: func(title string) bool {
			return strings.Contains(title, "code of practice") || containsToken(title, "acop")
		},
		Result: model.LegislationACOP,
	},
	{
		Name: "regulations",
		Match: func(title string) bool {
			return strings.Contains(title, "regulation")
		},
		Result: model.LegislationRegulation,
	},
	{
		Name: "order",
		Match: func(title string) bool {
			return containsToken(title, "order")
		},
		Result: model.LegislationOrder,
	},
	{
		Name: "act",
		Match: func(title string) bool {
			return containsToken(title, "act")
		},
		Result: model.LegislationAct,
	},
}

// classifyType derives the instrument type from the cleaned title. The safe
// default when no cue matches is regulation, the most common type in the
// source data.
func classifyType(title string) model.LegislationType {
	lower := strings.ToLower(title)
	for _, rule := range TypeRules {
		if rule.Match(lower) {
			return rule.Result
		}
	}
	return model.LegislationRegulation
}

func containsToken(s, token string) bool {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if tok == token {
			return true
		}
	}
	return false
}
