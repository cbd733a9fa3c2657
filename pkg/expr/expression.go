// Package expr parses the contract DSL used as leaf values of an interaction
// literal:
//
//	notEmpty('Item-41')
//	matching(integer, 121)
//	matching(regex, '\d+', '100')
//	matching(contentType, 'application/json', '{}')
//	matching(datetime, 'yyyy-MM-dd', '2000-01-01')
//	fromProviderState('${id}', '100')
//
// Anything that is not a call is a literal value. Several definitions may be
// joined with commas; ParseList returns each one.
package expr

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/timefmt"
)

// Kind tags the expression variant.
type Kind int

const (
	KindLiteral Kind = iota
	KindNotEmpty
	KindMatching
	KindProviderState
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindNotEmpty:
		return "notEmpty"
	case KindMatching:
		return "matching"
	case KindProviderState:
		return "fromProviderState"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Matcher names a matching(...) kind.
type Matcher string

const (
	MatchRegex       Matcher = "regex"
	MatchType        Matcher = "type"
	MatchNumber      Matcher = "number"
	MatchInteger     Matcher = "integer"
	MatchDecimal     Matcher = "decimal"
	MatchBoolean     Matcher = "boolean"
	MatchEqualTo     Matcher = "equalTo"
	MatchSemver      Matcher = "semver"
	MatchContentType Matcher = "contentType"
	MatchDateTime    Matcher = "datetime"
	MatchDate        Matcher = "date"
	MatchTime        Matcher = "time"
	MatchInclude     Matcher = "include"
)

// Expression is one parsed DSL definition.
//
// Value is the literal, the notEmpty default, the matching example or the
// provider state example. HasValue is false only for datetime/date/time
// matchers written without an example, whose value comes from a generator.
// Param carries the auxiliary argument: regex pattern, content type, time
// format or provider state expression.
type Expression struct {
	Kind     Kind
	Matcher  Matcher
	Value    string
	HasValue bool
	Param    string
}

// Literal builds a literal expression.
func Literal(v string) Expression {
	return Expression{Kind: KindLiteral, Value: v, HasValue: true}
}

// Rule returns the matching rule this expression records, if any.
func (e Expression) Rule() (model.MatchingRule, bool) {
	switch e.Kind {
	case KindNotEmpty:
		return model.NewRule(model.RuleNotEmpty), true
	case KindMatching:
	default:
		return model.MatchingRule{}, false
	}

	switch e.Matcher {
	case MatchRegex:
		return model.NewRule(model.RuleRegex, "regex", e.Param), true
	case MatchType:
		return model.NewRule(model.RuleType), true
	case MatchNumber:
		return model.NewRule(model.RuleNumber), true
	case MatchInteger:
		return model.NewRule(model.RuleInteger), true
	case MatchDecimal:
		return model.NewRule(model.RuleDecimal), true
	case MatchBoolean:
		return model.NewRule(model.RuleBoolean), true
	case MatchEqualTo:
		return model.NewRule(model.RuleEquality), true
	case MatchSemver:
		return model.NewRule(model.RuleSemver), true
	case MatchContentType:
		return model.NewRule(model.RuleContentType, "value", e.Param), true
	case MatchDateTime:
		return model.NewRule(model.RuleDateTime, "format", e.Param), true
	case MatchDate:
		return model.NewRule(model.RuleDate, "format", e.Param), true
	case MatchTime:
		return model.NewRule(model.RuleTime, "format", e.Param), true
	case MatchInclude:
		return model.NewRule(model.RuleInclude, "value", e.Value), true
	}
	return model.MatchingRule{}, false
}

// Generator returns the generator this expression records, if any. Time
// matchers only generate when no example was supplied.
func (e Expression) Generator() (model.Generator, bool) {
	switch e.Kind {
	case KindProviderState:
		return model.NewGenerator(model.GeneratorProviderState, "expression", e.Param), true
	case KindMatching:
		if e.HasValue {
			return model.Generator{}, false
		}
		switch e.Matcher {
		case MatchDateTime:
			return model.NewGenerator(model.GeneratorDateTime, "format", e.Param), true
		case MatchDate:
			return model.NewGenerator(model.GeneratorDate, "format", e.Param), true
		case MatchTime:
			return model.NewGenerator(model.GeneratorTime, "format", e.Param), true
		}
	}
	return model.Generator{}, false
}

// String renders the expression back into DSL form.
func (e Expression) String() string {
	switch e.Kind {
	case KindNotEmpty:
		return fmt.Sprintf("notEmpty(%s)", quote(e.Value))
	case KindProviderState:
		return fmt.Sprintf("fromProviderState(%s, %s)", quote(e.Param), quote(e.Value))
	case KindMatching:
		args := []string{string(e.Matcher)}
		if e.Param != "" || needsParam(e.Matcher) {
			args = append(args, quote(e.Param))
		}
		if e.HasValue {
			args = append(args, quote(e.Value))
		}
		return "matching(" + strings.Join(args, ", ") + ")"
	default:
		return LiteralText(e.Value)
	}
}

// LiteralText renders v so that ParseList reads it back as the same literal.
// Text that would parse as a call, carries surrounding quotes or padding is
// quoted.
func LiteralText(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed != v || looksLikeCall(trimmed) || unquoteLiteral(trimmed) != trimmed {
		return quote(v)
	}
	return v
}

func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func needsParam(m Matcher) bool {
	switch m {
	case MatchRegex, MatchContentType, MatchDateTime, MatchDate, MatchTime:
		return true
	}
	return false
}

func defaultFormat(m Matcher) string {
	switch m {
	case MatchDateTime:
		return timefmt.DefaultDateTime
	case MatchDate:
		return timefmt.DefaultDate
	case MatchTime:
		return timefmt.DefaultTime
	}
	return ""
}
