// Package matchers replays recorded matching rules against a decoded message.
//
// Each rule is checked at its path in the actual value. Rules that compare
// against the interaction (type, equality) use the expected value found at the
// same path. Time rules accept numeric values, which is how logical date and
// timestamp fields decode.
package matchers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-avrocontract/pkg/expr"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/timefmt"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// Mismatch is one failed rule.
type Mismatch struct {
	// Record is the index of the record in a multi-record payload.
	Record   int    `json:"record,omitempty"`
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Message  string `json:"mismatch"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s: %s", m.Path, m.Rule, m.Message)
}

type check func(rule model.MatchingRule, expected value.Value, hasExpected bool, actual value.Value) string

var checks = map[string]check{
	model.RuleNotEmpty:    checkNotEmpty,
	model.RuleRegex:       checkRegex,
	model.RuleType:        checkType,
	model.RuleNumber:      checkNumber,
	model.RuleInteger:     checkInteger,
	model.RuleDecimal:     checkDecimal,
	model.RuleBoolean:     checkBoolean,
	model.RuleEquality:    checkEquality,
	model.RuleSemver:      checkSemver,
	model.RuleContentType: checkContentType,
	model.RuleDateTime:    checkTime,
	model.RuleDate:        checkTime,
	model.RuleTime:        checkTime,
	model.RuleInclude:     checkInclude,
}

// Known reports whether name is a matching rule this package can replay.
func Known(name string) bool {
	_, ok := checks[name]
	return ok
}

// Verify checks every rule in rules against actual. expected is the value the
// interaction was configured with; it may be the zero Value when unknown.
// Mismatches are returned in rule order.
func Verify(rules *model.PathIndex[model.MatchingRule], expected, actual value.Value) []Mismatch {
	var out []Mismatch
	for _, raw := range rules.Paths() {
		path, err := fieldpath.Parse(raw)
		if err != nil {
			out = append(out, Mismatch{Path: raw, Rule: "path", Message: err.Error()})
			continue
		}
		got, ok := value.Lookup(actual, path)
		want, hasWant := value.Lookup(expected, path)
		for _, rule := range rules.Get(raw) {
			if !ok {
				out = append(out, Mismatch{Path: raw, Rule: rule.Type, Message: "no value at path"})
				continue
			}
			fn, known := checks[rule.Type]
			if !known {
				out = append(out, Mismatch{Path: raw, Rule: rule.Type, Message: "unknown matching rule"})
				continue
			}
			if msg := fn(rule, want, hasWant, got); msg != "" {
				m := Mismatch{Path: raw, Rule: rule.Type, Actual: got.String(), Message: msg}
				if hasWant {
					m.Expected = want.String()
				}
				out = append(out, m)
			}
		}
	}
	return out
}

// VerifyAll checks rules against several decoded records. Each mismatch
// carries the index of its record; paths stay rooted at $.
func VerifyAll(rules *model.PathIndex[model.MatchingRule], expected value.Value, actual []value.Value) []Mismatch {
	var out []Mismatch
	for i, v := range actual {
		for _, m := range Verify(rules, expected, v) {
			m.Record = i
			out = append(out, m)
		}
	}
	return out
}

// text returns the textual form of a scalar.
func text(v value.Value) (string, bool) {
	switch v.Kind() {
	case value.KindString, value.KindEnum:
		return v.AsString(), true
	case value.KindBytes, value.KindFixed:
		return string(v.AsBytes()), true
	case value.KindBoolean:
		return strconv.FormatBool(v.AsBool()), true
	case value.KindInt:
		return strconv.FormatInt(int64(v.AsInt()), 10), true
	case value.KindLong:
		return strconv.FormatInt(v.AsLong(), 10), true
	case value.KindFloat:
		return strconv.FormatFloat(float64(v.AsFloat()), 'g', -1, 32), true
	case value.KindDouble:
		return strconv.FormatFloat(v.AsDouble(), 'g', -1, 64), true
	}
	return "", false
}

func param(rule model.MatchingRule, key string) string {
	v, ok := rule.Param(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func checkNotEmpty(_ model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	switch actual.Kind() {
	case value.KindNull:
		return "expected a non-empty value, got null"
	case value.KindString, value.KindBytes, value.KindArray, value.KindMap:
		if actual.Len() == 0 {
			return fmt.Sprintf("expected a non-empty %s", actual.Kind())
		}
	}
	return ""
}

func checkRegex(rule model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	pattern := param(rule, "regex")
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return fmt.Sprintf("invalid regex %q: %v", pattern, err)
	}
	s, ok := text(actual)
	if !ok {
		return fmt.Sprintf("expected a scalar matching %q, got %s", pattern, actual.Kind())
	}
	if !re.MatchString(s) {
		return fmt.Sprintf("%q does not match %q", s, pattern)
	}
	return ""
}

func checkType(_ model.MatchingRule, expected value.Value, hasExpected bool, actual value.Value) string {
	if !hasExpected {
		return ""
	}
	if expected.Kind() != actual.Kind() {
		return fmt.Sprintf("expected a %s, got %s", expected.Kind(), actual.Kind())
	}
	return ""
}

func checkNumber(_ model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	switch actual.Kind() {
	case value.KindInt, value.KindLong, value.KindFloat, value.KindDouble:
		return ""
	case value.KindString:
		if _, err := strconv.ParseFloat(actual.AsString(), 64); err == nil {
			return ""
		}
	}
	return fmt.Sprintf("expected a number, got %s", actual.Kind())
}

func checkInteger(_ model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	switch actual.Kind() {
	case value.KindInt, value.KindLong:
		return ""
	case value.KindString:
		if _, err := strconv.ParseInt(actual.AsString(), 10, 64); err == nil {
			return ""
		}
	}
	return fmt.Sprintf("expected an integer, got %s", actual)
}

func checkDecimal(_ model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	switch actual.Kind() {
	case value.KindFloat, value.KindDouble, value.KindBytes, value.KindFixed:
		return ""
	case value.KindString:
		if _, err := strconv.ParseFloat(actual.AsString(), 64); err == nil && strings.Contains(actual.AsString(), ".") {
			return ""
		}
	}
	return fmt.Sprintf("expected a decimal, got %s", actual)
}

func checkBoolean(_ model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	if actual.Kind() == value.KindBoolean {
		return ""
	}
	if actual.Kind() == value.KindString && (actual.AsString() == "true" || actual.AsString() == "false") {
		return ""
	}
	return fmt.Sprintf("expected a boolean, got %s", actual)
}

func checkEquality(_ model.MatchingRule, expected value.Value, hasExpected bool, actual value.Value) string {
	if !hasExpected {
		return "no expected value to compare with"
	}
	if !expected.Equal(actual) {
		return fmt.Sprintf("expected %s, got %s", expected, actual)
	}
	return ""
}

func checkSemver(_ model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	s, ok := text(actual)
	if !ok || !expr.ValidSemver(s) {
		return fmt.Sprintf("%s is not a semantic version", actual)
	}
	return ""
}

func checkContentType(rule model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	want := param(rule, "value")
	var data []byte
	switch actual.Kind() {
	case value.KindBytes, value.KindFixed:
		data = actual.AsBytes()
	case value.KindString:
		data = []byte(actual.AsString())
	default:
		return fmt.Sprintf("expected content of type %s, got %s", want, actual.Kind())
	}
	detected := mimetype.Detect(data)
	if !detected.Is(want) {
		return fmt.Sprintf("expected content of type %s, detected %s", want, detected.String())
	}
	return ""
}

func checkTime(rule model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	switch actual.Kind() {
	case value.KindInt, value.KindLong:
		return ""
	case value.KindString:
		format := param(rule, "format")
		if _, err := timefmt.Parse(format, actual.AsString()); err != nil {
			return err.Error()
		}
		return ""
	}
	return fmt.Sprintf("expected a %s, got %s", rule.Type, actual.Kind())
}

func checkInclude(rule model.MatchingRule, _ value.Value, _ bool, actual value.Value) string {
	want := param(rule, "value")
	s, ok := text(actual)
	if !ok || !strings.Contains(s, want) {
		return fmt.Sprintf("%s does not include %q", actual, want)
	}
	return ""
}
