package matchers_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-avrocontract/pkg/builder"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/matchers"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/testsupport"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

func TestVerifyNotEmpty(t *testing.T) {
	t.Parallel()

	schema := testsupport.MustRecord(t, "item.avsc", "Item")
	res, err := builder.New().Build(schema, map[string]any{
		"name": "notEmpty('Item-41')",
		"id":   "notEmpty('100')",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got := matchers.Verify(res.Rules.Body(), res.Value, res.Value); len(got) != 0 {
		t.Fatalf("expected no mismatches, got %v", got)
	}

	empty, err := value.Replace(res.Value, fieldpath.MustParse("$.name"), value.String(""))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	got := matchers.Verify(res.Rules.Body(), res.Value, empty)
	want := []matchers.Mismatch{{
		Path:     "$.name",
		Rule:     model.RuleNotEmpty,
		Expected: `"Item-41"`,
		Actual:   `""`,
		Message:  "expected a non-empty string",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatches (-want +got):\n%s", diff)
	}
}

func TestVerifyRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    model.MatchingRule
		want    value.Value
		actual  value.Value
		failing bool
	}{
		{name: "regex ok", rule: model.NewRule(model.RuleRegex, "regex", `\d+`), actual: value.String("123")},
		{name: "regex partial", rule: model.NewRule(model.RuleRegex, "regex", `\d+`), actual: value.String("12a"), failing: true},
		{name: "regex on number", rule: model.NewRule(model.RuleRegex, "regex", `\d+`), actual: value.Long(44)},
		{name: "type ok", rule: model.NewRule(model.RuleType), want: value.String("a"), actual: value.String("b")},
		{name: "type differs", rule: model.NewRule(model.RuleType), want: value.String("a"), actual: value.Long(1), failing: true},
		{name: "integer", rule: model.NewRule(model.RuleInteger), actual: value.Int(3)},
		{name: "integer from double", rule: model.NewRule(model.RuleInteger), actual: value.Double(3.5), failing: true},
		{name: "number", rule: model.NewRule(model.RuleNumber), actual: value.Float(1.5)},
		{name: "number from string", rule: model.NewRule(model.RuleNumber), actual: value.String("x"), failing: true},
		{name: "decimal", rule: model.NewRule(model.RuleDecimal), actual: value.Double(1.25)},
		{name: "decimal text", rule: model.NewRule(model.RuleDecimal), actual: value.String("12"), failing: true},
		{name: "boolean", rule: model.NewRule(model.RuleBoolean), actual: value.Bool(false)},
		{name: "boolean text", rule: model.NewRule(model.RuleBoolean), actual: value.String("yes"), failing: true},
		{name: "equality", rule: model.NewRule(model.RuleEquality), want: value.String("a"), actual: value.String("a")},
		{name: "equality differs", rule: model.NewRule(model.RuleEquality), want: value.String("a"), actual: value.String("b"), failing: true},
		{name: "semver", rule: model.NewRule(model.RuleSemver), actual: value.String("1.2.3-rc.1")},
		{name: "semver invalid", rule: model.NewRule(model.RuleSemver), actual: value.String("1.2"), failing: true},
		{name: "content type json", rule: model.NewRule(model.RuleContentType, "value", "application/json"), actual: value.String(`{"a":1}`)},
		{name: "content type mismatch", rule: model.NewRule(model.RuleContentType, "value", "application/json"), actual: value.Bytes([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}), failing: true},
		{name: "datetime text", rule: model.NewRule(model.RuleDateTime, "format", "yyyy-MM-dd'T'HH:mm:ss"), actual: value.String("2024-01-02T03:04:05")},
		{name: "datetime wrong format", rule: model.NewRule(model.RuleDateTime, "format", "yyyy-MM-dd'T'HH:mm:ss"), actual: value.String("02/01/2024"), failing: true},
		{name: "date numeric", rule: model.NewRule(model.RuleDate, "format", "yyyy-MM-dd"), actual: value.Int(19000)},
		{name: "include", rule: model.NewRule(model.RuleInclude, "value", "ell"), actual: value.String("hello")},
		{name: "include missing", rule: model.NewRule(model.RuleInclude, "value", "xyz"), actual: value.String("hello"), failing: true},
		{name: "not-empty null", rule: model.NewRule(model.RuleNotEmpty), actual: value.Null(), failing: true},
		{name: "not-empty array", rule: model.NewRule(model.RuleNotEmpty), actual: value.Array(), failing: true},
		{name: "unknown rule", rule: model.NewRule("levenshtein"), actual: value.String("a"), failing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rules := model.NewPathIndex[model.MatchingRule]()
			rules.Add("$.field", tt.rule)
			expected := value.Record("R")
			if tt.want.Kind() != value.KindNull {
				expected = value.Record("R", value.Field{Name: "field", Value: tt.want})
			}
			actual := value.Record("R", value.Field{Name: "field", Value: tt.actual})

			got := matchers.Verify(rules, expected, actual)
			if tt.failing && len(got) != 1 {
				t.Fatalf("expected one mismatch, got %v", got)
			}
			if !tt.failing && len(got) != 0 {
				t.Fatalf("expected no mismatches, got %v", got)
			}
		})
	}
}

func TestVerifyMissingPath(t *testing.T) {
	t.Parallel()

	rules := model.NewPathIndex[model.MatchingRule]()
	rules.Add("$.items.3.id", model.NewRule(model.RuleInteger))

	got := matchers.Verify(rules, value.Value{}, value.Record("R"))
	if len(got) != 1 || got[0].Message != "no value at path" {
		t.Fatalf("unexpected mismatches: %v", got)
	}
}

func TestVerifyAllRecordsIndex(t *testing.T) {
	t.Parallel()

	rules := model.NewPathIndex[model.MatchingRule]()
	rules.Add("$.name", model.NewRule(model.RuleNotEmpty))

	records := []value.Value{
		value.Record("R", value.Field{Name: "name", Value: value.String("ok")}),
		value.Record("R", value.Field{Name: "name", Value: value.String("")}),
	}
	got := matchers.VerifyAll(rules, value.Value{}, records)
	if len(got) != 1 || got[0].Path != "$.name" || got[0].Record != 1 {
		t.Fatalf("unexpected mismatches: %+v", got)
	}
	if !matchers.Known(model.RuleSemver) || matchers.Known("levenshtein") {
		t.Fatalf("Known reported the wrong rules")
	}
}
