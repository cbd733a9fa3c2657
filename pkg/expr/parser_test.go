package expr_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-avrocontract/pkg/expr"
	"github.com/goliatone/go-avrocontract/pkg/model"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want expr.Expression
	}{
		{"notEmpty('Item-41')", expr.Expression{Kind: expr.KindNotEmpty, Value: "Item-41", HasValue: true}},
		{"notEmpty(\"100\")", expr.Expression{Kind: expr.KindNotEmpty, Value: "100", HasValue: true}},
		{"notEmpty(100)", expr.Expression{Kind: expr.KindNotEmpty, Value: "100", HasValue: true}},
		{"matching(integer, 121)", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchInteger, Value: "121", HasValue: true}},
		{"matching(decimal, 15.8)", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchDecimal, Value: "15.8", HasValue: true}},
		{"matching(boolean, true)", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchBoolean, Value: "true", HasValue: true}},
		{"matching(equalTo, 'CREATED')", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchEqualTo, Value: "CREATED", HasValue: true}},
		{`matching(regex, '\d+', '100')`, expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchRegex, Param: `\d+`, Value: "100", HasValue: true}},
		{"matching(contentType, 'application/json', '{}')", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchContentType, Param: "application/json", Value: "{}", HasValue: true}},
		{"matching(semver, '1.2.3-rc.1')", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchSemver, Value: "1.2.3-rc.1", HasValue: true}},
		{"matching(date, 'yyyy-MM-dd', '2000-01-31')", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchDate, Param: "yyyy-MM-dd", Value: "2000-01-31", HasValue: true}},
		{"matching(datetime, 'yyyy-MM-dd HH:mm')", expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchDateTime, Param: "yyyy-MM-dd HH:mm"}},
		{"fromProviderState('${id}', '100')", expr.Expression{Kind: expr.KindProviderState, Param: "${id}", Value: "100", HasValue: true}},
		{"plain text", expr.Literal("plain text")},
		{"'quoted, with comma'", expr.Literal("quoted, with comma")},
		{"", expr.Literal("")},
	}

	for _, tc := range cases {
		got, err := expr.Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("parse %q mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"notEmpty()",
		"notEmpty('a', 'b')",
		"matching(unknown, 'x')",
		"matching(integer)",
		"matching(integer, 'abc')",
		"matching(decimal, 'x1')",
		"matching(boolean, 'yes')",
		"matching(regex, '[a-z]+', '123')",
		"matching(regex, '(', 'x')",
		"matching(semver, '1.2')",
		"matching(contentType, '', 'x')",
		"matching(date, 'yyyy-MM-dd', '31/01/2000')",
		"matching(type, 'a', 'b')",
		"notEmpty('open)",
		"notEmpty(null)",
		"frobnicate(1)",
		"notEmpty('a') notEmpty('b')",
	}

	for _, in := range inputs {
		_, err := expr.Parse(in)
		if err == nil {
			t.Fatalf("expected parse error for %q", in)
		}
		if !errors.Is(err, model.ErrParse) {
			t.Fatalf("error for %q is not ErrParse: %v", in, err)
		}
		var pe *model.ParseError
		if !errors.As(err, &pe) || pe.Input != in {
			t.Fatalf("error for %q does not carry input: %v", in, err)
		}
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	list, err := expr.ParseList("notEmpty('a'), matching(regex, '[a-z]+', 'abc')")
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(list))
	}
	example, ok := expr.Example(list)
	if !ok || example != "abc" {
		t.Fatalf("example = %q %v", example, ok)
	}
	if _, err := expr.Parse("notEmpty('a'), notEmpty('b')"); err == nil {
		t.Fatalf("Parse should reject multiple definitions")
	}
}

func TestRulesAndGenerators(t *testing.T) {
	t.Parallel()

	e := expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchRegex, Param: `\d+`, Value: "1", HasValue: true}
	rule, ok := e.Rule()
	if !ok {
		t.Fatalf("expected rule")
	}
	if diff := cmp.Diff(model.NewRule(model.RuleRegex, "regex", `\d+`), rule); diff != "" {
		t.Fatalf("rule mismatch (-want +got):\n%s", diff)
	}
	if _, ok := e.Generator(); ok {
		t.Fatalf("regex must not produce a generator")
	}

	dt := expr.Expression{Kind: expr.KindMatching, Matcher: expr.MatchDateTime, Param: "yyyy"}
	gen, ok := dt.Generator()
	if !ok || gen.Type != model.GeneratorDateTime {
		t.Fatalf("expected DateTime generator, got %+v %v", gen, ok)
	}
	dt.Value, dt.HasValue = "2020", true
	if _, ok := dt.Generator(); ok {
		t.Fatalf("datetime with example must not generate")
	}

	ps := expr.Expression{Kind: expr.KindProviderState, Param: "${id}", Value: "1", HasValue: true}
	if _, ok := ps.Rule(); ok {
		t.Fatalf("provider state must not record a rule")
	}
	if gen, ok := ps.Generator(); !ok || gen.Type != model.GeneratorProviderState {
		t.Fatalf("expected ProviderState generator, got %+v", gen)
	}

	if _, ok := expr.Literal("x").Rule(); ok {
		t.Fatalf("literal must not record a rule")
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"notEmpty('it\\'s')",
		`matching(regex, '\\d+', '12')`,
		"matching(datetime, 'yyyy-MM-dd')",
		"fromProviderState('${id}', '7')",
		`"notEmpty('x')"`,
		"' padded '",
	} {
		first, err := expr.Parse(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		second, err := expr.Parse(first.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", first.String(), err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("round trip %q mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestLiteralText(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"plain", "notEmpty('x')", " padded", "'quoted'", "it's", ""} {
		got, err := expr.Parse(expr.LiteralText(in))
		if err != nil {
			t.Fatalf("parse %q: %v", expr.LiteralText(in), err)
		}
		if got.Kind != expr.KindLiteral || got.Value != in {
			t.Fatalf("LiteralText(%q) read back as %+v", in, got)
		}
	}
}
