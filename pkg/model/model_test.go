package model_test

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-avrocontract/pkg/model"
)

func TestPathIndexKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	idx := model.NewPathIndex[model.MatchingRule]()
	idx.Add("$.names.1", model.NewRule(model.RuleNotEmpty))
	idx.Add("$.id", model.NewRule(model.RuleInteger))
	idx.Add("$.names.1", model.NewRule(model.RuleRegex, "regex", "^n"))

	if diff := cmp.Diff([]string{"$.names.1", "$.id"}, idx.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	rules := idx.Get("$.names.1")
	if len(rules) != 2 || rules[0].Type != model.RuleNotEmpty || rules[1].Type != model.RuleRegex {
		t.Fatalf("unexpected rule order: %+v", rules)
	}
}

func TestPathIndexJSON(t *testing.T) {
	t.Parallel()

	rules := model.RuleSet{}
	rules.Body().Add("$.zeta", model.NewRule(model.RuleNotEmpty))
	rules.Body().Add("$.alpha", model.NewRule(model.RuleRegex, "regex", "\\d+"))

	data, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"body":{"$.zeta":[{"match":"not-empty"}],"$.alpha":[{"match":"regex","regex":"\\d+"}]}}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}

	var decoded model.RuleSet
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"$.zeta", "$.alpha"}, decoded.Body().Paths()); diff != "" {
		t.Fatalf("decoded paths mismatch (-want +got):\n%s", diff)
	}
	got := decoded.Body().Get("$.alpha")
	if diff := cmp.Diff([]model.MatchingRule{{Type: model.RuleRegex, Values: map[string]any{"regex": "\\d+"}}}, got); diff != "" {
		t.Fatalf("decoded rule mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratorJSON(t *testing.T) {
	t.Parallel()

	gen := model.NewGenerator(model.GeneratorDateTime, "format", "yyyy-MM-dd'T'HH:mm:ss")
	data, err := json.Marshal(gen)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded model.Generator
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(gen, decoded); diff != "" {
		t.Fatalf("generator mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"parse", &model.ParseError{Input: "x(", Pos: 2, Msg: "unexpected end"}, model.ErrParse},
		{"unknown", model.NewFieldError(model.ErrUnknownField, "$.nope", "not in schema"), model.ErrUnknownField},
		{"mismatch", model.NewFieldError(model.ErrTypeMismatch, "$.id", "want long"), model.ErrTypeMismatch},
		{"range", model.NewFieldError(model.ErrRange, "$.id", "overflow"), model.ErrRange},
		{"schema", &model.SchemaResolutionError{Source: "a.avsc", Record: "Order"}, model.ErrSchemaResolution},
		{"payload", &model.MalformedPayloadError{Offset: 3, Msg: "truncated"}, model.ErrMalformedPayload},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if !errors.Is(tc.err, tc.want) {
				t.Fatalf("errors.Is(%v, %v) = false", tc.err, tc.want)
			}
			if errors.Is(tc.err, model.ErrMalformedPayload) && tc.want != model.ErrMalformedPayload {
				t.Fatalf("unexpected match with ErrMalformedPayload")
			}
		})
	}
}
