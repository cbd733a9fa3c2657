package scaffold_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hamba/avro/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-avrocontract/pkg/scaffold"
	"github.com/goliatone/go-avrocontract/pkg/testsupport"
)

type stubDriver struct {
	inputs   []string
	confirms []bool
	selects  []string

	inputPos, confirmPos, selectPos int

	rejected []string
	messages []string
}

func (s *stubDriver) Input(_ context.Context, cfg scaffold.InputConfig) (string, error) {
	for {
		if s.inputPos >= len(s.inputs) {
			return "", fmt.Errorf("unexpected input prompt %q", cfg.Message)
		}
		v := s.inputs[s.inputPos]
		s.inputPos++
		if cfg.Validator != nil {
			if err := cfg.Validator(v); err != nil {
				s.rejected = append(s.rejected, v)
				continue
			}
		}
		return v, nil
	}
}

func (s *stubDriver) Confirm(_ context.Context, cfg scaffold.ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirms) {
		return false, fmt.Errorf("unexpected confirm prompt %q", cfg.Message)
	}
	v := s.confirms[s.confirmPos]
	s.confirmPos++
	return v, nil
}

func (s *stubDriver) Select(_ context.Context, cfg scaffold.SelectConfig) (int, error) {
	if s.selectPos >= len(s.selects) {
		return 0, fmt.Errorf("unexpected select prompt %q", cfg.Message)
	}
	want := s.selects[s.selectPos]
	s.selectPos++
	for i, opt := range cfg.Options {
		if opt == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q is not offered by %q: %v", want, cfg.Message, cfg.Options)
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubDriver) exhausted(t *testing.T) {
	t.Helper()

	if s.inputPos != len(s.inputs) || s.confirmPos != len(s.confirms) || s.selectPos != len(s.selects) {
		t.Fatalf("unused script: inputs %d/%d confirms %d/%d selects %d/%d",
			s.inputPos, len(s.inputs), s.confirmPos, len(s.confirms), s.selectPos, len(s.selects))
	}
}

func TestScaffoldItem(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		selects: []string{"notEmpty", scaffold.Literal},
		inputs:  []string{"Item-41", "abc", "100"},
	}
	res, err := scaffold.New(driver).Scaffold(testsupport.Context(), testsupport.MustRecord(t, "item.avsc", "Item"))
	if err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	driver.exhausted(t)

	want := map[string]any{"name": "notEmpty('Item-41')", "id": "100"}
	if diff := cmp.Diff(want, res.Fields.Map()); diff != "" {
		t.Fatalf("literal mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"abc"}, driver.rejected); diff != "" {
		t.Fatalf("rejected examples mismatch (-want +got):\n%s", diff)
	}
	if len(driver.messages) != 1 || !strings.Contains(driver.messages[0], "com.example.Item") {
		t.Fatalf("unexpected info messages: %v", driver.messages)
	}
	if !res.Built.Rules.Body().Has("$.name") || res.Built.Rules.Body().Has("$.id") {
		t.Fatalf("unexpected rules: %+v", res.Built.Rules)
	}

	doc, err := res.Document("schemas/item.avsc", "avro/binary")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	text := string(doc)
	order := []string{"pact:avro:", "pact:record-name:", "pact:content-type:", "name:", "id:"}
	last := -1
	for _, key := range order {
		i := strings.Index(text, key)
		if i <= last {
			t.Fatalf("key %q out of order in:\n%s", key, text)
		}
		last = i
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(doc, &decoded); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	wantDoc := map[string]any{
		"pact:avro":         "schemas/item.avsc",
		"pact:record-name":  "Item",
		"pact:content-type": "avro/binary",
		"name":              "notEmpty('Item-41')",
		"id":                "100",
	}
	if diff := cmp.Diff(wantDoc, decoded); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestScaffoldNestedRecord(t *testing.T) {
	t.Parallel()

	driver := &stubDriver{
		selects: []string{
			"integer", "regex", "boolean", scaffold.Literal, "number", "type",
			scaffold.Literal, "notEmpty",
			scaffold.Literal, scaffold.Literal,
			scaffold.Literal,
		},
		inputs: []string{
			"7", "[a-z]+", "ABC", "abc", "true", "1.5", "2.5", "CREATED",
			"12", "Main",
			"a", "1",
			"0f8fad5b-d9cb-469f-a165-70867728950e",
		},
		confirms: []bool{false, true, false},
	}
	res, err := scaffold.New(driver).Scaffold(testsupport.Context(), testsupport.MustRecord(t, "order.avsc", "Order"))
	if err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	driver.exhausted(t)

	want := map[string]any{
		"id":      "matching(integer, '7')",
		"names":   "matching(regex, '[a-z]+', 'abc')",
		"enabled": "matching(boolean, 'true')",
		"height":  "1.5",
		"width":   "matching(number, '2.5')",
		"status":  "matching(type, 'CREATED')",
		"address": map[string]any{
			"no":      "12",
			"street":  "notEmpty('Main')",
			"zipcode": nil,
		},
		"items":  []any{map[string]any{"name": "a", "id": "1"}},
		"userId": "0f8fad5b-d9cb-469f-a165-70867728950e",
	}
	if diff := cmp.Diff(want, res.Fields.Map()); diff != "" {
		t.Fatalf("literal mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ABC"}, driver.rejected); diff != "" {
		t.Fatalf("rejected examples mismatch (-want +got):\n%s", diff)
	}
	for _, path := range []string{"$.id", "$.names", "$.address.street"} {
		if !res.Built.Rules.Body().Has(path) {
			t.Fatalf("missing rule at %s: %+v", path, res.Built.Rules)
		}
	}
}

const eventSchema = `{
  "type": "record",
  "name": "Event",
  "fields": [
    {"name": "kind", "type": "string", "default": "created"},
    {"name": "tags", "type": {"type": "map", "values": "int"}},
    {"name": "payload", "type": ["int", "string", "null"]},
    {"name": "at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
  ]
}`

func TestScaffoldDefaultsMapsAndUnions(t *testing.T) {
	t.Parallel()

	schema, err := avro.Parse(eventSchema)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	rec, ok := schema.(*avro.RecordSchema)
	if !ok {
		t.Fatalf("expected a record schema, got %T", schema)
	}

	driver := &stubDriver{
		confirms: []bool{true, true, true, false},
		selects:  []string{scaffold.Literal, "integer", "string", "notEmpty", "datetime"},
		inputs:   []string{"a", "1", "a", "b", "2", "x", "yyyy-MM-dd'T'HH:mm:ss", ""},
	}
	clock := testsupport.FixedClock(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	res, err := scaffold.New(driver, scaffold.WithClock(clock)).Scaffold(testsupport.Context(), rec)
	if err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	driver.exhausted(t)

	want := map[string]any{
		"tags":    map[string]any{"a": "1", "b": "matching(integer, '2')"},
		"payload": "notEmpty('x')",
		"at":      `matching(datetime, 'yyyy-MM-dd\'T\'HH:mm:ss')`,
	}
	if diff := cmp.Diff(want, res.Fields.Map()); diff != "" {
		t.Fatalf("literal mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, driver.rejected); diff != "" {
		t.Fatalf("rejected keys mismatch (-want +got):\n%s", diff)
	}
	if !res.Built.Generators.Body().Has("$.at") {
		t.Fatalf("expected a datetime generator at $.at: %+v", res.Built.Generators)
	}
	at, _ := res.Built.Value.Get("at")
	if got, want := at.AsLong(), clock().UnixMilli(); got != want {
		t.Fatalf("at = %d, want %d", got, want)
	}
}

func TestScaffoldAborted(t *testing.T) {
	t.Parallel()

	driver := &abortingDriver{stubDriver: stubDriver{}}
	_, err := scaffold.New(driver).Scaffold(testsupport.Context(), testsupport.MustRecord(t, "item.avsc", "Item"))
	if !errors.Is(err, scaffold.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	if _, err := scaffold.New(nil).Scaffold(testsupport.Context(), testsupport.MustRecord(t, "item.avsc", "Item")); err == nil {
		t.Fatalf("expected error for missing driver")
	}
}

type abortingDriver struct {
	stubDriver
}

func (a *abortingDriver) Select(context.Context, scaffold.SelectConfig) (int, error) {
	return 0, scaffold.ErrAborted
}
