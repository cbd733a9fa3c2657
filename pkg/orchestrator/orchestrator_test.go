package orchestrator_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-avrocontract/pkg/codec"
	"github.com/goliatone/go-avrocontract/pkg/content"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
	"github.com/goliatone/go-avrocontract/pkg/schema"
	"github.com/goliatone/go-avrocontract/pkg/testsupport"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

func newOrchestrator(t *testing.T, options ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()

	base := []orchestrator.Option{
		orchestrator.WithLoaderOptions(schema.WithFileSystem(testsupport.SchemaFS())),
	}
	return orchestrator.New(append(base, options...)...)
}

func TestConfigureItem(t *testing.T) {
	t.Parallel()

	orch := newOrchestrator(t)
	got, err := orch.Configure(testsupport.Context(), orchestrator.ConfigureRequest{
		Source:      schema.SourceFromFS("item.avsc"),
		Record:      "Item",
		ContentType: "avro/binary",
		Literal:     map[string]any{"name": "notEmpty('Item-41')", "id": "notEmpty('100')"},
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}

	if got.Contents.ContentType != "avro/binary; record=Item" || got.Contents.Hint != content.HintBinary {
		t.Fatalf("unexpected descriptor: %+v", got.Contents)
	}
	wantPayload := append(append([]byte{0x0e}, "Item-41"...), 0xc8, 0x01)
	if diff := cmp.Diff(wantPayload, got.Contents.Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"$.name", "$.id"}, got.Rules.Body().Paths()); diff != "" {
		t.Fatalf("rule paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{model.CategoryBody}, got.Rules.Categories()); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigureInteractionFromConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "order.avsc")
	if err := os.WriteFile(path, testsupport.MustReadSchema(t, "order.avsc"), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	config := map[string]any{
		orchestrator.KeySchema:      path,
		orchestrator.KeyRecordName:  "Order",
		orchestrator.KeyContentType: "avro/binary",
		"id":                        "notEmpty('100')",
		"names":                     "notEmpty('name-1')",
		"enabled":                   "matching(boolean, true)",
		"height":                    "matching(decimal, 15.8)",
		"width":                     "matching(number, 1.8)",
		"status":                    "matching(regex, 'CREATED|UPDATED', 'CREATED')",
		"address": map[string]any{
			"no":     "matching(integer, 121)",
			"street": "matching(equalTo, 'street name')",
		},
		"items": []any{
			map[string]any{"name": "notEmpty('Item-1')", "id": "notEmpty('1')"},
			map[string]any{"name": "notEmpty('Item-2')", "id": "notEmpty('2')"},
		},
		"userId": "notEmpty('20bef962-8cbd-4b8c-8337-97ae385ac45d')",
	}

	orch := orchestrator.New()
	got, err := orch.ConfigureInteraction(testsupport.Context(), "", config)
	if err != nil {
		t.Fatalf("configure interaction: %v", err)
	}
	if got.Contents.ContentType != "avro/binary; record=Order" {
		t.Fatalf("content type = %q", got.Contents.ContentType)
	}

	idRules := got.Rules.Body().Get("$.id")
	if len(idRules) != 1 || idRules[0].Type != model.RuleNotEmpty {
		t.Fatalf("rules at $.id = %v", idRules)
	}

	rec, err := orch.Resolve(testsupport.Context(), schema.SourceFromFile(path), "Order")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	decoded, err := codec.Decode(rec, got.Contents.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d records", len(decoded))
	}
	userID, _ := value.Lookup(decoded[0], fieldpath.MustParse("$.userId"))
	if userID.AsString() != "20bef962-8cbd-4b8c-8337-97ae385ac45d" {
		t.Fatalf("userId = %s", userID)
	}
	zip, _ := value.Lookup(decoded[0], fieldpath.MustParse("$.address.zipcode"))
	if !zip.IsNull() {
		t.Fatalf("zipcode = %s, want null", zip)
	}
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  map[string]any
		wantErr string
	}{
		{
			name:    "missing schema",
			config:  map[string]any{orchestrator.KeyRecordName: "Item"},
			wantErr: "pact:avro is required",
		},
		{
			name:    "missing record",
			config:  map[string]any{orchestrator.KeySchema: "item.avsc"},
			wantErr: "pact:record-name is required",
		},
		{
			name: "unknown key",
			config: map[string]any{
				orchestrator.KeySchema:     "item.avsc",
				orchestrator.KeyRecordName: "Item",
				"pact:proto":               "x",
			},
			wantErr: "unsupported configuration keys pact:proto",
		},
		{
			name:    "non-string record",
			config:  map[string]any{orchestrator.KeySchema: "item.avsc", orchestrator.KeyRecordName: 3},
			wantErr: "must be a string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := orchestrator.ParseConfig(tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	req, err := orchestrator.ParseConfig(map[string]any{
		orchestrator.KeySchema:     "schemas/item.avsc",
		orchestrator.KeyRecordName: "Item",
		"name":                     "notEmpty('a')",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if req.Source.Kind() != schema.SourceKindFile || req.Record != "Item" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if diff := cmp.Diff(map[string]any{"name": "notEmpty('a')"}, req.Literal); diff != "" {
		t.Fatalf("literal mismatch (-want +got):\n%s", diff)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context()
	orch := newOrchestrator(t)
	src := schema.SourceFromFS("item.avsc")

	interaction, err := orch.Configure(ctx, orchestrator.ConfigureRequest{
		Source:  src,
		Record:  "Item",
		Literal: map[string]any{"name": "notEmpty('Item-41')", "id": "matching(integer, 100)"},
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	rec, err := orch.Resolve(ctx, src, "Item")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	good, err := codec.EncodeAll(rec, []value.Value{
		value.Record(rec.FullName(),
			value.Field{Name: "name", Value: value.String("other")},
			value.Field{Name: "id", Value: value.Long(9)}),
		value.Record(rec.FullName(),
			value.Field{Name: "name", Value: value.String("")},
			value.Field{Name: "id", Value: value.Long(10)}),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	res, err := orch.Verify(ctx, orchestrator.VerifyRequest{
		Source:      src,
		Record:      "Item",
		ContentType: "avro/binary; record=Item",
		Payload:     good,
		Expected:    interaction.Contents.Payload,
		Rules:       interaction.Rules,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(res.Values) != 2 {
		t.Fatalf("decoded %d records, want 2", len(res.Values))
	}
	if res.OK() || len(res.Mismatches) != 1 || res.Mismatches[0].Path != "$.name" || res.Mismatches[0].Record != 1 {
		t.Fatalf("unexpected mismatches: %+v", res.Mismatches)
	}

	_, err = orch.Verify(ctx, orchestrator.VerifyRequest{
		Source:  src,
		Record:  "Item",
		Payload: good[:len(good)-1],
	})
	if !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}

	res, err = orch.Verify(ctx, orchestrator.VerifyRequest{
		Source:      src,
		Record:      "Item",
		ContentType: "avro/binary; record=Order",
		Payload:     interaction.Contents.Payload,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(res.Mismatches) != 1 || res.Mismatches[0].Rule != model.RuleContentType {
		t.Fatalf("expected a content type mismatch, got %v", res.Mismatches)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context()
	built := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	src := schema.SourceFromFS("kitchen.avsc")

	configure := newOrchestrator(t, orchestrator.WithClock(testsupport.FixedClock(built)))
	interaction, err := configure.Configure(ctx, orchestrator.ConfigureRequest{
		Source: src,
		Record: "Kitchen",
		Literal: testsupport.MustLiteral(t, `
count: 5
ratio: matching(decimal, 0.5)
payload: notEmpty('abc')
hash: abcd
labels:
  a: one
choice: matching(integer, 7)
day: matching(date, 'yyyy-MM-dd', '2020-01-02')
createdAt: matching(datetime, "yyyy-MM-dd'T'HH:mm:ss")
price: matching(decimal, 123.45)
`),
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}

	generate := newOrchestrator(t, orchestrator.WithClock(testsupport.FixedClock(later)))
	desc, err := generate.Generate(ctx, orchestrator.GenerateRequest{
		Source:     src,
		Record:     "Kitchen",
		Payload:    interaction.Contents.Payload,
		Generators: interaction.Generators,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if desc.ContentType != "avro/binary; record=Kitchen" {
		t.Fatalf("content type = %q", desc.ContentType)
	}
	if bytes.Equal(desc.Payload, interaction.Contents.Payload) {
		t.Fatalf("generators did not change the payload")
	}

	rec, err := generate.Resolve(ctx, src, "Kitchen")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	decoded, err := codec.Decode(rec, desc.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	createdAt, _ := value.Lookup(decoded[0], fieldpath.MustParse("$.createdAt"))
	if createdAt.AsLong() != later.UnixMilli() {
		t.Fatalf("createdAt = %d, want %d", createdAt.AsLong(), later.UnixMilli())
	}
}

func TestConfigureTextualFormat(t *testing.T) {
	t.Parallel()

	orch := newOrchestrator(t, orchestrator.WithContentRegistry(content.NewRegistry("avro")))
	got, err := orch.Configure(testsupport.Context(), orchestrator.ConfigureRequest{
		Source:  schema.SourceFromFS("item.avsc"),
		Record:  "com.example.Item",
		Literal: map[string]any{"name": "a", "id": "1"},
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if got.Contents.Hint != content.HintText || got.Contents.ContentType != "avro/json; record=Item" {
		t.Fatalf("unexpected descriptor: %+v", got.Contents)
	}
	if string(got.Contents.Payload) != `{"id":1,"name":"a"}` {
		t.Fatalf("payload = %s", got.Contents.Payload)
	}

	res, err := orch.Verify(testsupport.Context(), orchestrator.VerifyRequest{
		Source:      schema.SourceFromFS("item.avsc"),
		Record:      "Item",
		ContentType: got.Contents.ContentType,
		Payload:     []byte("{\"id\":1,\"name\":\"a\"}\n{\"id\":2,\"name\":\"b\"}"),
		Rules:       got.Rules,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(res.Values) != 2 || !res.OK() {
		t.Fatalf("unexpected verify result: %+v", res)
	}
	if id, _ := res.Values[1].Get("id"); id.AsLong() != 2 {
		t.Fatalf("second record id = %v", id)
	}

	_, err = orch.Verify(testsupport.Context(), orchestrator.VerifyRequest{
		Source:      schema.SourceFromFS("item.avsc"),
		Record:      "Item",
		ContentType: got.Contents.ContentType,
		Payload:     []byte(`{"id":"x"}`),
	})
	if !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

const blobSchema = `{
  "type": "record",
  "name": "Blob",
  "fields": [
    {"name": "payload", "type": "bytes"},
    {"name": "hash", "type": {"type": "fixed", "name": "H", "size": 4}},
    {"name": "price", "type": {"type": "bytes", "logicalType": "decimal", "precision": 6, "scale": 2}},
    {"name": "delta", "type": {"type": "fixed", "name": "D", "size": 4, "logicalType": "decimal", "precision": 8, "scale": 1}},
    {"name": "count", "type": "int"}
  ]
}`

func TestTextualRoundTripKeepsBinaryFields(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context()
	src := schema.SourceFromBytes([]byte(blobSchema))
	orch := newOrchestrator(t, orchestrator.WithContentRegistry(content.NewRegistry("avro")))
	got, err := orch.Configure(ctx, orchestrator.ConfigureRequest{
		Source: src,
		Record: "Blob",
		Literal: map[string]any{
			"payload": "notEmpty('hi')",
			"hash":    "abcd",
			"price":   "12.50",
			"delta":   "-1.5",
			"count":   "matching(integer, '7')",
		},
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if got.Contents.Hint != content.HintText {
		t.Fatalf("expected a textual descriptor, got %+v", got.Contents)
	}

	res, err := orch.Verify(ctx, orchestrator.VerifyRequest{
		Source:      src,
		Record:      "Blob",
		ContentType: got.Contents.ContentType,
		Payload:     got.Contents.Payload,
		Rules:       got.Rules,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.OK() || len(res.Values) != 1 {
		t.Fatalf("unexpected verify result: %+v", res)
	}
	if diff := cmp.Diff(got.Value, res.Values[0]); diff != "" {
		t.Fatalf("textual round trip mismatch (-want +got):\n%s", diff)
	}
	price, _ := res.Values[0].Get("price")
	if diff := cmp.Diff([]byte{0x04, 0xe2}, price.AsBytes()); diff != "" {
		t.Fatalf("decimal bytes mismatch (-want +got):\n%s", diff)
	}

	desc, err := orch.Generate(ctx, orchestrator.GenerateRequest{
		Source:      src,
		Record:      "Blob",
		ContentType: got.Contents.ContentType,
		Payload:     got.Contents.Payload,
		Generators:  got.Generators,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(desc.Payload) != string(got.Contents.Payload) {
		t.Fatalf("generate changed the payload:\nwant %s\ngot  %s", got.Contents.Payload, desc.Payload)
	}
}

func TestResolutionFailures(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	orch := newOrchestrator(t, orchestrator.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	_, err := orch.Configure(testsupport.Context(), orchestrator.ConfigureRequest{
		Source:  schema.SourceFromFS("item.avsc"),
		Record:  "Missing",
		Literal: map[string]any{},
	})
	if !errors.Is(err, model.ErrSchemaResolution) {
		t.Fatalf("expected schema resolution error, got %v", err)
	}
	if !strings.Contains(logs.String(), "schema resolution failed") {
		t.Fatalf("expected a warning log, got %q", logs.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.Initialize(ctx, "host", "1.0"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestInitializeAndRecords(t *testing.T) {
	t.Parallel()

	orch := newOrchestrator(t)
	entries, err := orch.Initialize(testsupport.Context(), "pact-jvm", "4.6.0")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(entries) != 2 || entries[0].Type != orchestrator.EntryContentMatcher || entries[0].Key != "avro" {
		t.Fatalf("unexpected catalogue: %+v", entries)
	}

	records, err := orch.Records(testsupport.Context(), schema.SourceFromFS("order.avsc"))
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	want := []string{"com.example.avro.Item", "com.example.avro.MailAddress", "com.example.avro.Order"}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}
