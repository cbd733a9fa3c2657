package plugin_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-avrocontract/pkg/content"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
	"github.com/goliatone/go-avrocontract/pkg/plugin"
	"github.com/goliatone/go-avrocontract/pkg/testsupport"
)

func itemConfig(t *testing.T, name string) map[string]any {
	t.Helper()

	return map[string]any{
		orchestrator.KeySchema:     string(testsupport.MustReadSchema(t, "item.avsc")),
		orchestrator.KeyRecordName: "Item",
		"name":                     name,
		"id":                       "notEmpty('100')",
	}
}

func TestServiceConfigureVerifyGenerate(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context()
	svc := plugin.NewService(orchestrator.New())

	configured, err := svc.ConfigureInteraction(ctx, plugin.ConfigureInteractionRequest{
		ContentType:    "avro/binary",
		ContentsConfig: itemConfig(t, "notEmpty('Item-41')"),
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if configured.Error != "" || len(configured.Interactions) != 1 {
		t.Fatalf("unexpected response: %+v", configured)
	}
	interaction := configured.Interactions[0]
	if interaction.Contents.ContentType != "avro/binary; record=Item" {
		t.Fatalf("content type = %q", interaction.Contents.ContentType)
	}
	stored := interaction.PluginConfiguration.InteractionConfiguration
	if stored[orchestrator.KeyRecordName] != "Item" || stored[orchestrator.KeyContentType] != "avro/binary; record=Item" {
		t.Fatalf("unexpected plugin configuration: %v", stored)
	}
	if _, ok := stored["name"]; ok {
		t.Fatalf("literal keys leaked into plugin configuration: %v", stored)
	}

	verified, err := svc.VerifyContent(ctx, plugin.VerifyContentRequest{
		Expected:            interaction.Contents,
		Actual:              interaction.Contents,
		Rules:               interaction.Rules,
		PluginConfiguration: interaction.PluginConfiguration,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Records != 1 || len(verified.Results) != 0 {
		t.Fatalf("unexpected verify response: %+v", verified)
	}

	empty, err := svc.ConfigureInteraction(ctx, plugin.ConfigureInteractionRequest{
		ContentsConfig: map[string]any{
			orchestrator.KeySchema:     stored[orchestrator.KeySchema],
			orchestrator.KeyRecordName: "Item",
			"name":                     "",
			"id":                       "1",
		},
	})
	if err != nil {
		t.Fatalf("configure empty: %v", err)
	}
	verified, err = svc.VerifyContent(ctx, plugin.VerifyContentRequest{
		Expected:            interaction.Contents,
		Actual:              empty.Interactions[0].Contents,
		Rules:               interaction.Rules,
		PluginConfiguration: plugin.PluginConfiguration{},
	})
	if err == nil {
		t.Fatalf("expected missing schema reference error, got %+v", verified)
	}

	verified, err = svc.VerifyContent(ctx, plugin.VerifyContentRequest{
		Expected:            interaction.Contents,
		Actual:              empty.Interactions[0].Contents,
		Rules:               interaction.Rules,
		PluginConfiguration: interaction.PluginConfiguration,
	})
	if err != nil {
		t.Fatalf("verify empty: %v", err)
	}
	got := verified.Results["$.name"]
	if len(got) != 1 || got[0].Rule != model.RuleNotEmpty {
		t.Fatalf("expected a not-empty mismatch at $.name, got %+v", verified.Results)
	}

	generated, err := svc.GenerateContent(ctx, plugin.GenerateContentRequest{
		Contents:            interaction.Contents,
		Generators:          interaction.Generators,
		PluginConfiguration: interaction.PluginConfiguration,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if diff := cmp.Diff(interaction.Contents, generated.Contents); diff != "" {
		t.Fatalf("contents without generators should be unchanged (-want +got):\n%s", diff)
	}
}

func TestServiceRejectsMalformedExpressions(t *testing.T) {
	t.Parallel()

	svc := plugin.NewService(orchestrator.New())
	resp, err := svc.ConfigureInteraction(testsupport.Context(), plugin.ConfigureInteractionRequest{
		ContentsConfig: itemConfig(t, "matching(regex, 'unterminated)"),
	})
	if err != nil {
		t.Fatalf("parse errors must be reported in the response, got %v", err)
	}
	if resp.Error == "" || len(resp.Interactions) != 0 {
		t.Fatalf("expected a rejected configuration, got %+v", resp)
	}
}

func TestServiceMalformedPayload(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context()
	svc := plugin.NewService(orchestrator.New())
	configured, err := svc.ConfigureInteraction(ctx, plugin.ConfigureInteractionRequest{
		ContentsConfig: itemConfig(t, "notEmpty('Item-41')"),
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	interaction := configured.Interactions[0]
	truncated := interaction.Contents
	truncated.Payload = truncated.Payload[:len(truncated.Payload)-1]

	_, err = svc.VerifyContent(ctx, plugin.VerifyContentRequest{
		Expected:            interaction.Contents,
		Actual:              truncated,
		PluginConfiguration: interaction.PluginConfiguration,
	})
	if !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

type stubBackend struct {
	configureErr error
	entries      []orchestrator.CatalogueEntry
	lastVerify   orchestrator.VerifyRequest
}

func (s *stubBackend) ConfigureInteraction(context.Context, string, map[string]any) (orchestrator.Interaction, error) {
	return orchestrator.Interaction{}, s.configureErr
}

func (s *stubBackend) Verify(_ context.Context, req orchestrator.VerifyRequest) (orchestrator.VerifyResult, error) {
	s.lastVerify = req
	return orchestrator.VerifyResult{}, nil
}

func (s *stubBackend) Generate(context.Context, orchestrator.GenerateRequest) (content.Descriptor, error) {
	return content.Descriptor{}, nil
}

func (s *stubBackend) Initialize(context.Context, string, string) ([]orchestrator.CatalogueEntry, error) {
	return s.entries, nil
}

func TestServiceErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantReject bool
	}{
		{name: "parse error", err: &model.ParseError{Input: "matching(", Pos: 9, Msg: "unexpected end"}, wantReject: true},
		{name: "field parse error", err: model.NewFieldError(model.ErrParse, "$.name", "bad"), wantReject: true},
		{name: "type mismatch", err: model.NewFieldError(model.ErrTypeMismatch, "$.id", "bad")},
		{name: "schema resolution", err: &model.SchemaResolutionError{Source: "x", Record: "Item"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := plugin.NewService(&stubBackend{configureErr: tt.err})
			resp, err := svc.ConfigureInteraction(testsupport.Context(), plugin.ConfigureInteractionRequest{})
			if tt.wantReject {
				if err != nil || resp.Error == "" {
					t.Fatalf("expected rejected response, got resp=%+v err=%v", resp, err)
				}
				return
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v to propagate, got resp=%+v err=%v", tt.err, resp, err)
			}
		})
	}
}

func TestServiceRecordFromContentType(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{}
	svc := plugin.NewService(backend)
	_, err := svc.VerifyContent(testsupport.Context(), plugin.VerifyContentRequest{
		Actual: content.Descriptor{ContentType: "avro/binary; record=Order"},
		PluginConfiguration: plugin.PluginConfiguration{
			InteractionConfiguration: map[string]any{orchestrator.KeySchema: "schemas/order.avsc"},
		},
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if backend.lastVerify.Record != "Order" || backend.lastVerify.Source.Location() != "schemas/order.avsc" {
		t.Fatalf("unexpected verify request: %+v", backend.lastVerify)
	}
}

func TestServiceHandle(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{entries: []orchestrator.CatalogueEntry{{Type: orchestrator.EntryContentMatcher, Key: "avro"}}}
	svc := plugin.NewService(backend)

	out, err := svc.Handle(testsupport.Context(), plugin.MethodInitPlugin, []byte(`{"implementation":"pact-go","version":"2.0"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	var resp plugin.InitPluginResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if diff := cmp.Diff(backend.entries, resp.Catalogue); diff != "" {
		t.Fatalf("catalogue mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.Handle(testsupport.Context(), plugin.MethodInitPlugin, []byte(`{}`)); err == nil || !strings.Contains(err.Error(), "implementation is required") {
		t.Fatalf("expected implementation error, got %v", err)
	}
	if _, err := svc.Handle(testsupport.Context(), "StartMockServer", nil); !errors.Is(err, plugin.ErrUnknownMethod) {
		t.Fatalf("expected unknown method, got %v", err)
	}
	if _, err := svc.Handle(testsupport.Context(), plugin.MethodVerifyContent, []byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
