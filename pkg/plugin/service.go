// Package plugin adapts the orchestrator to the four request/response pairs
// exchanged with a contract-testing host: InitPlugin, ConfigureInteraction,
// VerifyContent and GenerateContent.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-avrocontract/pkg/content"
	"github.com/goliatone/go-avrocontract/pkg/matchers"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
)

// Configurer builds interactions from a consumer configuration.
type Configurer interface {
	ConfigureInteraction(ctx context.Context, contentType string, config map[string]any) (orchestrator.Interaction, error)
}

// Verifier decodes a payload and replays matching rules against it.
type Verifier interface {
	Verify(ctx context.Context, req orchestrator.VerifyRequest) (orchestrator.VerifyResult, error)
}

// Generator re-encodes a payload with generators applied.
type Generator interface {
	Generate(ctx context.Context, req orchestrator.GenerateRequest) (content.Descriptor, error)
}

// Initializer answers the host handshake.
type Initializer interface {
	Initialize(ctx context.Context, implementation, version string) ([]orchestrator.CatalogueEntry, error)
}

// Backend bundles every capability the service needs. *orchestrator.Orchestrator
// satisfies it.
type Backend interface {
	Configurer
	Verifier
	Generator
	Initializer
}

var _ Backend = (*orchestrator.Orchestrator)(nil)

// Method names accepted by Handle.
const (
	MethodInitPlugin           = "InitPlugin"
	MethodConfigureInteraction = "ConfigureInteraction"
	MethodVerifyContent        = "VerifyContent"
	MethodGenerateContent      = "GenerateContent"
)

var (
	// ErrUnknownMethod is returned by Handle for unsupported method names.
	ErrUnknownMethod = errors.New("plugin: unknown method")
	// ErrInvalidRequest marks requests that cannot be decoded or lack
	// required fields.
	ErrInvalidRequest = errors.New("plugin: invalid request")
)

// Option customises the service.
type Option func(*Service)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service maps protocol messages onto the backend. It holds no per-request
// state and is safe for concurrent use when the backend is.
type Service struct {
	configurer  Configurer
	verifier    Verifier
	generator   Generator
	initializer Initializer
	logger      *slog.Logger
}

// NewService wires every capability from backend.
func NewService(backend Backend, options ...Option) *Service {
	s := &Service{
		configurer:  backend,
		verifier:    backend,
		generator:   backend,
		initializer: backend,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// InitPlugin answers the host handshake with the catalogue.
func (s *Service) InitPlugin(ctx context.Context, req InitPluginRequest) (InitPluginResponse, error) {
	if strings.TrimSpace(req.Implementation) == "" {
		return InitPluginResponse{}, fmt.Errorf("%w: implementation is required", ErrInvalidRequest)
	}
	entries, err := s.initializer.Initialize(ctx, req.Implementation, req.Version)
	if err != nil {
		return InitPluginResponse{}, fmt.Errorf("plugin: init: %w", err)
	}
	return InitPluginResponse{Catalogue: entries}, nil
}

// ConfigureInteraction builds the interaction. Malformed DSL text is reported
// in the response Error field; every other failure is returned as an error.
func (s *Service) ConfigureInteraction(ctx context.Context, req ConfigureInteractionRequest) (ConfigureInteractionResponse, error) {
	interaction, err := s.configurer.ConfigureInteraction(ctx, req.ContentType, req.ContentsConfig)
	if err != nil {
		if errors.Is(err, model.ErrParse) {
			s.logger.InfoContext(ctx, "interaction rejected", slog.String("error", err.Error()))
			return ConfigureInteractionResponse{Error: err.Error()}, nil
		}
		return ConfigureInteractionResponse{}, fmt.Errorf("plugin: configure: %w", err)
	}

	return ConfigureInteractionResponse{
		Interactions: []InteractionResponse{{
			Contents:   interaction.Contents,
			Rules:      interaction.Rules,
			Generators: interaction.Generators,
			PluginConfiguration: PluginConfiguration{
				InteractionConfiguration: targetConfig(req.ContentsConfig, interaction.Contents.ContentType),
			},
		}},
	}, nil
}

// VerifyContent decodes the actual payload and replays the rules. Mismatches
// are grouped by path; a malformed payload is returned as an error.
func (s *Service) VerifyContent(ctx context.Context, req VerifyContentRequest) (VerifyContentResponse, error) {
	cfg, err := target(req.PluginConfiguration, req.Actual.ContentType)
	if err != nil {
		return VerifyContentResponse{}, err
	}

	contentType := req.Actual.ContentType
	if contentType == "" {
		contentType = req.Expected.ContentType
	}
	res, err := s.verifier.Verify(ctx, orchestrator.VerifyRequest{
		Source:      cfg.Source,
		Record:      cfg.Record,
		ContentType: contentType,
		Payload:     req.Actual.Payload,
		Expected:    req.Expected.Payload,
		Rules:       req.Rules,
	})
	if err != nil {
		return VerifyContentResponse{}, fmt.Errorf("plugin: verify: %w", err)
	}

	resp := VerifyContentResponse{Records: len(res.Values)}
	if !res.OK() {
		resp.Results = groupByPath(res.Mismatches)
	}
	return resp, nil
}

// GenerateContent applies the generators to the stored contents. The test
// context supplies provider state values.
func (s *Service) GenerateContent(ctx context.Context, req GenerateContentRequest) (GenerateContentResponse, error) {
	cfg, err := target(req.PluginConfiguration, req.Contents.ContentType)
	if err != nil {
		return GenerateContentResponse{}, err
	}
	desc, err := s.generator.Generate(ctx, orchestrator.GenerateRequest{
		Source:        cfg.Source,
		Record:        cfg.Record,
		ContentType:   req.Contents.ContentType,
		Payload:       req.Contents.Payload,
		Generators:    req.Generators,
		ProviderState: req.TestContext,
	})
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("plugin: generate: %w", err)
	}
	return GenerateContentResponse{Contents: desc}, nil
}

// Handle decodes a JSON request for method, dispatches it and encodes the
// response.
func (s *Service) Handle(ctx context.Context, method string, body []byte) ([]byte, error) {
	switch method {
	case MethodInitPlugin:
		return handle(ctx, body, s.InitPlugin)
	case MethodConfigureInteraction:
		return handle(ctx, body, s.ConfigureInteraction)
	case MethodVerifyContent:
		return handle(ctx, body, s.VerifyContent)
	case MethodGenerateContent:
		return handle(ctx, body, s.GenerateContent)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownMethod, method)
}

func handle[Req, Resp any](ctx context.Context, body []byte, fn func(context.Context, Req) (Resp, error)) ([]byte, error) {
	var req Req
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	resp, err := fn(ctx, req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// targetConfig keeps the pact: keys of a configuration so later calls can
// locate the schema again.
func targetConfig(config map[string]any, contentType string) map[string]any {
	out := make(map[string]any, 3)
	for _, key := range []string{orchestrator.KeySchema, orchestrator.KeyRecordName, orchestrator.KeyContentType} {
		if v, ok := config[key]; ok {
			out[key] = v
		}
	}
	if _, ok := out[orchestrator.KeyContentType]; !ok && contentType != "" {
		out[orchestrator.KeyContentType] = contentType
	}
	return out
}

// target reads the schema reference back out of the plugin configuration,
// taking the record name from the content type when it was not stored.
func target(pc PluginConfiguration, contentType string) (orchestrator.ConfigureRequest, error) {
	config := maps.Clone(pc.InteractionConfiguration)
	if config == nil {
		config = map[string]any{}
	}
	if _, ok := config[orchestrator.KeyRecordName]; !ok && contentType != "" {
		if _, record, err := content.Parse(contentType); err == nil && record != "" {
			config[orchestrator.KeyRecordName] = record
		}
	}
	req, err := orchestrator.ParseConfig(config)
	if err != nil {
		return orchestrator.ConfigureRequest{}, fmt.Errorf("%w: interaction configuration: %w", ErrInvalidRequest, err)
	}
	return req, nil
}

func groupByPath(mismatches []matchers.Mismatch) map[string][]matchers.Mismatch {
	out := make(map[string][]matchers.Mismatch, len(mismatches))
	for _, m := range mismatches {
		out[m.Path] = append(out[m.Path], m)
	}
	return out
}
