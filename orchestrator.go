// Package avrocontract is the top-level entry point for building and checking
// Avro contract interactions. It re-exports the orchestrator so callers can
// start with a single import.
package avrocontract

import (
	"context"

	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
	"github.com/goliatone/go-avrocontract/pkg/plugin"
	"github.com/goliatone/go-avrocontract/pkg/schema"
)

// Interaction is a configured example with its rules and generators.
type Interaction = orchestrator.Interaction

// VerifyResult holds decoded records and rule mismatches.
type VerifyResult = orchestrator.VerifyResult

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// NewService wraps a fresh orchestrator in the plugin protocol service.
func NewService(options ...orchestrator.Option) *plugin.Service {
	return plugin.NewService(orchestrator.New(options...))
}

// Configure builds the interaction for record from a literal of DSL
// expressions. contentType may be empty for avro/binary.
func Configure(ctx context.Context, source schema.Source, record, contentType string, literal map[string]any, options ...orchestrator.Option) (Interaction, error) {
	return orchestrator.New(options...).Configure(ctx, orchestrator.ConfigureRequest{
		Source:      source,
		Record:      record,
		ContentType: contentType,
		Literal:     literal,
	})
}

// WithLoaderOptions forwards loader options, such as a base directory for
// relative schema paths.
func WithLoaderOptions(options ...schema.LoaderOption) orchestrator.Option {
	return orchestrator.WithLoaderOptions(options...)
}
