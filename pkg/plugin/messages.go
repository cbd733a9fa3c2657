package plugin

import (
	"github.com/goliatone/go-avrocontract/pkg/content"
	"github.com/goliatone/go-avrocontract/pkg/matchers"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
)

// InitPluginRequest is sent once by the host when the plugin is loaded.
type InitPluginRequest struct {
	Implementation string `json:"implementation"`
	Version        string `json:"version"`
}

// InitPluginResponse lists the catalogue entries the plugin provides.
type InitPluginResponse struct {
	Catalogue []orchestrator.CatalogueEntry `json:"catalogue"`
}

// ConfigureInteractionRequest carries the interaction configuration written
// by the consumer test.
type ConfigureInteractionRequest struct {
	ContentType    string         `json:"contentType"`
	ContentsConfig map[string]any `json:"contentsConfig"`
}

// ConfigureInteractionResponse either carries the built interaction or an
// error message when the configuration was rejected.
type ConfigureInteractionResponse struct {
	Error        string                `json:"error,omitempty"`
	Interactions []InteractionResponse `json:"interaction,omitempty"`
}

// InteractionResponse is one configured message part.
type InteractionResponse struct {
	Contents            content.Descriptor  `json:"contents"`
	Rules               model.RuleSet       `json:"rules,omitempty"`
	Generators          model.GeneratorSet  `json:"generators,omitempty"`
	PartName            string              `json:"partName,omitempty"`
	PluginConfiguration PluginConfiguration `json:"pluginConfiguration"`
}

// PluginConfiguration is stored by the host with the interaction and handed
// back on verify and generate calls.
type PluginConfiguration struct {
	InteractionConfiguration map[string]any `json:"interactionConfiguration,omitempty"`
	PactConfiguration        map[string]any `json:"pactConfiguration,omitempty"`
}

// VerifyContentRequest compares an actual payload against the expected one.
type VerifyContentRequest struct {
	Expected            content.Descriptor  `json:"expected"`
	Actual              content.Descriptor  `json:"actual"`
	AllowUnexpectedKeys bool                `json:"allowUnexpectedKeys"`
	Rules               model.RuleSet       `json:"rules,omitempty"`
	PluginConfiguration PluginConfiguration `json:"pluginConfiguration"`
}

// VerifyContentResponse groups mismatches by path. An empty Results map means
// the payload matched.
type VerifyContentResponse struct {
	Error   string                         `json:"error,omitempty"`
	Records int                            `json:"records"`
	Results map[string][]matchers.Mismatch `json:"results,omitempty"`
}

// GenerateContentRequest asks for a payload with generators applied.
type GenerateContentRequest struct {
	Contents            content.Descriptor  `json:"contents"`
	Generators          model.GeneratorSet  `json:"generators,omitempty"`
	PluginConfiguration PluginConfiguration `json:"pluginConfiguration"`
	TestContext         map[string]any      `json:"testContext,omitempty"`
}

// GenerateContentResponse carries the regenerated payload.
type GenerateContentResponse struct {
	Contents content.Descriptor `json:"contents"`
}
