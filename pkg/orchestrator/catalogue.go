package orchestrator

import (
	"context"
	"log/slog"
	"strings"
)

// Catalogue entry types advertised to the host.
const (
	EntryContentMatcher   = "CONTENT_MATCHER"
	EntryContentGenerator = "CONTENT_GENERATOR"
)

// CatalogueKey is the key under which the plugin's entries are registered.
const CatalogueKey = "avro"

// ContentTypes lists the content types handled by the plugin.
var ContentTypes = []string{"avro/binary", "application/avro"}

// CatalogueEntry advertises one capability to the host.
type CatalogueEntry struct {
	Type   string            `json:"type"`
	Key    string            `json:"key"`
	Values map[string]string `json:"values,omitempty"`
}

// Initialize records the host implementation and returns the catalogue
// entries this plugin provides.
func (o *Orchestrator) Initialize(ctx context.Context, implementation, version string) ([]CatalogueEntry, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	o.logger.InfoContext(ctx, "plugin initialised",
		slog.String("implementation", implementation),
		slog.String("version", version),
	)

	types := strings.Join(ContentTypes, ";")
	return []CatalogueEntry{
		{Type: EntryContentMatcher, Key: CatalogueKey, Values: map[string]string{"content-types": types}},
		{Type: EntryContentGenerator, Key: CatalogueKey, Values: map[string]string{"content-types": types}},
	}, nil
}
