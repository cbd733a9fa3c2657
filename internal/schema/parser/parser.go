package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/hamba/avro/v2"
	"gopkg.in/yaml.v3"

	pkgschema "github.com/goliatone/go-avrocontract/pkg/schema"
)

// Parser implements pkgschema.Parser using hamba/avro.
type Parser struct {
	options pkgschema.ParserOptions
}

var _ pkgschema.Parser = (*Parser)(nil)

// New constructs a Parser with the given options.
func New(options pkgschema.ParserOptions) pkgschema.Parser {
	return &Parser{options: options}
}

// Parse reads an .avsc document. Documents that are not JSON are read as YAML
// and converted first. Each call parses into its own name cache so documents
// never observe each other's named types.
func (p *Parser) Parse(ctx context.Context, doc pkgschema.Document) (*pkgschema.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(doc.Raw())
	if len(raw) == 0 {
		return nil, errors.New("schema parser: document payload is empty")
	}

	if !looksLikeJSON(raw) {
		converted, err := yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("schema parser: %s: %w", doc.Location(), err)
		}
		raw = converted
	}

	root, err := avro.ParseBytesWithCache(raw, p.options.Namespace, &avro.SchemaCache{})
	if err != nil {
		return nil, fmt.Errorf("schema parser: %s: %w", doc.Location(), err)
	}
	return pkgschema.NewSet(root), nil
}

func looksLikeJSON(raw []byte) bool {
	switch raw[0] {
	case '{', '[', '"':
		return true
	}
	return false
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if tree == nil {
		return nil, errors.New("decode yaml: empty document")
	}
	return json.Marshal(tree)
}
