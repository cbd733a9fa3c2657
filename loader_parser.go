package avrocontract

import (
	internalLoader "github.com/goliatone/go-avrocontract/internal/schema/loader"
	internalParser "github.com/goliatone/go-avrocontract/internal/schema/parser"
	pkgschema "github.com/goliatone/go-avrocontract/pkg/schema"
)

// NewLoader constructs a schema loader using the internal implementation while
// keeping the concrete type hidden from consumers.
func NewLoader(options ...pkgschema.LoaderOption) pkgschema.Loader {
	cfg := pkgschema.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}

// NewParser constructs a schema parser backed by the internal implementation.
func NewParser(options ...pkgschema.ParserOption) pkgschema.Parser {
	cfg := pkgschema.NewParserOptions(options...)
	return internalParser.New(cfg)
}
