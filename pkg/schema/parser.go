package schema

import (
	"context"
	"sort"

	"github.com/hamba/avro/v2"
)

// Parser turns a loaded document into a Set of Avro schemas. The hamba/avro
// backed implementation lives under internal/schema/parser.
type Parser interface {
	Parse(ctx context.Context, doc Document) (*Set, error)
}

// ParserOptions configures schema parsing.
type ParserOptions struct {
	// Namespace applies to names declared without one.
	Namespace string
}

// ParserOption mutates ParserOptions during construction.
type ParserOption func(*ParserOptions)

// WithNamespace sets the enclosing namespace for unqualified names.
func WithNamespace(ns string) ParserOption {
	return func(opts *ParserOptions) {
		opts.Namespace = ns
	}
}

// NewParserOptions applies ParserOption functions.
func NewParserOptions(options ...ParserOption) ParserOptions {
	cfg := ParserOptions{}
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

// Set is a parsed schema document with every named record indexed by full
// name, and by short name when that is unambiguous.
type Set struct {
	root      avro.Schema
	full      map[string]*avro.RecordSchema
	short     map[string]*avro.RecordSchema
	ambiguous map[string]struct{}
	order     []string
}

// NewSet indexes the records reachable from root.
func NewSet(root avro.Schema) *Set {
	s := &Set{
		root:      root,
		full:      make(map[string]*avro.RecordSchema),
		short:     make(map[string]*avro.RecordSchema),
		ambiguous: make(map[string]struct{}),
	}
	s.index(root)
	return s
}

func (s *Set) index(node avro.Schema) {
	switch n := node.(type) {
	case *avro.RecordSchema:
		if _, seen := s.full[n.FullName()]; seen {
			return
		}
		s.full[n.FullName()] = n
		s.order = append(s.order, n.FullName())
		if _, dup := s.short[n.Name()]; dup {
			s.ambiguous[n.Name()] = struct{}{}
		} else {
			s.short[n.Name()] = n
		}
		for _, f := range n.Fields() {
			s.index(f.Type())
		}
	case *avro.ArraySchema:
		s.index(n.Items())
	case *avro.MapSchema:
		s.index(n.Values())
	case *avro.UnionSchema:
		for _, t := range n.Types() {
			s.index(t)
		}
	case *avro.RefSchema:
		s.index(n.Schema())
	}
}

// Root returns the top-level schema of the document.
func (s *Set) Root() avro.Schema {
	return s.root
}

// Record finds a record by full name, falling back to its short name.
func (s *Set) Record(name string) (*avro.RecordSchema, bool) {
	if rec, ok := s.full[name]; ok {
		return rec, true
	}
	if _, amb := s.ambiguous[name]; amb {
		return nil, false
	}
	rec, ok := s.short[name]
	return rec, ok
}

// Records lists full record names in discovery order.
func (s *Set) Records() []string {
	return append([]string(nil), s.order...)
}

// SortedRecords lists full record names alphabetically.
func (s *Set) SortedRecords() []string {
	out := s.Records()
	sort.Strings(out)
	return out
}
