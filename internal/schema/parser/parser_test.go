package parser

import (
	"context"
	"testing"

	"github.com/hamba/avro/v2"

	pkgschema "github.com/goliatone/go-avrocontract/pkg/schema"
)

func TestParseJSONDocument(t *testing.T) {
	doc := pkgschema.MustNewDocument(pkgschema.SourceFromFile("inline.avsc"), []byte(`{
  "type": "record", "name": "Item",
  "fields": [{"name": "name", "type": "string"}, {"name": "id", "type": "long"}]
}`))

	set, err := New(pkgschema.NewParserOptions(pkgschema.WithNamespace("com.example"))).Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, ok := set.Record("com.example.Item")
	if !ok {
		t.Fatalf("expected namespaced record, got %v", set.Records())
	}
	if len(rec.Fields()) != 2 || rec.Fields()[1].Type().Type() != avro.Long {
		t.Fatalf("unexpected fields: %v", rec.String())
	}
}

func TestParseYAMLDocument(t *testing.T) {
	doc := pkgschema.MustNewDocument(pkgschema.SourceFromFile("item.yaml"), []byte(`
type: record
name: Item
fields:
  - name: name
    type: string
  - name: tags
    type:
      type: array
      items: string
`))

	set, err := New(pkgschema.NewParserOptions()).Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, ok := set.Record("Item")
	if !ok {
		t.Fatalf("record not found")
	}
	if _, ok := rec.Fields()[1].Type().(*avro.ArraySchema); !ok {
		t.Fatalf("expected array field, got %T", rec.Fields()[1].Type())
	}
}

func TestParseIsolatesNamedTypes(t *testing.T) {
	p := New(pkgschema.NewParserOptions())
	first := pkgschema.MustNewDocument(pkgschema.SourceFromFile("a.avsc"), []byte(`{"type":"record","name":"Shared","fields":[{"name":"a","type":"int"}]}`))
	second := pkgschema.MustNewDocument(pkgschema.SourceFromFile("b.avsc"), []byte(`{"type":"record","name":"Shared","fields":[{"name":"b","type":"string"}]}`))

	setA, err := p.Parse(context.Background(), first)
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	setB, err := p.Parse(context.Background(), second)
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	a, _ := setA.Record("Shared")
	b, _ := setB.Record("Shared")
	if a.Fields()[0].Name() != "a" || b.Fields()[0].Name() != "b" {
		t.Fatalf("documents leaked named types into each other")
	}
}

func TestParseRejectsInvalidSchema(t *testing.T) {
	doc := pkgschema.MustNewDocument(pkgschema.SourceFromFile("bad.avsc"), []byte(`{"type":"record","name":"Bad","fields":[{"name":"x","type":"nope"}]}`))
	if _, err := New(pkgschema.NewParserOptions()).Parse(context.Background(), doc); err == nil {
		t.Fatalf("expected parse error")
	}
}
