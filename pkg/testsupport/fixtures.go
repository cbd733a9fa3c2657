package testsupport

import (
	"bytes"
	"context"
	"embed"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"gopkg.in/yaml.v3"

	pkgschema "github.com/goliatone/go-avrocontract/pkg/schema"
)

//go:embed testdata/schemas/*.avsc
var schemaFiles embed.FS

// SchemaFS exposes the fixture schemas (item.avsc, complex.avsc, order.avsc,
// kitchen.avsc) at the root of an fs.FS.
func SchemaFS() fs.FS {
	sub, err := fs.Sub(schemaFiles, "testdata/schemas")
	if err != nil {
		panic(err)
	}
	return sub
}

// MustReadSchema returns the raw fixture schema.
func MustReadSchema(t testing.TB, name string) []byte {
	t.Helper()

	data, err := fs.ReadFile(SchemaFS(), name)
	if err != nil {
		t.Fatalf("read schema %s: %v", name, err)
	}
	return data
}

// MustRecord parses a fixture schema and returns the named record.
func MustRecord(t testing.TB, file, record string) *avro.RecordSchema {
	t.Helper()

	root, err := avro.ParseBytesWithCache(MustReadSchema(t, file), "", &avro.SchemaCache{})
	if err != nil {
		t.Fatalf("parse schema %s: %v", file, err)
	}
	rec, ok := pkgschema.NewSet(root).Record(record)
	if !ok {
		t.Fatalf("record %s not found in %s", record, file)
	}
	return rec
}

// MustLiteral decodes a YAML interaction literal.
func MustLiteral(t testing.TB, text string) map[string]any {
	t.Helper()

	var out map[string]any
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decode literal: %v", err)
	}
	return out
}

// FixedClock returns a clock function pinned to ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureOutput runs render against a buffer and returns both the returned
// string and what was written.
func CaptureOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out, buf.String()
}
