package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Source identifies where an Avro schema document originated so loaders can
// operate on files, fs.FS entries, URLs or inline JSON without leaking
// implementation details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindURL    SourceKind = "url"
	SourceKindInline SourceKind = "inline"
)

// fileSource identifies on-disk schema documents.
type fileSource struct {
	path string
}

func (s fileSource) Location() string {
	return s.path
}

func (s fileSource) Kind() SourceKind {
	return SourceKindFile
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

// fsSource references a path within an fs.FS.
type fsSource struct {
	name string
}

func (s fsSource) Location() string {
	return s.name
}

func (s fsSource) Kind() SourceKind {
	return SourceKindFS
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

// urlSource references an HTTP/HTTPS endpoint.
type urlSource struct {
	raw string
}

func (s urlSource) Location() string {
	return s.raw
}

func (s urlSource) Kind() SourceKind {
	return SourceKindURL
}

// SourceFromURL parses the supplied URL string and returns a Source. It panics
// if the URL is invalid to surface configuration mistakes early.
func SourceFromURL(raw string) Source {
	if raw == "" {
		panic("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		panic(fmt.Sprintf("schema: invalid URL %q: %v", raw, err))
	}
	return urlSource{raw: raw}
}

// InlineSource carries the schema JSON itself. Its location is derived from
// the content hash so identical inline schemas share cache entries.
type InlineSource struct {
	data     []byte
	location string
}

func (s InlineSource) Location() string {
	return s.location
}

func (s InlineSource) Kind() SourceKind {
	return SourceKindInline
}

// Data returns a copy of the inline schema.
func (s InlineSource) Data() []byte {
	return append([]byte(nil), s.data...)
}

// SourceFromBytes wraps inline schema JSON.
func SourceFromBytes(data []byte) Source {
	sum := sha256.Sum256(data)
	return InlineSource{
		data:     append([]byte(nil), data...),
		location: "inline:" + hex.EncodeToString(sum[:8]),
	}
}

// ParseSource interprets a user supplied schema reference: http(s) URLs,
// inline JSON (anything starting with `{`, `[` or `"`), or a file path.
func ParseSource(ref string) (Source, error) {
	trimmed := strings.TrimSpace(ref)
	switch {
	case trimmed == "":
		return nil, fmt.Errorf("schema: empty source reference")
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["), strings.HasPrefix(trimmed, `"`):
		return SourceFromBytes([]byte(trimmed)), nil
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		if _, err := url.ParseRequestURI(trimmed); err != nil {
			return nil, fmt.Errorf("schema: invalid URL %q: %w", trimmed, err)
		}
		return urlSource{raw: trimmed}, nil
	case strings.HasPrefix(trimmed, "file://"):
		return SourceFromFile(strings.TrimPrefix(trimmed, "file://")), nil
	default:
		return SourceFromFile(trimmed), nil
	}
}
