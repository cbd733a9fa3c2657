// Package content builds the content descriptor that accompanies an encoded
// message: the precise content type, a coarse BINARY/TEXT hint and the
// payload itself.
package content

import (
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"
)

// Hint classifies a payload for transports that only care whether it is
// printable.
type Hint string

const (
	HintBinary Hint = "BINARY"
	HintText   Hint = "TEXT"
)

// DefaultFormat is used when no format is supplied.
const DefaultFormat = "avro"

// RecordParam is the content type parameter naming the record.
const RecordParam = "record"

// Descriptor describes an encoded payload.
type Descriptor struct {
	ContentType string `json:"contentType"`
	Hint        Hint   `json:"contentTypeHint"`
	Payload     []byte `json:"content,omitempty"`
}

// WithPayload returns a copy of d carrying payload.
func (d Descriptor) WithPayload(payload []byte) Descriptor {
	d.Payload = payload
	return d
}

// Registry tracks which formats are written as text. Every other format is
// binary.
type Registry struct {
	mu      sync.RWMutex
	textual map[string]struct{}
}

// NewRegistry returns a registry with the given textual formats.
func NewRegistry(textual ...string) *Registry {
	r := &Registry{textual: make(map[string]struct{})}
	for _, format := range textual {
		r.MustRegisterTextual(format)
	}
	return r
}

var defaultRegistry = NewRegistry("json")

// Default returns the shared registry, which knows json as textual.
func Default() *Registry {
	return defaultRegistry
}

// RegisterTextual marks format as textual.
func (r *Registry) RegisterTextual(format string) error {
	key := normalizeFormat(format)
	if key == "" {
		return fmt.Errorf("content: format name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.textual[key]; exists {
		return fmt.Errorf("content: format %q already registered", key)
	}
	r.textual[key] = struct{}{}
	return nil
}

// MustRegisterTextual panics on registration failure.
func (r *Registry) MustRegisterTextual(format string) {
	if err := r.RegisterTextual(format); err != nil {
		panic(err)
	}
}

// IsTextual reports whether format was registered as textual.
func (r *Registry) IsTextual(format string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.textual[normalizeFormat(format)]
	return ok
}

// Textual lists the textual formats in sorted order.
func (r *Registry) Textual() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.textual))
	for name := range r.textual {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the descriptor for record written in format.
func (r *Registry) Describe(record, format string) (Descriptor, error) {
	record = strings.TrimSpace(record)
	if record == "" {
		return Descriptor{}, fmt.Errorf("content: record name is required")
	}
	key := normalizeFormat(format)
	if key == "" {
		key = DefaultFormat
	}

	subtype, hint := "binary", HintBinary
	if r.IsTextual(key) {
		subtype, hint = "json", HintText
	}
	ct := mime.FormatMediaType(key+"/"+subtype, map[string]string{RecordParam: record})
	if ct == "" {
		return Descriptor{}, fmt.Errorf("content: cannot format content type for %q/%q", key, record)
	}
	return Descriptor{ContentType: ct, Hint: hint}, nil
}

// Describe uses the default registry.
func Describe(record, format string) (Descriptor, error) {
	return defaultRegistry.Describe(record, format)
}

// Parse reads a content type back into its format and record name. The record
// is empty when the parameter is absent, as in the bare "avro/binary" used in
// interaction configuration.
func Parse(contentType string) (format, record string, err error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", "", fmt.Errorf("content: parse %q: %w", contentType, err)
	}
	format, _, ok := strings.Cut(mediaType, "/")
	if !ok || format == "" {
		return "", "", fmt.Errorf("content: %q has no subtype", contentType)
	}
	return format, params[RecordParam], nil
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}
