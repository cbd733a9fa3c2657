package model

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// PathIndex is an insertion-ordered mapping from canonical path string to an
// ordered list of entries. The zero value is not usable; call NewPathIndex.
type PathIndex[T any] struct {
	order   []string
	entries map[string][]T
}

// NewPathIndex returns an empty index.
func NewPathIndex[T any]() *PathIndex[T] {
	return &PathIndex[T]{entries: make(map[string][]T)}
}

// Add appends items under path. The path keeps the position of its first
// insertion.
func (p *PathIndex[T]) Add(path string, items ...T) {
	if p.entries == nil {
		p.entries = make(map[string][]T)
	}
	existing, ok := p.entries[path]
	if !ok {
		p.order = append(p.order, path)
	}
	p.entries[path] = append(existing, items...)
}

// Get returns a copy of the entries recorded for path.
func (p *PathIndex[T]) Get(path string) []T {
	if p == nil {
		return nil
	}
	items := p.entries[path]
	if items == nil {
		return nil
	}
	return append([]T(nil), items...)
}

// Has reports whether path has been recorded.
func (p *PathIndex[T]) Has(path string) bool {
	if p == nil {
		return false
	}
	_, ok := p.entries[path]
	return ok
}

// Paths lists recorded paths in insertion order.
func (p *PathIndex[T]) Paths() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.order...)
}

// Len returns the number of distinct paths.
func (p *PathIndex[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// Merge appends every entry from other, preserving other's order.
func (p *PathIndex[T]) Merge(other *PathIndex[T]) {
	if other == nil {
		return
	}
	for _, path := range other.order {
		p.Add(path, other.entries[path]...)
	}
}

// Clone returns an independent copy.
func (p *PathIndex[T]) Clone() *PathIndex[T] {
	out := NewPathIndex[T]()
	out.Merge(p)
	return out
}

// MarshalJSON writes paths as object keys in insertion order.
func (p *PathIndex[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if p != nil {
		for i, path := range p.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(path)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			items, err := json.Marshal(p.entries[path])
			if err != nil {
				return nil, fmt.Errorf("model: marshal %s: %w", path, err)
			}
			buf.Write(items)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of path to entry list, keeping document order.
func (p *PathIndex[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("model: path index must be a JSON object")
	}
	p.order = nil
	p.entries = make(map[string][]T)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := tok.(string)
		if !ok {
			return fmt.Errorf("model: unexpected path token %v", tok)
		}
		var items []T
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("model: decode %s: %w", path, err)
		}
		p.Add(path, items...)
	}
	_, err = dec.Token()
	return err
}
