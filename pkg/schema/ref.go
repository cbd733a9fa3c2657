package schema

import (
	"errors"
	"fmt"
)

// Ref names a record inside a schema source. Refs are comparable through Key.
type Ref struct {
	Source Source
	Record string
}

// NewRef validates and returns a Ref.
func NewRef(src Source, record string) (Ref, error) {
	if src == nil {
		return Ref{}, errors.New("schema: ref source is required")
	}
	if record == "" {
		return Ref{}, errors.New("schema: ref record name is required")
	}
	return Ref{Source: src, Record: record}, nil
}

// Key identifies the ref in a Cache.
func (r Ref) Key() Key {
	if r.Source == nil {
		return Key{Record: r.Record}
	}
	return Key{Kind: r.Source.Kind(), Location: r.Source.Location(), Record: r.Record}
}

func (r Ref) String() string {
	if r.Source == nil {
		return r.Record
	}
	return fmt.Sprintf("%s#%s", r.Source.Location(), r.Record)
}
