package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Document is a loaded Avro schema payload (.avsc JSON) paired with the
// source it was read from.
type Document struct {
	source Source
	raw    []byte
	digest [sha256.Size]byte
}

// NewDocument copies raw and records its digest. Blank payloads are rejected.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, fmt.Errorf("schema: document %q is empty", src.Location())
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone, digest: sha256.Sum256(clone)}, nil
}

// MustNewDocument panics if the document cannot be created.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Digest returns the hex SHA-256 of the payload.
func (d Document) Digest() string {
	return hex.EncodeToString(d.digest[:])
}

func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}
