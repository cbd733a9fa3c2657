package model

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks malformed DSL expressions.
	ErrParse = errors.New("parse error")
	// ErrSchemaResolution marks schema sources or record names that cannot be
	// resolved.
	ErrSchemaResolution = errors.New("schema resolution error")
	// ErrUnknownField marks literal keys that have no matching schema field.
	ErrUnknownField = errors.New("unknown field")
	// ErrTypeMismatch marks values that cannot be coerced to the schema type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrRange marks numeric values outside the schema type's width.
	ErrRange = errors.New("value out of range")
	// ErrMalformedPayload marks binary payloads that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// ParseError reports a DSL expression that does not match the grammar.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse expression %q: %s (at %d)", e.Input, e.Msg, e.Pos)
	}
	return fmt.Sprintf("parse expression %q: %s", e.Input, e.Msg)
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// FieldError reports a failure local to one field of the walked literal. Kind
// is one of ErrUnknownField, ErrTypeMismatch, ErrRange or ErrParse.
type FieldError struct {
	Kind error
	Path string
	Msg  string
	Err  error
}

// NewFieldError builds a FieldError with a formatted message.
func NewFieldError(kind error, path string, format string, args ...any) *FieldError {
	return &FieldError{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func (e *FieldError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, msg)
}

func (e *FieldError) Is(target error) bool {
	return target == e.Kind
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// SchemaResolutionError reports a schema source or record that could not be
// resolved.
type SchemaResolutionError struct {
	Source string
	Record string
	Err    error
}

func (e *SchemaResolutionError) Error() string {
	switch {
	case e.Record != "" && e.Err != nil:
		return fmt.Sprintf("resolve record %q from %q: %v", e.Record, e.Source, e.Err)
	case e.Record != "":
		return fmt.Sprintf("resolve record %q from %q: record not found", e.Record, e.Source)
	case e.Err != nil:
		return fmt.Sprintf("resolve schema %q: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("resolve schema %q", e.Source)
	}
}

func (e *SchemaResolutionError) Is(target error) bool {
	return target == ErrSchemaResolution
}

func (e *SchemaResolutionError) Unwrap() error {
	return e.Err
}

// MalformedPayloadError reports a binary payload that is truncated or does not
// match the schema. Offset is the byte position where decoding failed.
type MalformedPayloadError struct {
	Offset int
	Msg    string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload at offset %d: %s", e.Offset, e.Msg)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}
