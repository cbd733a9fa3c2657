// Package value holds the concrete value tree produced by the walker and the
// codec. A Value mirrors an Avro schema node: scalars, enums, fixed, arrays,
// maps and records. Values are immutable once built.
package value

import (
	"bytes"
	"fmt"
	"math"
	"sort"
)

// Kind enumerates the value variants.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindEnum
	KindFixed
	KindArray
	KindMap
	KindRecord
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBoolean: "boolean",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBytes:   "bytes",
	KindString:  "string",
	KindEnum:    "enum",
	KindFixed:   "fixed",
	KindArray:   "array",
	KindMap:     "map",
	KindRecord:  "record",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Field is a named member of a record or map value.
type Field struct {
	Name  string
	Value Value
}

// Value is a tagged concrete value. The zero Value is null.
type Value struct {
	kind   Kind
	num    int64
	float  float64
	str    string
	raw    []byte
	items  []Value
	fields []Field
}

func Null() Value { return Value{} }

func Bool(b bool) Value {
	v := Value{kind: KindBoolean}
	if b {
		v.num = 1
	}
	return v
}

func Int(i int32) Value { return Value{kind: KindInt, num: int64(i)} }

func Long(i int64) Value { return Value{kind: KindLong, num: i} }

func Float(f float32) Value { return Value{kind: KindFloat, float: float64(f)} }

func Double(f float64) Value { return Value{kind: KindDouble, float: f} }

func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte{}, b...)}
}

func String(s string) Value { return Value{kind: KindString, str: s} }

// Enum builds an enum value from its symbol and position in the schema.
func Enum(symbol string, index int) Value {
	return Value{kind: KindEnum, str: symbol, num: int64(index)}
}

func Fixed(b []byte) Value {
	return Value{kind: KindFixed, raw: append([]byte{}, b...)}
}

// Array builds an ordered sequence.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value{}, items...)}
}

// Map builds a map value. Entries are stored sorted by key.
func Map(entries map[string]Value) Value {
	fields := make([]Field, 0, len(entries))
	for k, v := range entries {
		fields = append(fields, Field{Name: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return Value{kind: KindMap, fields: fields}
}

// Record builds a record value. Field order is the schema declaration order.
func Record(name string, fields ...Field) Value {
	return Value{kind: KindRecord, str: name, fields: append([]Field{}, fields...)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() bool { return v.num != 0 }

func (v Value) AsInt() int32 { return int32(v.num) }

func (v Value) AsLong() int64 { return v.num }

func (v Value) AsFloat() float32 { return float32(v.float) }

func (v Value) AsDouble() float64 { return v.float }

// AsBytes returns a copy of the bytes or fixed payload.
func (v Value) AsBytes() []byte { return append([]byte(nil), v.raw...) }

// AsString returns the string payload, or the symbol for enums.
func (v Value) AsString() string { return v.str }

// EnumIndex returns the schema position of an enum symbol.
func (v Value) EnumIndex() int { return int(v.num) }

// RecordName returns the record's schema name.
func (v Value) RecordName() string {
	if v.kind != KindRecord {
		return ""
	}
	return v.str
}

// Items returns a copy of the array elements.
func (v Value) Items() []Value { return append([]Value(nil), v.items...) }

// Fields returns a copy of the record fields or map entries.
func (v Value) Fields() []Field { return append([]Field(nil), v.fields...) }

// Len returns the element count of arrays, maps and records, and the length of
// strings and byte payloads.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindMap, KindRecord:
		return len(v.fields)
	case KindString:
		return len(v.str)
	case KindBytes, KindFixed:
		return len(v.raw)
	default:
		return 0
	}
}

// Get looks up a record field or map entry by name.
func (v Value) Get(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i-th array element.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Equal reports deep equality. Floating point values compare bitwise so NaN
// payloads survive round trips.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBoolean, KindInt, KindLong:
		return v.num == other.num
	case KindFloat, KindDouble:
		return math.Float64bits(v.float) == math.Float64bits(other.float)
	case KindBytes, KindFixed:
		return bytes.Equal(v.raw, other.raw)
	case KindString:
		return v.str == other.str
	case KindEnum:
		return v.str == other.str && v.num == other.num
	case KindArray:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindMap, KindRecord:
		if v.str != other.str || len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != other.fields[i].Name || !v.fields[i].Value.Equal(other.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Native converts the tree into plain Go values: nil, bool, int32, int64,
// float32, float64, []byte, string, []any and map[string]any. Enums become
// their symbol.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBoolean:
		return v.AsBool()
	case KindInt:
		return v.AsInt()
	case KindLong:
		return v.num
	case KindFloat:
		return v.AsFloat()
	case KindDouble:
		return v.float
	case KindBytes, KindFixed:
		return v.AsBytes()
	case KindString, KindEnum:
		return v.str
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Native()
		}
		return out
	case KindMap, KindRecord:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Name] = f.Value.Native()
		}
		return out
	}
	return nil
}

// JSON is Native with bytes and fixed written the Avro JSON way: a string
// whose code points are the byte values (ISO-8859-1).
func (v Value) JSON() any {
	switch v.kind {
	case KindBytes, KindFixed:
		return Latin1(v.raw)
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.JSON()
		}
		return out
	case KindMap, KindRecord:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Name] = f.Value.JSON()
		}
		return out
	}
	return v.Native()
}

// Latin1 maps each byte to the code point of the same value.
func Latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// FromLatin1 reverses Latin1. Code points above 0xFF are rejected.
func FromLatin1(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("value: code point %U at offset %d is not a byte", r, i)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func (v Value) String() string {
	switch v.kind {
	case KindRecord:
		return fmt.Sprintf("%s%v", v.str, v.Native())
	case KindString:
		return fmt.Sprintf("%q", v.str)
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}
