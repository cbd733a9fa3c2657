package builder

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// coerceError carries the taxonomy kind of a conversion failure so callers
// can attach the field path.
type coerceError struct {
	kind error
	msg  string
}

func (e *coerceError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *coerceError) Is(target error) bool {
	return target == e.kind
}

func mismatch(format string, args ...any) error {
	return &coerceError{kind: model.ErrTypeMismatch, msg: fmt.Sprintf(format, args...)}
}

func outOfRange(format string, args ...any) error {
	return &coerceError{kind: model.ErrRange, msg: fmt.Sprintf(format, args...)}
}

// CoerceText converts the textual form of a scalar into a value of the given
// schema type. Logical types accept their human readable forms (RFC 3339
// timestamps, yyyy-MM-dd dates, decimal strings) as well as raw numbers.
func CoerceText(schema avro.Schema, text string) (value.Value, error) {
	switch s := schema.(type) {
	case *avro.RefSchema:
		return CoerceText(s.Schema(), text)
	case *avro.NullSchema:
		if text == "" || text == "null" {
			return value.Null(), nil
		}
		return value.Value{}, mismatch("%q is not null", text)
	case *avro.EnumSchema:
		for i, sym := range s.Symbols() {
			if sym == text {
				return value.Enum(sym, i), nil
			}
		}
		return value.Value{}, mismatch("%q is not a symbol of enum %s", text, s.Name())
	case *avro.FixedSchema:
		if l := s.Logical(); l != nil && l.Type() == avro.Decimal {
			dec, _ := l.(*avro.DecimalLogicalSchema)
			return decimalFixed(text, dec, s.Size())
		}
		if len(text) != s.Size() {
			return value.Value{}, mismatch("fixed %s needs %d bytes, got %d", s.Name(), s.Size(), len(text))
		}
		return value.Fixed([]byte(text)), nil
	case *avro.PrimitiveSchema:
		if l := s.Logical(); l != nil {
			if v, handled, err := coerceLogical(s, l, text); handled {
				return v, err
			}
		}
		return coercePrimitive(s.Type(), text)
	case *avro.UnionSchema:
		if text == "null" && hasNull(s) {
			return value.Null(), nil
		}
		var errs []error
		for _, branch := range s.Types() {
			if branch.Type() == avro.Null {
				continue
			}
			v, err := CoerceText(branch, text)
			if err == nil {
				return v, nil
			}
			errs = append(errs, err)
		}
		return value.Value{}, errors.Join(append([]error{mismatch("no branch of union %s accepts %q", s.String(), text)}, errs...)...)
	default:
		return value.Value{}, mismatch("%s cannot be written as a scalar expression", schema.Type())
	}
}

func coercePrimitive(typ avro.Type, text string) (value.Value, error) {
	switch typ {
	case avro.String:
		return value.String(text), nil
	case avro.Bytes:
		return value.Bytes([]byte(text)), nil
	case avro.Boolean:
		switch text {
		case "true":
			return value.Bool(true), nil
		case "false":
			return value.Bool(false), nil
		}
		return value.Value{}, mismatch("%q is not a boolean", text)
	case avro.Int:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return value.Value{}, numErr(err, text, "int")
		}
		return value.Int(int32(n)), nil
	case avro.Long:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return value.Value{}, numErr(err, text, "long")
		}
		return value.Long(n), nil
	case avro.Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return value.Value{}, numErr(err, text, "float")
		}
		return value.Float(float32(f)), nil
	case avro.Double:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return value.Value{}, numErr(err, text, "double")
		}
		return value.Double(f), nil
	case avro.Null:
		if text == "" || text == "null" {
			return value.Null(), nil
		}
		return value.Value{}, mismatch("%q is not null", text)
	}
	return value.Value{}, mismatch("unsupported primitive %s", typ)
}

func numErr(err error, text, typ string) error {
	if errors.Is(err, strconv.ErrRange) {
		return outOfRange("%s overflows %s", text, typ)
	}
	return mismatch("%q is not a valid %s", text, typ)
}

// FromNative converts a plain Go value (schema defaults, YAML/JSON scalars,
// decoded maps and lists) into a value of the given schema type.
func FromNative(schema avro.Schema, v any) (value.Value, error) {
	return fromNative(schema, v, false)
}

// FromJSON is FromNative for decoded JSON documents written by Value.JSON:
// strings under bytes and fixed nodes carry one byte per code point.
func FromJSON(schema avro.Schema, doc any) (value.Value, error) {
	return fromNative(schema, doc, true)
}

func fromNative(schema avro.Schema, v any, latin1 bool) (value.Value, error) {
	if latin1 {
		if text, ok := v.(string); ok {
			switch schema.Type() {
			case avro.Bytes, avro.Fixed:
				b, err := value.FromLatin1(text)
				if err != nil {
					return value.Value{}, mismatch("%s: %v", schema.Type(), err)
				}
				v = b
			}
		}
	}
	switch s := schema.(type) {
	case *avro.RefSchema:
		return fromNative(s.Schema(), v, latin1)
	case *avro.NullSchema:
		if v == nil {
			return value.Null(), nil
		}
		return value.Value{}, mismatch("%v is not null", v)
	case *avro.RecordSchema:
		m, ok := asMap(v)
		if !ok {
			return value.Value{}, mismatch("record %s expects a map, got %T", s.Name(), v)
		}
		for key := range m {
			if !hasField(s, key) {
				return value.Value{}, mismatch("record %s has no field %q", s.Name(), key)
			}
		}
		fields := make([]value.Field, 0, len(s.Fields()))
		for _, f := range s.Fields() {
			raw, present := m[f.Name()]
			var (
				fv  value.Value
				err error
			)
			switch {
			case present:
				fv, err = fromNative(f.Type(), raw, latin1)
			case f.HasDefault():
				fv, err = FromNative(f.Type(), f.Default())
			case IsNullable(f.Type()):
				fv = value.Null()
			default:
				err = mismatch("record %s: required field %q missing", s.Name(), f.Name())
			}
			if err != nil {
				return value.Value{}, err
			}
			fields = append(fields, value.Field{Name: f.Name(), Value: fv})
		}
		return value.Record(s.FullName(), fields...), nil
	case *avro.ArraySchema:
		items, ok := asSlice(v)
		if !ok {
			return value.Value{}, mismatch("array expects a list, got %T", v)
		}
		out := make([]value.Value, 0, len(items))
		for _, item := range items {
			iv, err := fromNative(s.Items(), item, latin1)
			if err != nil {
				return value.Value{}, err
			}
			out = append(out, iv)
		}
		return value.Array(out...), nil
	case *avro.MapSchema:
		m, ok := asMap(v)
		if !ok {
			return value.Value{}, mismatch("map expects a map, got %T", v)
		}
		out := make(map[string]value.Value, len(m))
		for k, raw := range m {
			mv, err := fromNative(s.Values(), raw, latin1)
			if err != nil {
				return value.Value{}, err
			}
			out[k] = mv
		}
		return value.Map(out), nil
	case *avro.UnionSchema:
		if v == nil {
			if hasNull(s) {
				return value.Null(), nil
			}
			return value.Value{}, mismatch("union %s does not accept null", s.String())
		}
		var errs []error
		for _, branch := range s.Types() {
			if branch.Type() == avro.Null {
				continue
			}
			bv, err := fromNative(branch, v, latin1)
			if err == nil {
				return bv, nil
			}
			errs = append(errs, err)
		}
		return value.Value{}, errors.Join(append([]error{mismatch("no branch of union %s accepts %v", s.String(), v)}, errs...)...)
	case *avro.EnumSchema:
		sym, ok := v.(string)
		if !ok {
			return value.Value{}, mismatch("enum %s expects a symbol, got %T", s.Name(), v)
		}
		return CoerceText(s, sym)
	case *avro.FixedSchema:
		if b, ok := asBytes(v); ok {
			if len(b) != s.Size() {
				return value.Value{}, mismatch("fixed %s needs %d bytes, got %d", s.Name(), s.Size(), len(b))
			}
			return value.Fixed(b), nil
		}
		return value.Value{}, mismatch("fixed %s expects bytes, got %T", s.Name(), v)
	case *avro.PrimitiveSchema:
		return primitiveFromNative(s, v)
	}
	return value.Value{}, mismatch("unsupported schema %s", schema.Type())
}

func primitiveFromNative(s *avro.PrimitiveSchema, v any) (value.Value, error) {
	if text, ok := v.(string); ok && s.Type() != avro.String && s.Type() != avro.Bytes {
		return CoerceText(s, text)
	}
	if t, ok := v.(time.Time); ok {
		return timeValue(s, t)
	}
	switch s.Type() {
	case avro.Null:
		if v == nil {
			return value.Null(), nil
		}
	case avro.Boolean:
		if b, ok := v.(bool); ok {
			return value.Bool(b), nil
		}
	case avro.String:
		switch v.(type) {
		case string:
			return CoerceText(s, v.(string))
		case bool, int, int32, int64, float32, float64, json.Number:
			return CoerceText(s, fmt.Sprint(v))
		}
	case avro.Bytes:
		if b, ok := asBytes(v); ok {
			return value.Bytes(b), nil
		}
	case avro.Int:
		n, ok, err := toInt64(v)
		if err != nil {
			return value.Value{}, err
		}
		if ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return value.Value{}, outOfRange("%d overflows int", n)
			}
			return value.Int(int32(n)), nil
		}
	case avro.Long:
		n, ok, err := toInt64(v)
		if err != nil {
			return value.Value{}, err
		}
		if ok {
			return value.Long(n), nil
		}
	case avro.Float:
		if f, ok := toFloat64(v); ok {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return value.Value{}, outOfRange("%v overflows float", f)
			}
			return value.Float(float32(f)), nil
		}
	case avro.Double:
		if f, ok := toFloat64(v); ok {
			return value.Double(f), nil
		}
	}
	return value.Value{}, mismatch("%s cannot hold %T", s.Type(), v)
}

func hasField(s *avro.RecordSchema, name string) bool {
	for _, f := range s.Fields() {
		if f.Name() == name {
			return true
		}
	}
	return false
}

func toInt64(v any) (int64, bool, error) {
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int8:
		return int64(n), true, nil
	case int16:
		return int64(n), true, nil
	case int32:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false, outOfRange("%d overflows long", n)
		}
		return int64(n), true, nil
	case uint8:
		return int64(n), true, nil
	case uint16:
		return int64(n), true, nil
	case uint32:
		return int64(n), true, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, false, outOfRange("%d overflows long", n)
		}
		return int64(n), true, nil
	case float32:
		return toInt64(float64(n))
	case float64:
		if n != math.Trunc(n) {
			return 0, false, mismatch("%v is not an integer", n)
		}
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false, outOfRange("%v overflows long", n)
		}
		return int64(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, numErr(err, n.String(), "long")
		}
		return i, true, nil
	}
	return 0, false, nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok, err := toInt64(v); ok && err == nil {
		return float64(i), true
	}
	return 0, false
}

func asBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), true
	case string:
		return []byte(b), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		for i := range out {
			out[i] = byte(rv.Index(i).Uint())
		}
		return out, true
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// IsNullable reports whether schema is a union with a null branch.
func IsNullable(schema avro.Schema) bool {
	if ref, ok := schema.(*avro.RefSchema); ok {
		schema = ref.Schema()
	}
	u, ok := schema.(*avro.UnionSchema)
	return ok && hasNull(u)
}
