// Package codec implements the Avro binary encoding for value trees.
//
// Encoding is deterministic: records are written in schema field order, map
// entries in key order, and non-empty arrays and maps as a single block.
// Decoding accepts any valid block layout, including negative block counts
// followed by a byte size, and reads several concatenated records from one
// buffer.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// Encode returns the binary encoding of v.
func Encode(schema avro.Schema, v value.Value) ([]byte, error) {
	return Append(nil, schema, v)
}

// Append appends the encoding of v to dst. On error dst is returned
// unchanged.
func Append(dst []byte, schema avro.Schema, v value.Value) ([]byte, error) {
	e := &encoder{buf: dst, acc: fieldpath.NewAccumulator()}
	if err := e.write(schema, v); err != nil {
		return dst, err
	}
	return e.buf, nil
}

// EncodeAll writes every value back to back into one buffer.
func EncodeAll(schema avro.Schema, values []value.Value) ([]byte, error) {
	var (
		out []byte
		err error
	)
	for _, v := range values {
		out, err = Append(out, schema, v)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type encoder struct {
	buf []byte
	acc *fieldpath.Accumulator
}

func (e *encoder) mismatch(format string, args ...any) error {
	return model.NewFieldError(model.ErrTypeMismatch, e.acc.String(), format, args...)
}

func (e *encoder) expect(v value.Value, kind value.Kind) error {
	if v.Kind() != kind {
		return e.mismatch("expected %s, got %s", kind, v.Kind())
	}
	return nil
}

func (e *encoder) write(schema avro.Schema, v value.Value) error {
	switch s := schema.(type) {
	case *avro.RefSchema:
		return e.write(s.Schema(), v)
	case *avro.NullSchema:
		return e.expect(v, value.KindNull)
	case *avro.PrimitiveSchema:
		return e.writePrimitive(s.Type(), v)
	case *avro.EnumSchema:
		if err := e.expect(v, value.KindEnum); err != nil {
			return err
		}
		for i, sym := range s.Symbols() {
			if sym == v.AsString() {
				e.writeLong(int64(i))
				return nil
			}
		}
		return e.mismatch("%q is not a symbol of enum %s", v.AsString(), s.Name())
	case *avro.FixedSchema:
		if err := e.expect(v, value.KindFixed); err != nil {
			return err
		}
		if v.Len() != s.Size() {
			return e.mismatch("fixed %s needs %d bytes, got %d", s.Name(), s.Size(), v.Len())
		}
		e.buf = append(e.buf, v.AsBytes()...)
		return nil
	case *avro.ArraySchema:
		if err := e.expect(v, value.KindArray); err != nil {
			return err
		}
		items := v.Items()
		if len(items) > 0 {
			e.writeLong(int64(len(items)))
			for i, item := range items {
				if err := e.acc.WithIndex(i, func() error { return e.write(s.Items(), item) }); err != nil {
					return err
				}
			}
		}
		e.writeLong(0)
		return nil
	case *avro.MapSchema:
		if err := e.expect(v, value.KindMap); err != nil {
			return err
		}
		entries := v.Fields()
		if len(entries) > 0 {
			e.writeLong(int64(len(entries)))
			for _, entry := range entries {
				e.writeString(entry.Name)
				if err := e.acc.WithField(entry.Name, func() error { return e.write(s.Values(), entry.Value) }); err != nil {
					return err
				}
			}
		}
		e.writeLong(0)
		return nil
	case *avro.RecordSchema:
		if err := e.expect(v, value.KindRecord); err != nil {
			return err
		}
		for _, f := range s.Fields() {
			fv, ok := v.Get(f.Name())
			if !ok {
				return model.NewFieldError(model.ErrTypeMismatch, e.acc.Path().Field(f.Name()).String(),
					"record %s is missing field %q", s.Name(), f.Name())
			}
			if err := e.acc.WithField(f.Name(), func() error { return e.write(f.Type(), fv) }); err != nil {
				return err
			}
		}
		return nil
	case *avro.UnionSchema:
		idx, ok := MatchBranch(s, v)
		if !ok {
			return e.mismatch("no branch of union %s holds %s", s.String(), v.Kind())
		}
		e.writeLong(int64(idx))
		return e.write(s.Types()[idx], v)
	}
	return e.mismatch("unsupported schema %s", schema.Type())
}

func (e *encoder) writePrimitive(typ avro.Type, v value.Value) error {
	switch typ {
	case avro.Null:
		return e.expect(v, value.KindNull)
	case avro.Boolean:
		if err := e.expect(v, value.KindBoolean); err != nil {
			return err
		}
		if v.AsBool() {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case avro.Int:
		if err := e.expect(v, value.KindInt); err != nil {
			return err
		}
		e.writeLong(int64(v.AsInt()))
	case avro.Long:
		if err := e.expect(v, value.KindLong); err != nil {
			return err
		}
		e.writeLong(v.AsLong())
	case avro.Float:
		if err := e.expect(v, value.KindFloat); err != nil {
			return err
		}
		e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v.AsFloat()))
	case avro.Double:
		if err := e.expect(v, value.KindDouble); err != nil {
			return err
		}
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v.AsDouble()))
	case avro.Bytes:
		if err := e.expect(v, value.KindBytes); err != nil {
			return err
		}
		raw := v.AsBytes()
		e.writeLong(int64(len(raw)))
		e.buf = append(e.buf, raw...)
	case avro.String:
		if err := e.expect(v, value.KindString); err != nil {
			return err
		}
		e.writeString(v.AsString())
	default:
		return e.mismatch("unsupported primitive %s", typ)
	}
	return nil
}

// writeLong appends a zigzag varint.
func (e *encoder) writeLong(n int64) {
	e.buf = binary.AppendUvarint(e.buf, uint64((n<<1)^(n>>63)))
}

func (e *encoder) writeString(s string) {
	e.writeLong(int64(len(s)))
	e.buf = append(e.buf, s...)
}
