package codec

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"unicode/utf8"

	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// maxZeroSizeItems bounds blocks whose items occupy no bytes (null, empty
// records) so a hostile count cannot spin the decoder.
const maxZeroSizeItems = 1 << 16

// Decoder reads consecutive records from one buffer. It is not safe for
// concurrent use; Reset rewinds it to the start of the buffer.
type Decoder struct {
	schema avro.Schema
	data   []byte
	pos    int
	sizes  map[avro.Schema]int
}

// NewDecoder returns a decoder positioned at the start of data.
func NewDecoder(schema avro.Schema, data []byte) *Decoder {
	return &Decoder{schema: schema, data: data, sizes: make(map[avro.Schema]int)}
}

// More reports whether unread bytes remain.
func (d *Decoder) More() bool {
	return d.pos < len(d.data)
}

// Offset returns the current read position.
func (d *Decoder) Offset() int {
	return d.pos
}

// Reset rewinds to the start of the buffer.
func (d *Decoder) Reset() {
	d.pos = 0
}

// Next decodes one record. A record that consumes no input is rejected since
// the remaining bytes could never be read.
func (d *Decoder) Next() (value.Value, error) {
	if !d.More() {
		return value.Value{}, d.malformed("no data left to decode")
	}
	start := d.pos
	v, err := d.read(d.schema)
	if err != nil {
		return value.Value{}, err
	}
	if d.pos == start {
		return value.Value{}, d.malformed("record consumed no bytes")
	}
	return v, nil
}

// Decode reads every record in data. An empty buffer yields no records.
func Decode(schema avro.Schema, data []byte) ([]value.Value, error) {
	var out []value.Value
	for v, err := range Records(schema, data) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Records iterates the records in data. Iteration stops after the first
// error. Each call starts from the beginning of data.
func Records(schema avro.Schema, data []byte) iter.Seq2[value.Value, error] {
	return func(yield func(value.Value, error) bool) {
		d := NewDecoder(schema, data)
		for d.More() {
			v, err := d.Next()
			if err != nil {
				yield(value.Value{}, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (d *Decoder) malformed(format string, args ...any) error {
	return &model.MalformedPayloadError{Offset: d.pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *Decoder) read(schema avro.Schema) (value.Value, error) {
	switch s := schema.(type) {
	case *avro.RefSchema:
		return d.read(s.Schema())
	case *avro.NullSchema:
		return value.Null(), nil
	case *avro.PrimitiveSchema:
		return d.readPrimitive(s.Type())
	case *avro.EnumSchema:
		idx, err := d.readLong()
		if err != nil {
			return value.Value{}, err
		}
		syms := s.Symbols()
		if idx < 0 || idx >= int64(len(syms)) {
			return value.Value{}, d.malformed("enum %s index %d out of range", s.Name(), idx)
		}
		return value.Enum(syms[idx], int(idx)), nil
	case *avro.FixedSchema:
		raw, err := d.take(s.Size())
		if err != nil {
			return value.Value{}, err
		}
		return value.Fixed(raw), nil
	case *avro.ArraySchema:
		var items []value.Value
		err := d.readBlocks(s.Items(), func() error {
			item, err := d.read(s.Items())
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
		if err != nil {
			return value.Value{}, err
		}
		return value.Array(items...), nil
	case *avro.MapSchema:
		entries := make(map[string]value.Value)
		err := d.readBlocks(s.Values(), func() error {
			key, err := d.readString()
			if err != nil {
				return err
			}
			v, err := d.read(s.Values())
			if err != nil {
				return err
			}
			entries[key] = v
			return nil
		})
		if err != nil {
			return value.Value{}, err
		}
		return value.Map(entries), nil
	case *avro.RecordSchema:
		fields := make([]value.Field, 0, len(s.Fields()))
		for _, f := range s.Fields() {
			v, err := d.read(f.Type())
			if err != nil {
				return value.Value{}, err
			}
			fields = append(fields, value.Field{Name: f.Name(), Value: v})
		}
		return value.Record(s.FullName(), fields...), nil
	case *avro.UnionSchema:
		idx, err := d.readLong()
		if err != nil {
			return value.Value{}, err
		}
		types := s.Types()
		if idx < 0 || idx >= int64(len(types)) {
			return value.Value{}, d.malformed("union branch %d out of range", idx)
		}
		return d.read(types[idx])
	}
	return value.Value{}, d.malformed("unsupported schema %s", schema.Type())
}

func (d *Decoder) readPrimitive(typ avro.Type) (value.Value, error) {
	switch typ {
	case avro.Null:
		return value.Null(), nil
	case avro.Boolean:
		raw, err := d.take(1)
		if err != nil {
			return value.Value{}, err
		}
		switch raw[0] {
		case 0:
			return value.Bool(false), nil
		case 1:
			return value.Bool(true), nil
		}
		d.pos--
		return value.Value{}, d.malformed("invalid boolean byte 0x%02x", raw[0])
	case avro.Int:
		n, err := d.readLong()
		if err != nil {
			return value.Value{}, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return value.Value{}, d.malformed("int %d out of range", n)
		}
		return value.Int(int32(n)), nil
	case avro.Long:
		n, err := d.readLong()
		if err != nil {
			return value.Value{}, err
		}
		return value.Long(n), nil
	case avro.Float:
		raw, err := d.take(4)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	case avro.Double:
		raw, err := d.take(8)
		if err != nil {
			return value.Value{}, err
		}
		return value.Double(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case avro.Bytes:
		raw, err := d.readBytes()
		if err != nil {
			return value.Value{}, err
		}
		return value.Bytes(raw), nil
	case avro.String:
		s, err := d.readString()
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	}
	return value.Value{}, d.malformed("unsupported primitive %s", typ)
}

// readBlocks drives the array/map block layout, calling item once per entry.
func (d *Decoder) readBlocks(itemSchema avro.Schema, item func() error) error {
	minSize := d.minSize(itemSchema)
	total := 0
	for {
		count, err := d.readLong()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if count < 0 {
			if count == math.MinInt64 {
				return d.malformed("block count overflows")
			}
			count = -count
			size, err := d.readLong()
			if err != nil {
				return err
			}
			if size < 0 {
				return d.malformed("negative block size %d", size)
			}
		}
		remaining := int64(len(d.data) - d.pos)
		if minSize > 0 && count > remaining/int64(minSize) {
			return d.malformed("block of %d items exceeds remaining %d bytes", count, remaining)
		}
		if minSize == 0 && int64(total)+count > maxZeroSizeItems {
			return d.malformed("block of %d zero-size items exceeds limit", count)
		}
		for i := int64(0); i < count; i++ {
			if err := item(); err != nil {
				return err
			}
		}
		total += int(count)
	}
}

func (d *Decoder) readLong() (int64, error) {
	if d.pos >= len(d.data) {
		return 0, d.malformed("unexpected end of data reading varint")
	}
	u, n := binary.Uvarint(d.data[d.pos:])
	switch {
	case n == 0:
		return 0, d.malformed("unexpected end of data reading varint")
	case n < 0 || n > binary.MaxVarintLen64:
		return 0, d.malformed("varint overflows 64 bits")
	}
	d.pos += n
	return int64(u>>1) ^ -int64(u&1), nil
}

func (d *Decoder) readBytes() ([]byte, error) {
	n, err := d.readLong()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, d.malformed("negative length %d", n)
	}
	if n > int64(len(d.data)-d.pos) {
		return nil, d.malformed("length %d exceeds remaining %d bytes", n, len(d.data)-d.pos)
	}
	return d.take(int(n))
}

func (d *Decoder) readString() (string, error) {
	raw, err := d.readBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", d.malformed("string is not valid UTF-8")
	}
	return string(raw), nil
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n > len(d.data)-d.pos {
		return nil, d.malformed("need %d bytes, %d remaining", n, len(d.data)-d.pos)
	}
	out := append([]byte(nil), d.data[d.pos:d.pos+n]...)
	d.pos += n
	return out, nil
}
