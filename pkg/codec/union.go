package codec

import (
	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/value"
)

// MatchBranch picks the union branch able to hold v. Records match by full
// name, enums by symbol, fixed by size; other kinds match by Avro type.
func MatchBranch(u *avro.UnionSchema, v value.Value) (int, bool) {
	for i, t := range u.Types() {
		if ref, ok := t.(*avro.RefSchema); ok {
			t = ref.Schema()
		}
		if branchAccepts(t, v) {
			return i, true
		}
	}
	return -1, false
}

func branchAccepts(t avro.Schema, v value.Value) bool {
	switch v.Kind() {
	case value.KindNull:
		return t.Type() == avro.Null
	case value.KindBoolean:
		return t.Type() == avro.Boolean
	case value.KindInt:
		return t.Type() == avro.Int
	case value.KindLong:
		return t.Type() == avro.Long
	case value.KindFloat:
		return t.Type() == avro.Float
	case value.KindDouble:
		return t.Type() == avro.Double
	case value.KindBytes:
		return t.Type() == avro.Bytes
	case value.KindString:
		return t.Type() == avro.String
	case value.KindArray:
		return t.Type() == avro.Array
	case value.KindMap:
		return t.Type() == avro.Map
	case value.KindEnum:
		e, ok := t.(*avro.EnumSchema)
		if !ok {
			return false
		}
		syms := e.Symbols()
		i := v.EnumIndex()
		return i >= 0 && i < len(syms) && syms[i] == v.AsString()
	case value.KindFixed:
		f, ok := t.(*avro.FixedSchema)
		return ok && f.Size() == v.Len()
	case value.KindRecord:
		r, ok := t.(*avro.RecordSchema)
		return ok && r.FullName() == v.RecordName()
	}
	return false
}
