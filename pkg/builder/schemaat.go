package builder

import (
	"fmt"

	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/codec"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// SchemaAt returns the schema node addressed by path inside root. Unions are
// resolved against the concrete value found at the same position in v so the
// branch that was actually encoded is followed.
func SchemaAt(root avro.Schema, v value.Value, path fieldpath.Path) (avro.Schema, error) {
	node := root
	cur := v
	for _, seg := range path.Segments() {
		node = resolveBranch(node, cur)
		switch s := node.(type) {
		case *avro.RecordSchema:
			if seg.IsIndex() {
				return nil, fmt.Errorf("builder: %s indexes record %s", path, s.Name())
			}
			var found *avro.Field
			for _, f := range s.Fields() {
				if f.Name() == seg.Name() {
					found = f
					break
				}
			}
			if found == nil {
				return nil, fmt.Errorf("builder: %s: record %s has no field %q", path, s.Name(), seg.Name())
			}
			node = found.Type()
			cur, _ = cur.Get(seg.Name())
		case *avro.MapSchema:
			if seg.IsIndex() {
				return nil, fmt.Errorf("builder: %s indexes a map", path)
			}
			node = s.Values()
			cur, _ = cur.Get(seg.Name())
		case *avro.ArraySchema:
			if !seg.IsIndex() {
				return nil, fmt.Errorf("builder: %s names a field of an array", path)
			}
			node = s.Items()
			cur, _ = cur.Index(seg.Index())
		default:
			return nil, fmt.Errorf("builder: %s descends into %s", path, node.Type())
		}
	}
	return resolveBranch(node, cur), nil
}

// resolveBranch unwraps refs and picks the union branch matching v.
func resolveBranch(node avro.Schema, v value.Value) avro.Schema {
	if ref, ok := node.(*avro.RefSchema); ok {
		node = ref.Schema()
	}
	u, ok := node.(*avro.UnionSchema)
	if !ok {
		return node
	}
	if branch, ok := codec.MatchBranch(u, v); ok {
		return resolveBranch(u.Types()[branch], v)
	}
	if u.Nullable() {
		_, typ := u.Indices()
		return resolveBranch(u.Types()[typ], v)
	}
	return node
}
