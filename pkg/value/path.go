package value

import (
	"fmt"

	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
)

// Lookup follows path from v and returns the value found there.
func Lookup(v Value, path fieldpath.Path) (Value, bool) {
	cur := v
	for _, seg := range path.Segments() {
		var ok bool
		if seg.IsIndex() {
			cur, ok = cur.Index(seg.Index())
		} else {
			cur, ok = cur.Get(seg.Name())
		}
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// Replace returns a copy of v with the node at path swapped for next. The
// path must already exist.
func Replace(v Value, path fieldpath.Path, next Value) (Value, error) {
	return replace(v, path.Segments(), next, path)
}

func replace(v Value, segs []fieldpath.Segment, next Value, full fieldpath.Path) (Value, error) {
	if len(segs) == 0 {
		return next, nil
	}
	seg := segs[0]
	if seg.IsIndex() {
		if v.kind != KindArray || seg.Index() >= len(v.items) {
			return Value{}, fmt.Errorf("value: %s not found", full)
		}
		child, err := replace(v.items[seg.Index()], segs[1:], next, full)
		if err != nil {
			return Value{}, err
		}
		out := v
		out.items = append([]Value(nil), v.items...)
		out.items[seg.Index()] = child
		return out, nil
	}
	if v.kind != KindRecord && v.kind != KindMap {
		return Value{}, fmt.Errorf("value: %s not found", full)
	}
	for i, f := range v.fields {
		if f.Name != seg.Name() {
			continue
		}
		child, err := replace(f.Value, segs[1:], next, full)
		if err != nil {
			return Value{}, err
		}
		out := v
		out.fields = append([]Field(nil), v.fields...)
		out.fields[i] = Field{Name: f.Name, Value: child}
		return out, nil
	}
	return Value{}, fmt.Errorf("value: %s not found", full)
}

// Walk visits every node depth first, parents before children.
func Walk(v Value, fn func(path fieldpath.Path, node Value) error) error {
	return walk(fieldpath.Root(), v, fn)
}

func walk(path fieldpath.Path, v Value, fn func(fieldpath.Path, Value) error) error {
	if err := fn(path, v); err != nil {
		return err
	}
	switch v.kind {
	case KindArray:
		for i, item := range v.items {
			if err := walk(path.Index(i), item, fn); err != nil {
				return err
			}
		}
	case KindMap, KindRecord:
		for _, f := range v.fields {
			if err := walk(path.Field(f.Name), f.Value, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
