package codec

import "github.com/hamba/avro/v2"

// minSize is the fewest bytes any value of schema can encode to. Recursive
// references count as zero while they are being measured.
func (d *Decoder) minSize(schema avro.Schema) int {
	if n, ok := d.sizes[schema]; ok {
		if n < 0 {
			return 0
		}
		return n
	}
	d.sizes[schema] = -1
	n := measure(d, schema)
	d.sizes[schema] = n
	return n
}

func measure(d *Decoder, schema avro.Schema) int {
	switch s := schema.(type) {
	case *avro.RefSchema:
		return d.minSize(s.Schema())
	case *avro.NullSchema:
		return 0
	case *avro.PrimitiveSchema:
		switch s.Type() {
		case avro.Null:
			return 0
		case avro.Float:
			return 4
		case avro.Double:
			return 8
		}
		return 1
	case *avro.FixedSchema:
		return s.Size()
	case *avro.RecordSchema:
		total := 0
		for _, f := range s.Fields() {
			total += d.minSize(f.Type())
		}
		return total
	}
	// enum index, union branch index and the terminating block count
	return 1
}
