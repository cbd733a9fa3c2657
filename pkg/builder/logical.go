package builder

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/value"
)

var timeOfDayLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04"}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

// coerceLogical handles logical annotations on primitive schemas. handled is
// false for logical types that carry no textual form of their own, which then
// fall back to the underlying primitive.
func coerceLogical(s *avro.PrimitiveSchema, l avro.LogicalSchema, text string) (value.Value, bool, error) {
	trimmed := strings.TrimSpace(text)
	switch l.Type() {
	case avro.UUID:
		if s.Type() != avro.String {
			return value.Value{}, false, nil
		}
		if _, err := uuid.Parse(trimmed); err != nil {
			return value.Value{}, true, mismatch("%q is not a uuid", text)
		}
		return value.String(trimmed), true, nil
	case avro.Date:
		if isIntegerText(trimmed) {
			return value.Value{}, false, nil
		}
		t, err := time.Parse(time.DateOnly, trimmed)
		if err != nil {
			return value.Value{}, true, mismatch("%q is not a yyyy-MM-dd date", text)
		}
		v, err := timeValue(s, t)
		return v, true, err
	case avro.TimeMillis, avro.TimeMicros:
		if isIntegerText(trimmed) {
			return value.Value{}, false, nil
		}
		t, ok := parseAny(timeOfDayLayouts, trimmed)
		if !ok {
			return value.Value{}, true, mismatch("%q is not a time of day", text)
		}
		v, err := timeValue(s, t)
		return v, true, err
	case avro.TimestampMillis, avro.TimestampMicros, avro.LocalTimestampMillis, avro.LocalTimestampMicros:
		if isIntegerText(trimmed) {
			return value.Value{}, false, nil
		}
		t, ok := parseAny(timestampLayouts, trimmed)
		if !ok {
			return value.Value{}, true, mismatch("%q is not an RFC 3339 timestamp", text)
		}
		v, err := timeValue(s, t)
		return v, true, err
	case avro.Decimal:
		if s.Type() != avro.Bytes {
			return value.Value{}, false, nil
		}
		dec, _ := l.(*avro.DecimalLogicalSchema)
		unscaled, err := decimalUnscaled(trimmed, dec)
		if err != nil {
			return value.Value{}, true, err
		}
		return value.Bytes(twosComplement(unscaled)), true, nil
	}
	return value.Value{}, false, nil
}

// timeValue converts t into the representation of the logical type on s.
func timeValue(s *avro.PrimitiveSchema, t time.Time) (value.Value, error) {
	l := s.Logical()
	if l == nil {
		return value.Value{}, mismatch("%s has no time logical type", s.Type())
	}
	switch l.Type() {
	case avro.Date:
		days := floorDiv(t.UTC().Unix(), 86400)
		if s.Type() == avro.Long {
			return value.Long(days), nil
		}
		return value.Int(int32(days)), nil
	case avro.TimeMillis:
		return value.Int(int32(sinceMidnight(t) / time.Millisecond)), nil
	case avro.TimeMicros:
		return value.Long(int64(sinceMidnight(t) / time.Microsecond)), nil
	case avro.TimestampMillis, avro.LocalTimestampMillis:
		return value.Long(t.UnixMilli()), nil
	case avro.TimestampMicros, avro.LocalTimestampMicros:
		return value.Long(t.UnixMicro()), nil
	}
	return value.Value{}, mismatch("logical type %s does not hold a time", l.Type())
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func parseAny(layouts []string, text string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isIntegerText(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// decimalUnscaled scales text by 10^scale and checks the precision bound.
func decimalUnscaled(text string, dec *avro.DecimalLogicalSchema) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, mismatch("%q is not a decimal", text)
	}
	scale, precision := 0, 0
	if dec != nil {
		scale, precision = dec.Scale(), dec.Precision()
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	r.Mul(r, new(big.Rat).SetInt(factor))
	if !r.IsInt() {
		return nil, outOfRange("%s has more than %d fractional digits", text, scale)
	}
	n := new(big.Int).Set(r.Num())
	if precision > 0 && len(new(big.Int).Abs(n).String()) > precision {
		return nil, outOfRange("%s exceeds precision %d", text, precision)
	}
	return n, nil
}

// twosComplement returns the minimal big-endian two's complement encoding.
func twosComplement(n *big.Int) []byte {
	if n.Sign() >= 0 {
		size := n.BitLen()/8 + 1
		out := make([]byte, size)
		n.FillBytes(out)
		return out
	}
	mag := new(big.Int).Neg(n)
	mag.Sub(mag, big.NewInt(1))
	size := mag.BitLen()/8 + 1
	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*size))
	mod.Add(mod, n)
	out := make([]byte, size)
	mod.FillBytes(out)
	return out
}

// DecimalText renders a two's complement unscaled payload at scale.
func DecimalText(raw []byte, scale int) string {
	n := new(big.Int).SetBytes(raw)
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(8*len(raw))))
	}
	r := new(big.Rat).SetFrac(n, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
	return r.FloatString(scale)
}

func decimalFixed(text string, dec *avro.DecimalLogicalSchema, size int) (value.Value, error) {
	unscaled, err := decimalUnscaled(strings.TrimSpace(text), dec)
	if err != nil {
		return value.Value{}, err
	}
	raw := twosComplement(unscaled)
	if len(raw) > size {
		return value.Value{}, outOfRange("%s does not fit in %d bytes", text, size)
	}
	out := make([]byte, size)
	pad := byte(0)
	if unscaled.Sign() < 0 {
		pad = 0xff
	}
	for i := 0; i < size-len(raw); i++ {
		out[i] = pad
	}
	copy(out[size-len(raw):], raw)
	return value.Fixed(out), nil
}
