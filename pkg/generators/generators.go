// Package generators applies recorded generators to a value tree, producing
// fresh values for timestamps, provider state lookups, identifiers and random
// data before a message is re-encoded.
package generators

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/builder"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/timefmt"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxRandomSize bounds the size and digits parameters of random generators.
const maxRandomSize = 1 << 16

var stateRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Option configures an Applier.
type Option func(*Applier)

// WithClock overrides the clock used by DateTime, Date and Time generators.
func WithClock(clock func() time.Time) Option {
	return func(a *Applier) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithSeed makes random generators deterministic.
func WithSeed(seed1, seed2 uint64) Option {
	return func(a *Applier) {
		a.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
}

// WithProviderState supplies the values referenced by ProviderState
// expressions such as ${id}.
func WithProviderState(state map[string]any) Option {
	return func(a *Applier) {
		a.state = state
	}
}

// Applier is safe for concurrent use.
type Applier struct {
	clock func() time.Time
	state map[string]any

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an Applier with the wall clock and a randomly seeded source.
func New(options ...Option) *Applier {
	a := &Applier{
		clock: time.Now,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Apply returns a copy of v with every generator in gens applied at its path.
// When a path carries several generators the last one wins. Schema guides the
// coercion of generated text into the field type.
func (a *Applier) Apply(schema avro.Schema, v value.Value, gens *model.PathIndex[model.Generator]) (value.Value, error) {
	out := v
	for _, raw := range gens.Paths() {
		path, err := fieldpath.Parse(raw)
		if err != nil {
			return value.Value{}, fmt.Errorf("generators: %w", err)
		}
		for _, gen := range gens.Get(raw) {
			node, err := builder.SchemaAt(schema, out, path)
			if err != nil {
				return value.Value{}, fmt.Errorf("generators: %s: %w", raw, err)
			}
			current, _ := value.Lookup(out, path)
			next, changed, err := a.generate(gen, node, current)
			if err != nil {
				return value.Value{}, fmt.Errorf("generators: %s: %s: %w", raw, gen.Type, err)
			}
			if !changed {
				continue
			}
			out, err = value.Replace(out, path, next)
			if err != nil {
				return value.Value{}, fmt.Errorf("generators: %w", err)
			}
		}
	}
	return out, nil
}

func (a *Applier) generate(gen model.Generator, node avro.Schema, current value.Value) (value.Value, bool, error) {
	switch gen.Type {
	case model.GeneratorDateTime, model.GeneratorDate, model.GeneratorTime:
		format := stringParam(gen, "format")
		if format == "" {
			format = defaultFormat(gen.Type)
		}
		text, err := timefmt.Format(a.clock(), format)
		if err != nil {
			return value.Value{}, false, err
		}
		v, err := builder.CoerceText(node, text)
		return v, err == nil, err
	case model.GeneratorProviderState:
		return a.providerState(stringParam(gen, "expression"), node)
	case model.GeneratorUUID:
		id, err := uuid.NewRandomFromReader(a.reader())
		if err != nil {
			return value.Value{}, false, err
		}
		v, err := builder.CoerceText(node, id.String())
		return v, err == nil, err
	case model.GeneratorRandomInt:
		lo, hi := intParam(gen, "min", 0), intParam(gen, "max", 2147483647)
		if hi < lo {
			return value.Value{}, false, fmt.Errorf("max %d is below min %d", hi, lo)
		}
		n := a.between(lo, hi)
		v, err := builder.CoerceText(node, strconv.FormatInt(n, 10))
		return v, err == nil, err
	case model.GeneratorRandomDecimal:
		digits := intParam(gen, "digits", 6)
		if digits < 2 {
			digits = 2
		}
		if digits > maxRandomSize {
			return value.Value{}, false, fmt.Errorf("digits %d exceeds %d", digits, maxRandomSize)
		}
		v, err := builder.CoerceText(node, a.decimal(int(digits)))
		return v, err == nil, err
	case model.GeneratorRandomString:
		size := intParam(gen, "size", 20)
		if size > maxRandomSize {
			return value.Value{}, false, fmt.Errorf("size %d exceeds %d", size, maxRandomSize)
		}
		v, err := builder.CoerceText(node, a.alnum(int(size)))
		return v, err == nil, err
	case model.GeneratorRandomBoolean:
		v, err := builder.CoerceText(node, strconv.FormatBool(a.between(0, 1) == 1))
		return v, err == nil, err
	}
	return current, false, fmt.Errorf("unknown generator type")
}

// providerState resolves ${name} references. An expression that is a single
// reference takes the state value as is; otherwise references are
// interpolated as text. Missing keys leave the value unchanged.
func (a *Applier) providerState(expression string, node avro.Schema) (value.Value, bool, error) {
	if expression == "" {
		return value.Value{}, false, fmt.Errorf("expression is required")
	}
	if m := stateRef.FindStringSubmatch(expression); m != nil && m[0] == expression {
		raw, ok := a.state[m[1]]
		if !ok {
			return value.Value{}, false, nil
		}
		v, err := builder.FromNative(node, raw)
		return v, err == nil, err
	}

	missing := false
	text := stateRef.ReplaceAllStringFunc(expression, func(ref string) string {
		raw, ok := a.state[ref[2:len(ref)-1]]
		if !ok {
			missing = true
			return ref
		}
		return fmt.Sprint(raw)
	})
	if missing {
		return value.Value{}, false, nil
	}
	v, err := builder.CoerceText(node, text)
	return v, err == nil, err
}

// between returns a uniform value in [lo, hi]. The span is taken in uint64 so
// ranges wider than MaxInt64 do not overflow.
func (a *Applier) between(lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	a.mu.Lock()
	defer a.mu.Unlock()
	if span == math.MaxUint64 {
		return int64(a.rng.Uint64())
	}
	return lo + int64(a.rng.Uint64N(span+1))
}

func (a *Applier) decimal(digits int) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	point := 1 + a.rng.IntN(digits-1)
	for i := 0; i < digits; i++ {
		if i == point {
			b.WriteByte('.')
		}
		d := a.rng.IntN(10)
		if i == 0 && d == 0 {
			d = 1 + a.rng.IntN(9)
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

func (a *Applier) alnum(size int) string {
	if size <= 0 {
		size = 20
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]byte, size)
	for i := range out {
		out[i] = alphanumeric[a.rng.IntN(len(alphanumeric))]
	}
	return string(out)
}

func (a *Applier) reader() *randReader {
	return &randReader{a: a}
}

type randReader struct{ a *Applier }

func (r *randReader) Read(p []byte) (int, error) {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()
	for i := range p {
		p[i] = byte(r.a.rng.Uint32())
	}
	return len(p), nil
}

func stringParam(gen model.Generator, key string) string {
	v, ok := gen.Param(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func intParam(gen model.Generator, key string, fallback int64) int64 {
	v, ok := gen.Param(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func defaultFormat(kind string) string {
	switch kind {
	case model.GeneratorDate:
		return timefmt.DefaultDate
	case model.GeneratorTime:
		return timefmt.DefaultTime
	}
	return timefmt.DefaultDateTime
}
