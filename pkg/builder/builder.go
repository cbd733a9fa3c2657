// Package builder walks an Avro record schema together with an interaction
// literal, producing the concrete example value plus the matching rules and
// generators declared by the DSL expressions at its leaves.
package builder

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hamba/avro/v2"

	"github.com/goliatone/go-avrocontract/pkg/expr"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/timefmt"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// Result is the outcome of a successful walk.
type Result struct {
	Value      value.Value
	Rules      model.RuleSet
	Generators model.GeneratorSet
	// ContentTypes holds the content type declared by matching(contentType,
	// ...) keyed by field path.
	ContentTypes map[string]string
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used for datetime/date/time matchers that
// carry no example.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// Builder is stateless between calls and safe for concurrent use.
type Builder struct {
	clock func() time.Time
}

// New returns a Builder.
func New(options ...Option) *Builder {
	b := &Builder{clock: time.Now}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Build walks record against literal. No partial result is returned on error.
func (b *Builder) Build(record *avro.RecordSchema, literal map[string]any) (Result, error) {
	if record == nil {
		return Result{}, errors.New("builder: record schema is nil")
	}
	w := &walker{
		clock:        b.clock,
		acc:          fieldpath.NewAccumulator(),
		rules:        model.NewPathIndex[model.MatchingRule](),
		gens:         model.NewPathIndex[model.Generator](),
		contentTypes: make(map[string]string),
	}
	if literal == nil {
		literal = map[string]any{}
	}
	v, err := w.walkRecord(record, literal)
	if err != nil {
		return Result{}, err
	}

	rules := model.RuleSet{}
	rules.Body().Merge(w.rules)
	gens := model.GeneratorSet{}
	gens.Body().Merge(w.gens)
	return Result{Value: v, Rules: rules, Generators: gens, ContentTypes: w.contentTypes}, nil
}

type walker struct {
	clock        func() time.Time
	acc          *fieldpath.Accumulator
	rules        *model.PathIndex[model.MatchingRule]
	gens         *model.PathIndex[model.Generator]
	contentTypes map[string]string
}

func (w *walker) fieldErr(kind error, format string, args ...any) error {
	return model.NewFieldError(kind, w.acc.String(), format, args...)
}

func (w *walker) walk(schema avro.Schema, input any) (value.Value, error) {
	switch s := schema.(type) {
	case *avro.RefSchema:
		return w.walk(s.Schema(), input)
	case *avro.RecordSchema:
		return w.walkRecord(s, input)
	case *avro.ArraySchema:
		return w.walkArray(s, input)
	case *avro.MapSchema:
		return w.walkMap(s, input)
	case *avro.UnionSchema:
		return w.walkUnion(s, input)
	default:
		return w.walkScalar(schema, input)
	}
}

func (w *walker) walkRecord(rec *avro.RecordSchema, input any) (value.Value, error) {
	m, ok := asMap(input)
	if !ok {
		return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "record %s expects a map, got %T", rec.Name(), input)
	}

	known := make(map[string]struct{}, len(rec.Fields()))
	for _, f := range rec.Fields() {
		known[f.Name()] = struct{}{}
	}
	for _, key := range sortedKeys(m) {
		if _, ok := known[key]; !ok {
			return value.Value{}, model.NewFieldError(model.ErrUnknownField, w.acc.Path().Field(key).String(),
				"record %s has no field %q", rec.Name(), key)
		}
	}

	fields := make([]value.Field, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		raw, present := m[f.Name()]
		var v value.Value
		err := w.acc.WithField(f.Name(), func() error {
			var err error
			if present {
				v, err = w.walk(f.Type(), raw)
			} else {
				v, err = w.absent(f)
			}
			return err
		})
		if err != nil {
			return value.Value{}, err
		}
		fields = append(fields, value.Field{Name: f.Name(), Value: v})
	}
	return value.Record(rec.FullName(), fields...), nil
}

// absent resolves a field missing from the literal: its default, null for
// nullable fields, otherwise an error.
func (w *walker) absent(f *avro.Field) (value.Value, error) {
	if f.HasDefault() {
		v, err := FromNative(f.Type(), f.Default())
		if err != nil {
			return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "default for %s: %v", f.Name(), err)
		}
		return v, nil
	}
	if IsNullable(f.Type()) {
		return value.Null(), nil
	}
	return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "required field %q is missing and has no default", f.Name())
}

func (w *walker) walkArray(s *avro.ArraySchema, input any) (value.Value, error) {
	items, ok := asSlice(input)
	if !ok {
		return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "array expects a list, got %T", input)
	}
	out := make([]value.Value, 0, len(items))
	for i, item := range items {
		var v value.Value
		err := w.acc.WithIndex(i, func() error {
			var err error
			v, err = w.walk(s.Items(), item)
			return err
		})
		if err != nil {
			return value.Value{}, err
		}
		out = append(out, v)
	}
	return value.Array(out...), nil
}

func (w *walker) walkMap(s *avro.MapSchema, input any) (value.Value, error) {
	m, ok := asMap(input)
	if !ok {
		return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "map expects a map, got %T", input)
	}
	out := make(map[string]value.Value, len(m))
	for _, key := range sortedKeys(m) {
		var v value.Value
		err := w.acc.WithField(key, func() error {
			var err error
			v, err = w.walk(s.Values(), m[key])
			return err
		})
		if err != nil {
			return value.Value{}, err
		}
		out[key] = v
	}
	return value.Map(out), nil
}

func (w *walker) walkUnion(s *avro.UnionSchema, input any) (value.Value, error) {
	if input == nil {
		if hasNull(s) {
			return value.Null(), nil
		}
		return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "union %s does not accept null", s.String())
	}
	if s.Nullable() {
		_, typ := s.Indices()
		return w.walk(s.Types()[typ], input)
	}

	var errs []error
	for _, branch := range s.Types() {
		if branch.Type() == avro.Null {
			continue
		}
		child := &walker{
			clock:        w.clock,
			acc:          w.acc,
			rules:        model.NewPathIndex[model.MatchingRule](),
			gens:         model.NewPathIndex[model.Generator](),
			contentTypes: make(map[string]string),
		}
		v, err := child.walk(branch, input)
		if err != nil {
			if errors.Is(err, model.ErrParse) {
				return value.Value{}, err
			}
			errs = append(errs, err)
			continue
		}
		w.rules.Merge(child.rules)
		w.gens.Merge(child.gens)
		for k, ct := range child.contentTypes {
			w.contentTypes[k] = ct
		}
		return v, nil
	}
	return value.Value{}, &model.FieldError{
		Kind: model.ErrTypeMismatch,
		Path: w.acc.String(),
		Msg:  fmt.Sprintf("no branch of union %s accepts the value", s.String()),
		Err:  errors.Join(errs...),
	}
}

func (w *walker) walkScalar(schema avro.Schema, input any) (value.Value, error) {
	path := w.acc.String()
	text, isText := input.(string)
	if !isText {
		if input == nil && schema.Type() != avro.Null {
			return value.Value{}, w.fieldErr(model.ErrTypeMismatch, "%s does not accept null", schema.Type())
		}
		v, err := FromNative(schema, input)
		if err != nil {
			return value.Value{}, withPath(err, path)
		}
		return v, nil
	}

	list, err := expr.ParseList(text)
	if err != nil {
		return value.Value{}, &model.FieldError{Kind: model.ErrParse, Path: path, Err: err}
	}

	example, ok := expr.Example(list)
	if !ok {
		example, err = w.generatedExample(list)
		if err != nil {
			return value.Value{}, &model.FieldError{Kind: model.ErrParse, Path: path, Err: err}
		}
	}

	v, err := CoerceText(schema, example)
	if err != nil {
		return value.Value{}, withPath(err, path)
	}

	for _, e := range list {
		if rule, ok := e.Rule(); ok {
			w.rules.Add(path, rule)
		}
		if gen, ok := e.Generator(); ok {
			w.gens.Add(path, gen)
		}
		if e.Kind == expr.KindMatching && e.Matcher == expr.MatchContentType {
			w.contentTypes[path] = e.Param
		}
	}
	return v, nil
}

// generatedExample renders the example of a time matcher that omitted one.
func (w *walker) generatedExample(list []expr.Expression) (string, error) {
	for i := len(list) - 1; i >= 0; i-- {
		e := list[i]
		if e.Kind == expr.KindMatching && (e.Matcher == expr.MatchDateTime || e.Matcher == expr.MatchDate || e.Matcher == expr.MatchTime) {
			return timefmt.Format(w.clock(), e.Param)
		}
	}
	return "", errors.New("expression carries no example value")
}

func withPath(err error, path string) error {
	var ce *coerceError
	if errors.As(err, &ce) {
		return &model.FieldError{Kind: ce.kind, Path: path, Msg: ce.msg}
	}
	return &model.FieldError{Kind: model.ErrTypeMismatch, Path: path, Err: err}
}

func hasNull(s *avro.UnionSchema) bool {
	for _, t := range s.Types() {
		if t.Type() == avro.Null {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
