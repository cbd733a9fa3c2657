// Package scaffold walks an Avro record schema interactively and writes the
// interaction literal a consumer test would pass to the plugin. Each scalar
// leaf is prompted for a matcher and an example; the result is checked with
// the builder before it is returned.
package scaffold

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-avrocontract/pkg/builder"
	"github.com/goliatone/go-avrocontract/pkg/expr"
	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
	"github.com/goliatone/go-avrocontract/pkg/timefmt"
)

// Literal is the matcher choice for a plain value with no rule attached.
const Literal = "literal"

// Entry is one key of a scaffolded record or map.
type Entry struct {
	Key   string
	Value any
}

// Object keeps keys in schema order so the written document reads like the
// schema.
type Object []Entry

// Map converts o, and every nested Object, into the map form the builder
// consumes.
func (o Object) Map() map[string]any {
	out := make(map[string]any, len(o))
	for _, e := range o {
		out[e.Key] = plain(e.Value)
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case Object:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// Result is a scaffolded literal together with the interaction it builds.
type Result struct {
	Record string
	Fields Object
	Built  builder.Result
}

// Document renders the contents configuration as YAML: the pact: keys first,
// then the literal in schema order. An empty contentType is omitted.
func (r Result) Document(schemaRef, contentType string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	pairs := Object{
		{Key: orchestrator.KeySchema, Value: schemaRef},
		{Key: orchestrator.KeyRecordName, Value: r.Record},
	}
	if contentType != "" {
		pairs = append(pairs, Entry{Key: orchestrator.KeyContentType, Value: contentType})
	}
	for _, e := range append(pairs, r.Fields...) {
		val, err := toNode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("scaffold: %s: %w", e.Key, err)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Key}, val)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("scaffold: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("scaffold: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case Object:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range t {
			child, err := toNode(e.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Key}, child)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

// Option configures a Scaffolder.
type Option func(*Scaffolder)

// WithClock pins the clock used when a time matcher leaves its example out.
func WithClock(clock func() time.Time) Option {
	return func(s *Scaffolder) {
		if clock != nil {
			s.builder = builder.New(builder.WithClock(clock))
		}
	}
}

// Scaffolder drives the prompts.
type Scaffolder struct {
	driver  PromptDriver
	builder *builder.Builder
}

// New returns a Scaffolder prompting through driver.
func New(driver PromptDriver, options ...Option) *Scaffolder {
	s := &Scaffolder{driver: driver, builder: builder.New()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Scaffold prompts for every field of record and returns the literal once the
// builder accepts it.
func (s *Scaffolder) Scaffold(ctx context.Context, record *avro.RecordSchema) (Result, error) {
	if s.driver == nil {
		return Result{}, errors.New("scaffold: prompt driver is required")
	}
	if record == nil {
		return Result{}, errors.New("scaffold: record schema is nil")
	}
	if err := s.driver.Info(ctx, fmt.Sprintf("Scaffolding %s", record.FullName())); err != nil {
		return Result{}, err
	}

	fields, err := s.record(ctx, fieldpath.Root(), record)
	if err != nil {
		return Result{}, err
	}
	built, err := s.builder.Build(record, fields.Map())
	if err != nil {
		return Result{}, fmt.Errorf("scaffold: literal for %s: %w", record.Name(), err)
	}
	return Result{Record: record.Name(), Fields: fields, Built: built}, nil
}

func (s *Scaffolder) walk(ctx context.Context, path fieldpath.Path, schema avro.Schema) (any, error) {
	switch t := schema.(type) {
	case *avro.RefSchema:
		return s.walk(ctx, path, t.Schema())
	case *avro.RecordSchema:
		return s.record(ctx, path, t)
	case *avro.ArraySchema:
		return s.array(ctx, path, t)
	case *avro.MapSchema:
		return s.mapping(ctx, path, t)
	case *avro.UnionSchema:
		return s.union(ctx, path, t)
	case *avro.NullSchema:
		return nil, nil
	default:
		return s.scalar(ctx, path, schema)
	}
}

func (s *Scaffolder) record(ctx context.Context, path fieldpath.Path, rec *avro.RecordSchema) (Object, error) {
	out := make(Object, 0, len(rec.Fields()))
	for _, f := range rec.Fields() {
		fp := path.Field(f.Name())
		if f.HasDefault() {
			keep, err := s.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("Use the default for %s (%v)?", fp, f.Default()),
				Default: true,
			})
			if err != nil {
				return nil, err
			}
			if keep {
				continue
			}
		}
		v, err := s.walk(ctx, fp, f.Type())
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: f.Name(), Value: v})
	}
	return out, nil
}

func (s *Scaffolder) array(ctx context.Context, path fieldpath.Path, arr *avro.ArraySchema) ([]any, error) {
	items := []any{}
	add, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add items to %s?", path)})
	if err != nil {
		return nil, err
	}
	for add {
		v, err := s.walk(ctx, path.Index(len(items)), arr.Items())
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		add, err = s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add another item to %s?", path)})
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Scaffolder) mapping(ctx context.Context, path fieldpath.Path, m *avro.MapSchema) (Object, error) {
	out := Object{}
	seen := map[string]struct{}{}
	add, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add entries to %s?", path)})
	if err != nil {
		return nil, err
	}
	for add {
		key, err := s.driver.Input(ctx, InputConfig{
			Message: fmt.Sprintf("Key for %s", path),
			Validator: func(v string) error {
				if v == "" {
					return errors.New("key is required")
				}
				if _, dup := seen[v]; dup {
					return fmt.Errorf("key %q already set", v)
				}
				return nil
			},
		})
		if err != nil {
			return nil, err
		}
		seen[key] = struct{}{}
		v, err := s.walk(ctx, path.Field(key), m.Values())
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Value: v})
		add, err = s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add another entry to %s?", path)})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Scaffolder) union(ctx context.Context, path fieldpath.Path, u *avro.UnionSchema) (any, error) {
	if u.Nullable() {
		set, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Set %s?", path), Default: true})
		if err != nil {
			return nil, err
		}
		if !set {
			return nil, nil
		}
		_, typ := u.Indices()
		return s.walk(ctx, path, u.Types()[typ])
	}

	branches := u.Types()
	labels := make([]string, len(branches))
	for i, b := range branches {
		labels[i] = branchLabel(b)
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message: fmt.Sprintf("Branch for %s", path),
		Options: labels,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(branches) {
		return nil, fmt.Errorf("scaffold: %s: no branch selected", path)
	}
	return s.walk(ctx, path, branches[idx])
}

func branchLabel(schema avro.Schema) string {
	if named, ok := schema.(avro.NamedSchema); ok {
		return named.FullName()
	}
	return string(schema.Type())
}

func (s *Scaffolder) scalar(ctx context.Context, path fieldpath.Path, schema avro.Schema) (string, error) {
	options := matcherOptions(schema)
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message: fmt.Sprintf("Matcher for %s (%s)", path, typeLabel(schema)),
		Options: options,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return "", fmt.Errorf("scaffold: %s: no matcher selected", path)
	}

	base, err := s.base(ctx, path, options[idx])
	if err != nil {
		return "", err
	}
	timed := base.Kind == expr.KindMatching && isTimeMatcher(base.Matcher)

	msg := fmt.Sprintf("Example for %s", path)
	if timed {
		msg += " (blank to generate)"
	}
	example, err := s.driver.Input(ctx, InputConfig{
		Message: msg,
		Default: sample(schema),
		Validator: func(v string) error {
			if v == "" && timed {
				return nil
			}
			return check(schema, with(base, v))
		},
	})
	if err != nil {
		return "", err
	}
	if example == "" && timed {
		return base.String(), nil
	}
	return with(base, example).String(), nil
}

// base prompts for the auxiliary argument of choice and returns the
// expression without its example.
func (s *Scaffolder) base(ctx context.Context, path fieldpath.Path, choice string) (expr.Expression, error) {
	switch choice {
	case Literal:
		return expr.Literal(""), nil
	case "notEmpty":
		return expr.Expression{Kind: expr.KindNotEmpty}, nil
	}

	e := expr.Expression{Kind: expr.KindMatching, Matcher: expr.Matcher(choice)}
	var (
		cfg InputConfig
		ok  bool
	)
	switch e.Matcher {
	case expr.MatchRegex:
		cfg, ok = InputConfig{
			Message: fmt.Sprintf("Pattern for %s", path),
			Validator: func(v string) error {
				if v == "" {
					return errors.New("pattern is required")
				}
				_, err := regexp.Compile("^(?:" + v + ")$")
				return err
			},
		}, true
	case expr.MatchContentType:
		cfg, ok = InputConfig{
			Message: fmt.Sprintf("Content type for %s", path),
			Default: "application/json",
			Validator: func(v string) error {
				_, _, err := mime.ParseMediaType(v)
				return err
			},
		}, true
	case expr.MatchDateTime, expr.MatchDate, expr.MatchTime:
		cfg, ok = InputConfig{
			Message: fmt.Sprintf("Format for %s", path),
			Default: defaultFormat(e.Matcher),
			Validator: func(v string) error {
				_, err := timefmt.Layout(v)
				return err
			},
		}, true
	}
	if !ok {
		return e, nil
	}
	param, err := s.driver.Input(ctx, cfg)
	if err != nil {
		return expr.Expression{}, err
	}
	e.Param = param
	return e, nil
}

func with(e expr.Expression, example string) expr.Expression {
	e.Value, e.HasValue = example, true
	return e
}

// check confirms the rendered expression parses back and its example fits
// schema.
func check(schema avro.Schema, e expr.Expression) error {
	parsed, err := expr.Parse(e.String())
	if err != nil {
		return err
	}
	_, err = builder.CoerceText(schema, parsed.Value)
	return err
}

func isTimeMatcher(m expr.Matcher) bool {
	return m == expr.MatchDateTime || m == expr.MatchDate || m == expr.MatchTime
}

func defaultFormat(m expr.Matcher) string {
	switch m {
	case expr.MatchDate:
		return timefmt.DefaultDate
	case expr.MatchTime:
		return timefmt.DefaultTime
	}
	return timefmt.DefaultDateTime
}

func logicalType(schema avro.Schema) avro.LogicalType {
	if p, ok := schema.(*avro.PrimitiveSchema); ok && p.Logical() != nil {
		return p.Logical().Type()
	}
	if f, ok := schema.(*avro.FixedSchema); ok && f.Logical() != nil {
		return f.Logical().Type()
	}
	return ""
}

func typeLabel(schema avro.Schema) string {
	if lt := logicalType(schema); lt != "" {
		return string(lt)
	}
	return branchLabel(schema)
}

// matcherOptions lists the choices that make sense for schema; Literal is
// always first.
func matcherOptions(schema avro.Schema) []string {
	common := []string{Literal, "notEmpty", string(expr.MatchType), string(expr.MatchEqualTo)}
	switch logicalType(schema) {
	case avro.Date:
		return append(common, string(expr.MatchDate))
	case avro.TimeMillis, avro.TimeMicros:
		return append(common, string(expr.MatchTime))
	case avro.TimestampMillis, avro.TimestampMicros, avro.LocalTimestampMillis, avro.LocalTimestampMicros:
		return append(common, string(expr.MatchDateTime))
	case avro.Decimal:
		return append(common, string(expr.MatchDecimal), string(expr.MatchNumber))
	case avro.UUID:
		return append(common, string(expr.MatchRegex))
	}

	switch schema.Type() {
	case avro.Int, avro.Long:
		return append(common, string(expr.MatchInteger), string(expr.MatchNumber))
	case avro.Float, avro.Double:
		return append(common, string(expr.MatchNumber), string(expr.MatchDecimal))
	case avro.Boolean:
		return []string{Literal, string(expr.MatchType), string(expr.MatchEqualTo), string(expr.MatchBoolean)}
	case avro.String:
		return append(common,
			string(expr.MatchRegex), string(expr.MatchInclude), string(expr.MatchSemver), string(expr.MatchContentType),
			string(expr.MatchDateTime), string(expr.MatchDate), string(expr.MatchTime))
	case avro.Bytes:
		return append(common, string(expr.MatchContentType))
	case avro.Enum, avro.Fixed:
		return append(common, string(expr.MatchRegex))
	}
	return common
}

// sample suggests an example that the builder accepts for schema.
func sample(schema avro.Schema) string {
	switch logicalType(schema) {
	case avro.Date:
		return "2000-01-01"
	case avro.TimeMillis, avro.TimeMicros:
		return "12:00:00"
	case avro.TimestampMillis, avro.TimestampMicros, avro.LocalTimestampMillis, avro.LocalTimestampMicros:
		return "2000-01-01T00:00:00Z"
	case avro.Decimal:
		return "0"
	case avro.UUID:
		return uuid.Nil.String()
	}

	switch t := schema.(type) {
	case *avro.EnumSchema:
		if syms := t.Symbols(); len(syms) > 0 {
			return syms[0]
		}
	case *avro.FixedSchema:
		return strings.Repeat("0", t.Size())
	}

	switch schema.Type() {
	case avro.Int, avro.Long:
		return "1"
	case avro.Float, avro.Double:
		return "1.0"
	case avro.Boolean:
		return "true"
	case avro.String:
		return "example"
	}
	return ""
}
