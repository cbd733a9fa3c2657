package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hamba/avro/v2"

	internalLoader "github.com/goliatone/go-avrocontract/internal/schema/loader"
	internalParser "github.com/goliatone/go-avrocontract/internal/schema/parser"
	"github.com/goliatone/go-avrocontract/pkg/builder"
	"github.com/goliatone/go-avrocontract/pkg/codec"
	"github.com/goliatone/go-avrocontract/pkg/content"
	"github.com/goliatone/go-avrocontract/pkg/generators"
	"github.com/goliatone/go-avrocontract/pkg/matchers"
	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/schema"
	"github.com/goliatone/go-avrocontract/pkg/value"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom schema loader.
func WithLoader(loader schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithLoaderOptions configures the built-in loader. Ignored when WithLoader
// or WithResolver is supplied.
func WithLoaderOptions(options ...schema.LoaderOption) Option {
	return func(o *Orchestrator) {
		o.loaderOptions = append(o.loaderOptions, options...)
	}
}

// WithParser injects a custom schema parser.
func WithParser(parser schema.Parser) Option {
	return func(o *Orchestrator) {
		o.parser = parser
	}
}

// WithCache injects the resolved record cache shared across requests.
func WithCache(cache schema.Cache) Option {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithResolver injects a fully wired resolver, bypassing loader, parser and
// cache options.
func WithResolver(resolver *schema.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = resolver
	}
}

// WithBuilder injects the literal walker.
func WithBuilder(b *builder.Builder) Option {
	return func(o *Orchestrator) {
		o.builder = b
	}
}

// WithContentRegistry overrides which formats are treated as textual.
func WithContentRegistry(registry *content.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the clock used by time matchers and generators.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithSeed makes random generators deterministic.
func WithSeed(seed1, seed2 uint64) Option {
	return func(o *Orchestrator) {
		o.seed = &[2]uint64{seed1, seed2}
	}
}

// Orchestrator coordinates schema resolution, literal walking, encoding and
// verification. Missing dependencies are initialised with the built-in
// implementations so callers can start with a single constructor call.
type Orchestrator struct {
	loader        schema.Loader
	loaderOptions []schema.LoaderOption
	parser        schema.Parser
	cache         schema.Cache
	resolver      *schema.Resolver
	builder       *builder.Builder
	registry      *content.Registry
	logger        *slog.Logger
	clock         func() time.Time
	seed          *[2]uint64
	initialiseErr error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// ConfigureRequest describes an interaction to build.
type ConfigureRequest struct {
	// Source locates the schema document.
	Source schema.Source

	// Record names the record to build, short or fully qualified.
	Record string

	// ContentType is the requested content type, e.g. "avro/binary". The
	// format part selects binary or textual output; empty means avro.
	ContentType string

	// Literal is the interaction body with DSL expressions at its leaves.
	Literal map[string]any
}

// Interaction is the outcome of Configure.
type Interaction struct {
	Record     string
	Contents   content.Descriptor
	Value      value.Value
	Rules      model.RuleSet
	Generators model.GeneratorSet
	// FieldContentTypes carries matching(contentType, ...) declarations keyed
	// by field path.
	FieldContentTypes map[string]string
}

// Configure resolves the schema, walks the literal and encodes the example.
func (o *Orchestrator) Configure(ctx context.Context, req ConfigureRequest) (Interaction, error) {
	if err := o.ready(ctx); err != nil {
		return Interaction{}, err
	}

	rec, err := o.resolve(ctx, req.Source, req.Record)
	if err != nil {
		return Interaction{}, err
	}

	res, err := o.builder.Build(rec, req.Literal)
	if err != nil {
		return Interaction{}, fmt.Errorf("orchestrator: build %s: %w", rec.Name(), err)
	}

	desc, err := o.describe(rec, req.ContentType)
	if err != nil {
		return Interaction{}, err
	}
	payload, err := o.encode(rec, desc, []value.Value{res.Value})
	if err != nil {
		return Interaction{}, err
	}

	o.logger.DebugContext(ctx, "interaction configured",
		slog.String("record", rec.FullName()),
		slog.String("content_type", desc.ContentType),
		slog.Int("bytes", len(payload)),
		slog.Int("rule_paths", res.Rules.Body().Len()),
		slog.Int("generator_paths", res.Generators.Body().Len()),
	)

	return Interaction{
		Record:            rec.Name(),
		Contents:          desc.WithPayload(payload),
		Value:             res.Value,
		Rules:             res.Rules,
		Generators:        res.Generators,
		FieldContentTypes: res.ContentTypes,
	}, nil
}

// ConfigureInteraction reads the pact: keys out of config and configures the
// rest as the literal. contentType is used when config carries no
// pact:content-type.
func (o *Orchestrator) ConfigureInteraction(ctx context.Context, contentType string, config map[string]any) (Interaction, error) {
	req, err := ParseConfig(config)
	if err != nil {
		return Interaction{}, err
	}
	if req.ContentType == "" {
		req.ContentType = contentType
	}
	return o.Configure(ctx, req)
}

// VerifyRequest describes a payload to check.
type VerifyRequest struct {
	Source      schema.Source
	Record      string
	ContentType string
	Payload     []byte

	// Expected optionally holds the encoded interaction the rules were built
	// from; type and equality rules compare against it.
	Expected []byte

	Rules model.RuleSet
}

// VerifyResult holds the decoded records and any rule mismatches.
type VerifyResult struct {
	Values     []value.Value
	Mismatches []matchers.Mismatch
}

// OK reports whether verification found no mismatches.
func (r VerifyResult) OK() bool {
	return len(r.Mismatches) == 0
}

// Verify decodes every record in the payload and replays the body rules
// against each of them. A malformed payload is an error, not a mismatch.
func (o *Orchestrator) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	if err := o.ready(ctx); err != nil {
		return VerifyResult{}, err
	}

	rec, err := o.resolve(ctx, req.Source, req.Record)
	if err != nil {
		return VerifyResult{}, err
	}

	values, err := o.decode(rec, req.ContentType, req.Payload)
	if err != nil {
		return VerifyResult{}, err
	}

	var expected value.Value
	if len(req.Expected) > 0 {
		all, err := o.decode(rec, req.ContentType, req.Expected)
		if err != nil {
			return VerifyResult{}, fmt.Errorf("orchestrator: expected payload: %w", err)
		}
		if len(all) > 0 {
			expected = all[0]
		}
	}

	var mismatches []matchers.Mismatch
	if req.ContentType != "" {
		if m, ok := contentTypeMismatch(req.ContentType, rec); ok {
			mismatches = append(mismatches, m)
		}
	}
	if req.Rules != nil {
		mismatches = append(mismatches, matchers.VerifyAll(req.Rules.Body(), expected, values)...)
	}

	o.logger.DebugContext(ctx, "payload verified",
		slog.String("record", rec.FullName()),
		slog.Int("records", len(values)),
		slog.Int("mismatches", len(mismatches)),
	)
	return VerifyResult{Values: values, Mismatches: mismatches}, nil
}

// GenerateRequest describes a payload to regenerate.
type GenerateRequest struct {
	Source        schema.Source
	Record        string
	ContentType   string
	Payload       []byte
	Generators    model.GeneratorSet
	ProviderState map[string]any
}

// Generate decodes the payload, applies the body generators to every record
// and re-encodes the result.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (content.Descriptor, error) {
	if err := o.ready(ctx); err != nil {
		return content.Descriptor{}, err
	}

	rec, err := o.resolve(ctx, req.Source, req.Record)
	if err != nil {
		return content.Descriptor{}, err
	}

	values, err := o.decode(rec, req.ContentType, req.Payload)
	if err != nil {
		return content.Descriptor{}, err
	}

	if req.Generators != nil {
		applier := o.applier(req.ProviderState)
		for i, v := range values {
			values[i], err = applier.Apply(rec, v, req.Generators.Body())
			if err != nil {
				return content.Descriptor{}, fmt.Errorf("orchestrator: %w", err)
			}
		}
	}

	desc, err := o.describe(rec, req.ContentType)
	if err != nil {
		return content.Descriptor{}, err
	}
	payload, err := o.encode(rec, desc, values)
	if err != nil {
		return content.Descriptor{}, err
	}

	o.logger.DebugContext(ctx, "payload generated",
		slog.String("record", rec.FullName()),
		slog.Int("records", len(values)),
	)
	return desc.WithPayload(payload), nil
}

// Records lists the record names defined by src.
func (o *Orchestrator) Records(ctx context.Context, src schema.Source) ([]string, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	set, err := o.resolver.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return set.SortedRecords(), nil
}

// Resolve returns the record schema named by record inside src.
func (o *Orchestrator) Resolve(ctx context.Context, src schema.Source, record string) (*avro.RecordSchema, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	return o.resolve(ctx, src, record)
}

func (o *Orchestrator) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.initialiseErr
}

func (o *Orchestrator) resolve(ctx context.Context, src schema.Source, record string) (*avro.RecordSchema, error) {
	ref, err := schema.NewRef(src, record)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	rec, err := o.resolver.Resolve(ctx, ref)
	if err != nil {
		o.logger.WarnContext(ctx, "schema resolution failed", slog.String("ref", ref.String()), slog.Any("error", err))
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return rec, nil
}

func (o *Orchestrator) describe(rec *avro.RecordSchema, contentType string) (content.Descriptor, error) {
	format := content.DefaultFormat
	if contentType != "" {
		f, _, err := content.Parse(contentType)
		if err != nil {
			return content.Descriptor{}, fmt.Errorf("orchestrator: %w", err)
		}
		format = f
	}
	desc, err := o.registry.Describe(rec.Name(), format)
	if err != nil {
		return content.Descriptor{}, fmt.Errorf("orchestrator: %w", err)
	}
	return desc, nil
}

// encode writes values in binary, or as JSON for textual formats (one
// document per record, newline separated).
func (o *Orchestrator) encode(rec *avro.RecordSchema, desc content.Descriptor, values []value.Value) ([]byte, error) {
	if desc.Hint != content.HintText {
		payload, err := codec.EncodeAll(rec, values)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: encode %s: %w", rec.Name(), err)
		}
		return payload, nil
	}

	var out []byte
	for i, v := range values {
		doc, err := json.Marshal(v.JSON())
		if err != nil {
			return nil, fmt.Errorf("orchestrator: encode %s as json: %w", rec.Name(), err)
		}
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, doc...)
	}
	return out, nil
}

// decode reads binary payloads with the codec and textual ones as a stream of
// JSON documents.
func (o *Orchestrator) decode(rec *avro.RecordSchema, contentType string, payload []byte) ([]value.Value, error) {
	if !o.textual(contentType) {
		values, err := codec.Decode(rec, payload)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: decode %s: %w", rec.Name(), err)
		}
		return values, nil
	}

	var values []value.Value
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	for dec.More() {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("orchestrator: decode %s: %w", rec.Name(),
				&model.MalformedPayloadError{Offset: int(dec.InputOffset()), Msg: err.Error()})
		}
		v, err := builder.FromJSON(rec, doc)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: decode %s: %w", rec.Name(),
				&model.MalformedPayloadError{Offset: int(dec.InputOffset()), Msg: err.Error()})
		}
		values = append(values, v)
	}
	return values, nil
}

func (o *Orchestrator) textual(contentType string) bool {
	if contentType == "" {
		return false
	}
	format, _, err := content.Parse(contentType)
	return err == nil && o.registry.IsTextual(format)
}

func (o *Orchestrator) applier(state map[string]any) *generators.Applier {
	opts := []generators.Option{generators.WithClock(o.clock), generators.WithProviderState(state)}
	if o.seed != nil {
		opts = append(opts, generators.WithSeed(o.seed[0], o.seed[1]))
	}
	return generators.New(opts...)
}

func contentTypeMismatch(contentType string, rec *avro.RecordSchema) (matchers.Mismatch, bool) {
	_, record, err := content.Parse(contentType)
	if err != nil {
		return matchers.Mismatch{Path: "$", Rule: model.RuleContentType, Actual: contentType, Message: err.Error()}, true
	}
	if record != "" && record != rec.Name() && record != rec.FullName() {
		return matchers.Mismatch{
			Path:     "$",
			Rule:     model.RuleContentType,
			Expected: rec.Name(),
			Actual:   record,
			Message:  fmt.Sprintf("content type names record %q, expected %q", record, rec.Name()),
		}, true
	}
	return matchers.Mismatch{}, false
}

func (o *Orchestrator) applyDefaults() {
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.registry == nil {
		o.registry = content.Default()
	}
	if o.builder == nil {
		o.builder = builder.New(builder.WithClock(o.clock))
	}
	if o.resolver != nil {
		return
	}
	if o.loader == nil {
		o.loader = internalLoader.New(schema.NewLoaderOptions(o.loaderOptions...))
	}
	if o.parser == nil {
		o.parser = internalParser.New(schema.NewParserOptions())
	}
	if o.cache == nil {
		o.cache = schema.NewMemoryCache()
	}
	resolver, err := schema.NewResolver(o.loader, o.parser, schema.WithCache(o.cache))
	if err != nil {
		o.initialiseErr = fmt.Errorf("orchestrator: %w", err)
		return
	}
	o.resolver = resolver
}
