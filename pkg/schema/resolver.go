package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-avrocontract/pkg/model"
)

// Resolver turns a Ref into a record schema by loading and parsing the
// source, consulting the cache first. Concurrent misses for the same key
// share one resolution.
type Resolver struct {
	loader Loader
	parser Parser
	cache  Cache
	group  singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache injects the record cache. The default is a fresh MemoryCache.
func WithCache(cache Cache) ResolverOption {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// NewResolver wires a loader and parser.
func NewResolver(loader Loader, parser Parser, options ...ResolverOption) (*Resolver, error) {
	if loader == nil {
		return nil, errors.New("schema resolver: loader is required")
	}
	if parser == nil {
		return nil, errors.New("schema resolver: parser is required")
	}
	r := &Resolver{loader: loader, parser: parser}
	for _, opt := range options {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache()
	}
	return r, nil
}

// Resolve returns the record named by ref. Failures are
// *model.SchemaResolutionError.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (*avro.RecordSchema, error) {
	if ref.Source == nil || ref.Record == "" {
		return nil, &model.SchemaResolutionError{Source: ref.String(), Record: ref.Record, Err: errors.New("incomplete reference")}
	}
	key := ref.Key()
	if rec, ok := r.cache.Load(key); ok {
		return rec, nil
	}

	v, err, _ := r.group.Do(fmt.Sprintf("%s|%s|%s", key.Kind, key.Location, key.Record), func() (any, error) {
		set, err := r.Parse(ctx, ref.Source)
		if err != nil {
			return nil, err
		}
		rec, ok := set.Record(ref.Record)
		if !ok {
			return nil, &model.SchemaResolutionError{Source: ref.Source.Location(), Record: ref.Record}
		}
		return r.cache.LoadOrStore(key, rec), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*avro.RecordSchema), nil
}

// Parse loads and parses src without touching the cache.
func (r *Resolver) Parse(ctx context.Context, src Source) (*Set, error) {
	if src == nil {
		return nil, &model.SchemaResolutionError{Err: errors.New("source is nil")}
	}
	doc, err := r.loader.Load(ctx, src)
	if err != nil {
		return nil, &model.SchemaResolutionError{Source: src.Location(), Err: err}
	}
	set, err := r.parser.Parse(ctx, doc)
	if err != nil {
		return nil, &model.SchemaResolutionError{Source: src.Location(), Err: err}
	}
	return set, nil
}
