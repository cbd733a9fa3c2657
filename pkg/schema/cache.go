package schema

import (
	"sync"
	"sync/atomic"

	"github.com/hamba/avro/v2"
)

// Key identifies a resolved record.
type Key struct {
	Kind     SourceKind
	Location string
	Record   string
}

// Cache stores resolved record schemas. Entries are populated on miss and
// never evicted; implementations must be safe for concurrent use.
type Cache interface {
	Load(key Key) (*avro.RecordSchema, bool)
	// LoadOrStore keeps the first stored schema for key and returns it.
	LoadOrStore(key Key, rec *avro.RecordSchema) *avro.RecordSchema
}

// MemoryCache is a Cache backed by sync.Map. Reads take no locks.
type MemoryCache struct {
	entries sync.Map
	size    atomic.Int64
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Load(key Key) (*avro.RecordSchema, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*avro.RecordSchema), true
}

func (c *MemoryCache) LoadOrStore(key Key, rec *avro.RecordSchema) *avro.RecordSchema {
	actual, loaded := c.entries.LoadOrStore(key, rec)
	if !loaded {
		c.size.Add(1)
	}
	return actual.(*avro.RecordSchema)
}

// Len returns the number of cached records.
func (c *MemoryCache) Len() int {
	return int(c.size.Load())
}

// noCache disables caching.
type noCache struct{}

func (noCache) Load(Key) (*avro.RecordSchema, bool) { return nil, false }

func (noCache) LoadOrStore(_ Key, rec *avro.RecordSchema) *avro.RecordSchema { return rec }

// NoCache returns a Cache that never stores anything.
func NoCache() Cache {
	return noCache{}
}
