// Package dedupe filters recently seen submission keys so repeated
// identical submissions do not pile up duplicate rows in the durable log.
package dedupe

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Deduper records seen submission keys for a bounded window.
type Deduper interface {
	// SeenAndRecord checks if key was seen recently and records it if
	// not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key from the seen set, allowing it to be
	// recorded again before its window lapses.
	Unrecord(ctx context.Context, key string)

	Size() int64

	Stop()
}

// inMemoryDeduper implements Deduper on a TTL cache: entries lapse on
// their own, and capacity is bounded with LRU eviction under pressure.
type inMemoryDeduper struct {
	cache *ttlcache.Cache[string, struct{}]
	ttl   time.Duration
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		ttl: 10 * time.Minute,
	}

	cfg := &config{maxSize: 50000}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl > 0 {
		d.ttl = cfg.ttl
	}

	d.cache = ttlcache.New(
		ttlcache.WithTTL[string, struct{}](d.ttl),
		ttlcache.WithCapacity[string, struct{}](uint64(cfg.maxSize)),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go d.cache.Start()

	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	if d.cache.Has(key) {
		return true
	}
	d.cache.Set(key, struct{}{}, ttlcache.DefaultTTL)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.cache.Delete(key)
}

func (d *inMemoryDeduper) Size() int64 {
	return int64(d.cache.Len())
}

func (d *inMemoryDeduper) Stop() {
	d.cache.Stop()
}
