package repository

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/playdeck/liverank/pkg/metrics"
)

// WindowEvictor retires day-window index keys after their retention period.
//
// Each key moves through a one-way lifecycle: scheduled on its first write,
// then dropped once the fixed retention interval elapses. Reads never refresh
// the deadline (touch-on-hit is disabled) and Schedule ignores keys that are
// already tracked, so the retention window is set exactly once per key.
type WindowEvictor struct {
	cache *ttlcache.Cache[string, time.Time]
	drop  func(key string)
}

// NewWindowEvictor creates an evictor that calls drop with each expired key.
func NewWindowEvictor(drop func(key string)) *WindowEvictor {
	e := &WindowEvictor{
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, time.Time](),
		),
		drop: drop,
	}

	e.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, time.Time]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		e.drop(item.Key())
		metrics.RecordWindowEvicted()
	})

	go e.cache.Start()
	return e
}

// Schedule marks key for eviction after ttl. The first call wins; a key that
// is already tracked keeps its original deadline. Returns true when the key
// was newly scheduled.
func (e *WindowEvictor) Schedule(key string, ttl time.Duration) bool {
	if e.cache.Has(key) {
		return false
	}
	e.cache.Set(key, time.Now().Add(ttl), ttl)
	return true
}

// Scheduled reports whether key is tracked for eviction.
func (e *WindowEvictor) Scheduled(key string) bool {
	return e.cache.Has(key)
}

// Deadline returns the eviction deadline for key, if tracked.
func (e *WindowEvictor) Deadline(key string) (time.Time, bool) {
	item := e.cache.Get(key)
	if item == nil {
		return time.Time{}, false
	}
	return item.Value(), true
}

// Stop halts the expiration loop. Pending keys are not dropped.
func (e *WindowEvictor) Stop() {
	e.cache.Stop()
}
