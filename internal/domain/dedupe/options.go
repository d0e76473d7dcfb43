// Package dedupe filters recently seen submission keys so repeated
// identical submissions do not pile up duplicate rows in the durable log.
package dedupe

import "time"

type config struct {
	maxSize int
	ttl     time.Duration
}

// Option applies a configuration option to the deduper.
type Option func(*config)

// WithMaxSize sets the maximum number of keys to keep in memory.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		if maxSize > 0 {
			c.maxSize = maxSize
		}
	}
}

// WithTTL sets how long a key stays in the seen set.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}
